package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// jsonMaxSize bounds rule lists and quotation payloads (2 MB).
const jsonMaxSize = 2 << 20

// Setup programmatically creates/ensures the catalog, rule, quotation and
// project collections exist.
func Setup(app *pocketbase.PocketBase) {
	// ── Catalog ──────────────────────────────────────────────────────
	ensureCollection(app, "equipos", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "modelo", Required: true})
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "descripcion"})
		c.Fields.Add(&core.TextField{Name: "sistema"})
		c.Fields.Add(&core.NumberField{Name: "capacidad"})
		c.Fields.Add(&core.NumberField{Name: "mca"})
		c.Fields.Add(&core.NumberField{Name: "mfa"})
		c.AddIndex("idx_equipos_modelo", true, "modelo", "")
	})

	materiales := ensureCollection(app, "materiales", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "codigo", Required: true})
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "unidad"})
		c.Fields.Add(&core.TextField{Name: "familia"})
		c.Fields.Add(&core.TextField{Name: "sistema"})
		c.Fields.Add(&core.TextField{Name: "descripcion"})
		c.Fields.Add(&core.NumberField{Name: "costo_unitario", Min: floatPtr(0)})
		c.Fields.Add(&core.NumberField{Name: "stock"})
		c.AddIndex("idx_materiales_codigo", true, "codigo", "")
	})

	// ── Rules ────────────────────────────────────────────────────────
	ensureCollection(app, "reglas_equipo_material", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "equipo", Required: true})
		c.Fields.Add(&core.JSONField{Name: "materiales", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_reglas_em_equipo", true, "equipo", "")
	})

	ensureCollection(app, "reglas_material_material", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "material", Required: true})
		c.Fields.Add(&core.JSONField{Name: "materiales", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_reglas_mm_material", true, "material", "")
	})

	// ── Runs and quotations ──────────────────────────────────────────
	corridas := ensureCollection(app, "corridas", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "correlativo", Required: true})
		c.Fields.Add(&core.NumberField{Name: "markup"})
		c.Fields.Add(&core.JSONField{Name: "datos", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.AddIndex("idx_corridas_nombre", true, "nombre", "")
		c.AddIndex("idx_corridas_correlativo", true, "correlativo", "")
	})

	cotizaciones := ensureCollection(app, "cotizaciones", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "correlativo", Required: true})
		c.Fields.Add(&core.TextField{Name: "correlativo_base", Required: true})
		c.Fields.Add(&core.NumberField{Name: "revision", OnlyInt: true})
		c.Fields.Add(&core.RelationField{
			Name:          "corrida",
			Required:      true,
			CollectionId:  corridas.Id,
			CascadeDelete: false,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.JSONField{Name: "markup_familias", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.JSONField{Name: "datos", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_cotizaciones_correlativo", true, "correlativo", "")
		c.AddIndex("idx_cotizaciones_base", false, "correlativo_base, revision", "")
	})

	// ── Projects ─────────────────────────────────────────────────────
	personal := ensureCollection(app, "personal", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "cargo"})
	})

	obras := ensureCollection(app, "obras", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "descripcion"})
		c.Fields.Add(&core.TextField{Name: "direccion"})
		c.Fields.Add(&core.RelationField{
			Name:         "centro_servicio",
			CollectionId: personal.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "ingeniero_encargado"})
		c.Fields.Add(&core.DateField{Name: "fecha_inicio", Required: true})
		c.Fields.Add(&core.DateField{Name: "fecha_fin_estimada", Required: true})
		c.Fields.Add(&core.NumberField{Name: "presupuesto_inicial"})
		c.Fields.Add(&core.RelationField{
			Name:         "cotizacion",
			CollectionId: cotizaciones.Id,
			MaxSelect:    1,
		})
	})

	fases := ensureCollection(app, "fases", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "obra",
			Required:      true,
			CollectionId:  obras.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.NumberField{Name: "orden", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "presupuesto_asignado"})
		c.Fields.Add(&core.NumberField{Name: "costo_mano_de_obra"})
	})

	tareas := ensureCollection(app, "tareas", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "fase",
			Required:      true,
			CollectionId:  fases.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "nombre", Required: true})
		c.Fields.Add(&core.TextField{Name: "descripcion"})
		c.Fields.Add(&core.DateField{Name: "fecha_inicio"})
		c.Fields.Add(&core.DateField{Name: "fecha_fin_estimada"})
		c.Fields.Add(&core.NumberField{Name: "costo_mano_de_obra"})
	})

	ensureCollection(app, "requerimientos_material", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "tarea",
			Required:      true,
			CollectionId:  tareas.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "material",
			Required:      true,
			CollectionId:  materiales.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "cantidad_requerida"})
	})

	ensureCollection(app, "mediciones_material", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "tarea",
			Required:      true,
			CollectionId:  tareas.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "material",
			Required:      true,
			CollectionId:  materiales.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "cantidad"})
		c.Fields.Add(&core.DateField{Name: "fecha_medicion", Required: true})
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}

func floatPtr(v float64) *float64 {
	return &v
}
