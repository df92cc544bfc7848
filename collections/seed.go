package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ── Definition structs ───────────────────────────────────────────────────

type equipoDef struct {
	modelo      string
	nombre      string
	descripcion string
	capacidad   float64
}

type materialDef struct {
	codigo  string
	nombre  string
	unidad  string
	familia string
	costo   float64
}

type ruleLineDef struct {
	codigo   string
	cantidad float64
}

type ruleDef struct {
	origin string
	lines  []ruleLineDef
}

// ── Demo VRF catalog ─────────────────────────────────────────────────────

var seedEquipos = []equipoDef{
	{"RXYQ10", "Condensadora VRF 10 HP", "Unidad exterior VRF inverter", 28},
	{"FXFQ25", "Cassette VRF 4 vías 9000 BTU", "Unidad interior tipo cassette", 2.8},
	{"FXDQ32", "Ducto baja silueta 12000 BTU", "Unidad interior tipo ducto", 3.6},
}

var seedMateriales = []materialDef{
	{"IZA-01", "Izaje de condensadora con grúa", "global", "IZAJE", 350},
	{"ANC-01", "Soporte tipo trapecio con varilla roscada", "un", "ANCLAJE", 6.25},
	{"TUB-14", "Tubería de cobre flexible 1/4\"", "m", "TUBERIA", 3.8},
	{"TUB-38", "Tubería de cobre flexible 3/8\"", "m", "TUBERIA", 5.4},
	{"AIS-14", "Aislamiento elastomérico 1/4\"", "m", "TUBERIA", 1.1},
	{"AIS-38", "Aislamiento elastomérico 3/8\"", "m", "TUBERIA", 1.3},
	{"VAL-SRV", "Válvula de servicio", "un", "VALVULAS", 18},
	{"DRE-34", "Tubería PVC drenaje 3/4\"", "m", "DRENAJE", 1.6},
	{"CAB-THHN12", "Cable THHN #12", "m", "ELECTRICIDAD", 0.9},
	{"CAB-COM", "Cable de comunicación 2x18 AWG", "m", "ELECTRICIDAD", 0.7},
	{"REF-410", "Refrigerante R-410A", "kg", "REFRIGERANTE", 14},
}

var seedReglasEquipo = []ruleDef{
	{"RXYQ10", []ruleLineDef{{"IZA-01", 1}, {"TUB-38", 15}, {"CAB-THHN12", 20}, {"REF-410", 5}, {"VAL-SRV", 2}}},
	{"FXFQ25", []ruleLineDef{{"TUB-14", 8}, {"DRE-34", 6}, {"CAB-COM", 10}}},
	{"FXDQ32", []ruleLineDef{{"TUB-14", 10}, {"DRE-34", 8}, {"CAB-COM", 12}}},
}

var seedReglasMaterial = []ruleDef{
	{"TUB-14", []ruleLineDef{{"AIS-14", 1}, {"ANC-01", 0.5}}},
	{"TUB-38", []ruleLineDef{{"AIS-38", 1}, {"ANC-01", 0.5}}},
	{"DRE-34", []ruleLineDef{{"ANC-01", 0.5}}},
}

// Seed populates a fresh data dir with a small VRF catalog and its
// expansion rules. It is safe to call on every startup because it returns
// early if any material records already exist.
func Seed(app *pocketbase.PocketBase) error {
	// ── idempotency: skip if the catalog already has materials ───────
	n, err := app.CountRecords("materiales")
	if err != nil {
		return fmt.Errorf("seed: could not count materiales: %w", err)
	}
	if n > 0 {
		return nil // already seeded
	}

	log.Println("seed: catalog is empty – inserting demo VRF catalog …")

	return app.RunInTransaction(func(txApp core.App) error {
		equiposCol, err := txApp.FindCollectionByNameOrId("equipos")
		if err != nil {
			return fmt.Errorf("seed: could not find equipos collection: %w", err)
		}
		for _, e := range seedEquipos {
			r := core.NewRecord(equiposCol)
			r.Set("modelo", e.modelo)
			r.Set("nombre", e.nombre)
			r.Set("descripcion", e.descripcion)
			r.Set("sistema", "VRF")
			r.Set("capacidad", e.capacidad)
			if err := txApp.Save(r); err != nil {
				return fmt.Errorf("seed: equipo %s: %w", e.modelo, err)
			}
		}

		materialesCol, err := txApp.FindCollectionByNameOrId("materiales")
		if err != nil {
			return fmt.Errorf("seed: could not find materiales collection: %w", err)
		}
		for _, m := range seedMateriales {
			r := core.NewRecord(materialesCol)
			r.Set("codigo", m.codigo)
			r.Set("nombre", m.nombre)
			r.Set("unidad", m.unidad)
			r.Set("familia", m.familia)
			r.Set("sistema", "VRF")
			r.Set("costo_unitario", m.costo)
			r.Set("stock", 0)
			if err := txApp.Save(r); err != nil {
				return fmt.Errorf("seed: material %s: %w", m.codigo, err)
			}
		}

		if err := seedRules(txApp, "reglas_equipo_material", "equipo", seedReglasEquipo); err != nil {
			return err
		}
		if err := seedRules(txApp, "reglas_material_material", "material", seedReglasMaterial); err != nil {
			return err
		}

		log.Printf("seed: inserted %d equipos, %d materiales, %d rules\n",
			len(seedEquipos), len(seedMateriales), len(seedReglasEquipo)+len(seedReglasMaterial))
		return nil
	})
}

func seedRules(app core.App, collection, originKey string, defs []ruleDef) error {
	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		return fmt.Errorf("seed: could not find %s collection: %w", collection, err)
	}
	for _, d := range defs {
		lines := make([]map[string]any, len(d.lines))
		for i, l := range d.lines {
			lines[i] = map[string]any{"codigo": l.codigo, "cantidad": l.cantidad}
		}
		r := core.NewRecord(col)
		r.Set(originKey, d.origin)
		r.Set("materiales", lines)
		if err := app.Save(r); err != nil {
			return fmt.Errorf("seed: %s %s: %w", collection, d.origin, err)
		}
	}
	return nil
}
