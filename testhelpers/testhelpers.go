// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

func save(t *testing.T, app *pocketbase.PocketBase, collection string, fields map[string]any) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		t.Fatalf("failed to find %s collection: %v", collection, err)
	}

	record := core.NewRecord(col)
	for k, v := range fields {
		record.Set(k, v)
	}

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test %s record: %v", collection, err)
	}

	return record
}

// CreateTestEquipo creates an equipment record with the given model code.
func CreateTestEquipo(t *testing.T, app *pocketbase.PocketBase, modelo string) *core.Record {
	t.Helper()
	return save(t, app, "equipos", map[string]any{
		"modelo":  modelo,
		"nombre":  "Equipo " + modelo,
		"sistema": "VRF",
	})
}

// CreateTestMaterial creates a material record with the given code, family and base cost.
func CreateTestMaterial(t *testing.T, app *pocketbase.PocketBase, codigo, familia string, costo float64) *core.Record {
	t.Helper()
	return save(t, app, "materiales", map[string]any{
		"codigo":         codigo,
		"nombre":         "Material " + codigo,
		"unidad":         "un",
		"familia":        familia,
		"sistema":        "VRF",
		"costo_unitario": costo,
	})
}

// RuleLine is a {codigo, cantidad} pair as stored in rule records.
type RuleLine struct {
	Codigo   string  `json:"codigo"`
	Cantidad float64 `json:"cantidad"`
}

// CreateTestReglaEquipo creates an equipment→material rule.
func CreateTestReglaEquipo(t *testing.T, app *pocketbase.PocketBase, equipo string, lines ...RuleLine) *core.Record {
	t.Helper()
	return save(t, app, "reglas_equipo_material", map[string]any{
		"equipo":     equipo,
		"materiales": lines,
	})
}

// CreateTestReglaMaterial creates a material→material rule.
func CreateTestReglaMaterial(t *testing.T, app *pocketbase.PocketBase, material string, lines ...RuleLine) *core.Record {
	t.Helper()
	return save(t, app, "reglas_material_material", map[string]any{
		"material":   material,
		"materiales": lines,
	})
}

// CreateTestCorrida creates a run record. datos may be nil.
func CreateTestCorrida(t *testing.T, app *pocketbase.PocketBase, nombre, correlativo string, datos any) *core.Record {
	t.Helper()
	if datos == nil {
		datos = map[string]any{"equipos": map[string]int{}, "tuberias": map[string]float64{}}
	}
	return save(t, app, "corridas", map[string]any{
		"nombre":      nombre,
		"correlativo": correlativo,
		"markup":      0.30,
		"datos":       datos,
	})
}

// CreateTestObra creates a project record starting at 2026-01-05.
func CreateTestObra(t *testing.T, app *pocketbase.PocketBase, nombre string, presupuesto float64) *core.Record {
	t.Helper()
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return save(t, app, "obras", map[string]any{
		"nombre":              nombre,
		"fecha_inicio":        start,
		"fecha_fin_estimada":  start.AddDate(0, 0, 23),
		"presupuesto_inicial": presupuesto,
	})
}

// CreateTestFase creates a phase under an obra.
func CreateTestFase(t *testing.T, app *pocketbase.PocketBase, obraID, nombre string, orden int, presupuesto float64) *core.Record {
	t.Helper()
	return save(t, app, "fases", map[string]any{
		"obra":                 obraID,
		"nombre":               nombre,
		"orden":                orden,
		"presupuesto_asignado": presupuesto,
	})
}

// CreateTestTarea creates a task under a phase.
func CreateTestTarea(t *testing.T, app *pocketbase.PocketBase, faseID, nombre string) *core.Record {
	t.Helper()
	return save(t, app, "tareas", map[string]any{
		"fase":   faseID,
		"nombre": nombre,
	})
}

// CreateTestRequerimiento creates a material requirement for a task.
func CreateTestRequerimiento(t *testing.T, app *pocketbase.PocketBase, tareaID, materialID string, cantidad float64) *core.Record {
	t.Helper()
	return save(t, app, "requerimientos_material", map[string]any{
		"tarea":              tareaID,
		"material":           materialID,
		"cantidad_requerida": cantidad,
	})
}

// CreateTestMedicion creates a dated measurement. fecha is YYYY-MM-DD.
func CreateTestMedicion(t *testing.T, app *pocketbase.PocketBase, tareaID, materialID string, cantidad float64, fecha string) *core.Record {
	t.Helper()
	d, err := time.Parse(time.DateOnly, fecha)
	if err != nil {
		t.Fatalf("bad fecha %q: %v", fecha, err)
	}
	return save(t, app, "mediciones_material", map[string]any{
		"tarea":          tareaID,
		"material":       materialID,
		"cantidad":       cantidad,
		"fecha_medicion": d,
	})
}
