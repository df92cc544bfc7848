package services

import (
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

var ErrTareaNotFound = errors.New("tarea not found")

// ListMateriales returns catalog materials sorted by name. A known sistema
// (VRF, CHW) filters the list; anything else returns all.
func ListMateriales(app core.App, sistema string) ([]Material, error) {
	catalog, err := LoadCatalog(app)
	if err != nil {
		return nil, err
	}
	if !ValidSistema(sistema) {
		sistema = ""
	}
	return catalog.Materiales(sistema), nil
}

// ActualizarCostos sets costo_unitario by material code. Unknown codes and
// negative or unparsable costs are skipped. Returns the updated count.
func ActualizarCostos(app core.App, costos map[string]any) (int, error) {
	updated := 0
	err := app.RunInTransaction(func(txApp core.App) error {
		for _, code := range sortedKeys(costos) {
			costo, ok := parseQuantity(costos[code])
			if !ok {
				continue
			}
			rec, err := txApp.FindFirstRecordByData("materiales", "codigo", NormalizeCodigo(code))
			if err != nil {
				txApp.Logger().Warn("costos: material desconocido", "codigo", code)
				continue
			}
			rec.Set("costo_unitario", costo.InexactFloat64())
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save costo of %s: %w", code, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// ReemplazarRequerimientos deletes every requirement of a task and recreates
// them from material id → quantity, keeping positive quantities only.
func ReemplazarRequerimientos(app core.App, tareaID string, cantidades map[string]any) (int, error) {
	created := 0
	err := app.RunInTransaction(func(txApp core.App) error {
		if _, err := txApp.FindRecordById("tareas", tareaID); err != nil {
			return fmt.Errorf("tarea %s: %w", tareaID, ErrTareaNotFound)
		}
		existing, err := txApp.FindAllRecords("requerimientos_material", dbx.HashExp{"tarea": tareaID})
		if err != nil {
			return fmt.Errorf("load requerimientos of tarea %s: %w", tareaID, err)
		}
		for _, r := range existing {
			if err := txApp.Delete(r); err != nil {
				return fmt.Errorf("delete requerimiento %s: %w", r.Id, err)
			}
		}

		col, err := txApp.FindCollectionByNameOrId("requerimientos_material")
		if err != nil {
			return fmt.Errorf("find requerimientos_material collection: %w", err)
		}
		for _, materialID := range sortedKeys(cantidades) {
			q := ParseQuantity(cantidades[materialID])
			if !q.IsPositive() {
				continue
			}
			if _, err := txApp.FindRecordById("materiales", materialID); err != nil {
				txApp.Logger().Warn("requerimientos: material desconocido", "material", materialID, "tarea", tareaID)
				continue
			}
			rec := core.NewRecord(col)
			rec.Set("tarea", tareaID)
			rec.Set("material", materialID)
			rec.Set("cantidad_requerida", q.InexactFloat64())
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save requerimiento: %w", err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
