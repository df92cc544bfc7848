package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

var ErrFechaRequerida = errors.New("fecha de medición requerida")

// MedicionEntrada is one submitted measurement. Cantidad is raw user input.
type MedicionEntrada struct {
	Tarea    string `json:"tarea"`
	Material string `json:"material"`
	Cantidad any    `json:"cantidad"`
}

// RegistrarMediciones stores dated measurements for tasks of one obra.
// Entries with an unknown task, a missing material or a non-positive
// quantity are skipped. Returns how many rows were saved.
func RegistrarMediciones(app core.App, obraID, fecha string, entradas []MedicionEntrada) (int, error) {
	fecha = strings.TrimSpace(fecha)
	if fecha == "" {
		return 0, ErrFechaRequerida
	}
	dia, err := time.Parse(time.DateOnly, fecha)
	if err != nil {
		return 0, fmt.Errorf("fecha %q: %w", fecha, ErrFechaRequerida)
	}

	saved := 0
	err = app.RunInTransaction(func(txApp core.App) error {
		if _, err := txApp.FindRecordById("obras", obraID); err != nil {
			return fmt.Errorf("obra %s: %w", obraID, ErrObraNotFound)
		}
		tree, err := loadObraTree(txApp, obraID)
		if err != nil {
			return err
		}
		tareas := make(map[string]bool)
		for _, list := range tree.tareas {
			for _, t := range list {
				tareas[t.Id] = true
			}
		}

		col, err := txApp.FindCollectionByNameOrId("mediciones_material")
		if err != nil {
			return fmt.Errorf("find mediciones_material collection: %w", err)
		}
		for _, e := range entradas {
			cantidad := ParseQuantity(e.Cantidad)
			if !cantidad.IsPositive() || !tareas[e.Tarea] || e.Material == "" {
				continue
			}
			if _, err := txApp.FindRecordById("materiales", e.Material); err != nil {
				txApp.Logger().Warn("medicion: material desconocido", "material", e.Material, "tarea", e.Tarea)
				continue
			}
			rec := core.NewRecord(col)
			rec.Set("tarea", e.Tarea)
			rec.Set("material", e.Material)
			rec.Set("cantidad", cantidad.InexactFloat64())
			rec.Set("fecha_medicion", dia)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save medicion: %w", err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// FilaMedicion is one requirement with its measurements by date.
type FilaMedicion struct {
	Fase              string                     `json:"fase"`
	TareaID           string                     `json:"tarea_id"`
	Tarea             string                     `json:"tarea"`
	MaterialID        string                     `json:"material_id"`
	Codigo            string                     `json:"codigo"`
	Material          string                     `json:"material"`
	Unidad            string                     `json:"unidad"`
	CantidadRequerida decimal.Decimal            `json:"cantidad_requerida"`
	Mediciones        map[string]decimal.Decimal `json:"mediciones"`
	TotalMedido       decimal.Decimal            `json:"total_medido"`
}

// TablaMediciones is the measurement grid of an obra.
type TablaMediciones struct {
	Fechas []string       `json:"fechas"`
	Filas  []FilaMedicion `json:"filas"`
}

// LoadTablaMediciones builds one row per requirement, in phase and task
// order, with measurements summed per YYYY-MM-DD.
func LoadTablaMediciones(app core.App, obraID string) (*TablaMediciones, error) {
	if _, err := app.FindRecordById("obras", obraID); err != nil {
		return nil, fmt.Errorf("obra %s: %w", obraID, ErrObraNotFound)
	}
	tree, err := loadObraTree(app, obraID)
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog(app)
	if err != nil {
		return nil, err
	}

	tabla := &TablaMediciones{Fechas: []string{}, Filas: []FilaMedicion{}}
	fechas := make(map[string]bool)

	for _, fase := range tree.fases {
		for _, tarea := range tree.tareas[fase.Id] {
			reqs, err := app.FindAllRecords("requerimientos_material", dbx.HashExp{"tarea": tarea.Id})
			if err != nil {
				return nil, fmt.Errorf("load requerimientos of tarea %s: %w", tarea.Id, err)
			}
			meds, err := app.FindAllRecords("mediciones_material", dbx.HashExp{"tarea": tarea.Id})
			if err != nil {
				return nil, fmt.Errorf("load mediciones of tarea %s: %w", tarea.Id, err)
			}
			porMaterial := make(map[string]map[string]decimal.Decimal)
			for _, m := range meds {
				dia := m.GetDateTime("fecha_medicion").Time().Format(time.DateOnly)
				fechas[dia] = true
				mat := m.GetString("material")
				if porMaterial[mat] == nil {
					porMaterial[mat] = make(map[string]decimal.Decimal)
				}
				porMaterial[mat][dia] = porMaterial[mat][dia].Add(decimal.NewFromFloat(m.GetFloat("cantidad")))
			}

			filas := make([]FilaMedicion, 0, len(reqs))
			for _, r := range reqs {
				matID := r.GetString("material")
				mat, _ := catalog.MaterialByID(matID)
				fila := FilaMedicion{
					Fase:              fase.GetString("nombre"),
					TareaID:           tarea.Id,
					Tarea:             tarea.GetString("nombre"),
					MaterialID:        matID,
					Codigo:            mat.Codigo,
					Material:          mat.Nombre,
					Unidad:            mat.Unidad,
					CantidadRequerida: decimal.NewFromFloat(r.GetFloat("cantidad_requerida")),
					Mediciones:        porMaterial[matID],
				}
				if fila.Mediciones == nil {
					fila.Mediciones = map[string]decimal.Decimal{}
				}
				for _, q := range fila.Mediciones {
					fila.TotalMedido = fila.TotalMedido.Add(q)
				}
				filas = append(filas, fila)
			}
			sort.SliceStable(filas, func(i, j int) bool { return filas[i].Codigo < filas[j].Codigo })
			tabla.Filas = append(tabla.Filas, filas...)
		}
	}

	for d := range fechas {
		tabla.Fechas = append(tabla.Fechas, d)
	}
	sort.Strings(tabla.Fechas)
	return tabla, nil
}
