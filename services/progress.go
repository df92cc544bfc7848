package services

import (
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

var cien = decimal.NewFromInt(100)

// Medicion is one measured quantity valued at the material's current cost.
type Medicion struct {
	Cantidad      decimal.Decimal
	CostoUnitario decimal.Decimal
}

type TareaAvance struct {
	ID                  string          `json:"id"`
	Nombre              string          `json:"nombre"`
	Requerido           decimal.Decimal `json:"requerido"`
	Medido              decimal.Decimal `json:"medido"`
	TieneRequerimientos bool            `json:"tiene_requerimientos"`
	AvancePct           decimal.Decimal `json:"avance_pct"`
	CostoManoObra       decimal.Decimal `json:"costo_mano_de_obra"`
	CostoEjecutado      decimal.Decimal `json:"costo_ejecutado"`
}

type FaseAvance struct {
	ID                  string          `json:"id"`
	Nombre              string          `json:"nombre"`
	PresupuestoAsignado decimal.Decimal `json:"presupuesto_asignado"`
	CostoManoObra       decimal.Decimal `json:"costo_mano_de_obra"`
	AvancePct           decimal.Decimal `json:"avance_pct"`
	CostoEjecutado      decimal.Decimal `json:"costo_ejecutado"`
	PorcentajeEjecutado decimal.Decimal `json:"porcentaje_ejecutado"`
	Tareas              []TareaAvance   `json:"tareas"`
}

type ObraAvance struct {
	ID                  string          `json:"id"`
	Nombre              string          `json:"nombre"`
	PresupuestoInicial  decimal.Decimal `json:"presupuesto_inicial"`
	AvancePct           decimal.Decimal `json:"avance_pct"`
	CostoEjecutado      decimal.Decimal `json:"costo_ejecutado"`
	PorcentajeEjecutado decimal.Decimal `json:"porcentaje_ejecutado"`
	Fases               []FaseAvance    `json:"fases"`
}

// NewTareaAvance computes Σ measured / Σ required × 100 (0 with nothing
// required; may exceed 100) and Σ measured × cost + labor.
func NewTareaAvance(id, nombre string, requeridos []decimal.Decimal, mediciones []Medicion, manoObra decimal.Decimal) TareaAvance {
	t := TareaAvance{ID: id, Nombre: nombre, CostoManoObra: manoObra, TieneRequerimientos: len(requeridos) > 0}
	for _, r := range requeridos {
		t.Requerido = t.Requerido.Add(r)
	}
	costo := decimal.Zero
	for _, m := range mediciones {
		t.Medido = t.Medido.Add(m.Cantidad)
		costo = costo.Add(m.Cantidad.Mul(m.CostoUnitario))
	}
	t.AvancePct = pct(t.Medido, t.Requerido)
	t.CostoEjecutado = costo.Add(manoObra)
	return t
}

// NewFaseAvance averages the advance of tasks that have requirements,
// unweighted.
func NewFaseAvance(id, nombre string, presupuesto, manoObra decimal.Decimal, tareas []TareaAvance) FaseAvance {
	f := FaseAvance{
		ID:                  id,
		Nombre:              nombre,
		PresupuestoAsignado: presupuesto,
		CostoManoObra:       manoObra,
		Tareas:              tareas,
	}
	var avances []decimal.Decimal
	costo := decimal.Zero
	for _, t := range tareas {
		if t.TieneRequerimientos {
			avances = append(avances, t.AvancePct)
		}
		costo = costo.Add(t.CostoEjecutado)
	}
	f.AvancePct = mean(avances)
	f.CostoEjecutado = costo.Add(manoObra)
	f.PorcentajeEjecutado = pct(f.CostoEjecutado, presupuesto)
	return f
}

// NewObraAvance averages the advance of phases that have tasks, unweighted.
func NewObraAvance(id, nombre string, presupuesto decimal.Decimal, fases []FaseAvance) ObraAvance {
	o := ObraAvance{ID: id, Nombre: nombre, PresupuestoInicial: presupuesto, Fases: fases}
	var avances []decimal.Decimal
	costo := decimal.Zero
	for _, f := range fases {
		if len(f.Tareas) > 0 {
			avances = append(avances, f.AvancePct)
		}
		costo = costo.Add(f.CostoEjecutado)
	}
	o.AvancePct = mean(avances)
	o.CostoEjecutado = costo
	o.PorcentajeEjecutado = pct(costo, presupuesto)
	return o
}

func pct(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(cien).Round(2)
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Avg(values[0], values[1:]...).Round(2)
}

// LoadObraAvance reads an obra's phases, tasks, requirements and
// measurements and rolls them up. Measurements are valued at the current
// material cost.
func LoadObraAvance(app core.App, obraID string) (*ObraAvance, error) {
	obra, err := app.FindRecordById("obras", obraID)
	if err != nil {
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

	fases := make([]FaseAvance, 0, len(tree.fases))
	for _, fase := range tree.fases {
		tareas := make([]TareaAvance, 0, len(tree.tareas[fase.Id]))
		for _, tarea := range tree.tareas[fase.Id] {
			reqs, err := app.FindAllRecords("requerimientos_material", dbx.HashExp{"tarea": tarea.Id})
			if err != nil {
				return nil, fmt.Errorf("load requerimientos of tarea %s: %w", tarea.Id, err)
			}
			requeridos := make([]decimal.Decimal, 0, len(reqs))
			for _, r := range reqs {
				requeridos = append(requeridos, decimal.NewFromFloat(r.GetFloat("cantidad_requerida")))
			}

			meds, err := app.FindAllRecords("mediciones_material", dbx.HashExp{"tarea": tarea.Id})
			if err != nil {
				return nil, fmt.Errorf("load mediciones of tarea %s: %w", tarea.Id, err)
			}
			mediciones := make([]Medicion, 0, len(meds))
			for _, m := range meds {
				mat, _ := catalog.MaterialByID(m.GetString("material"))
				mediciones = append(mediciones, Medicion{
					Cantidad:      decimal.NewFromFloat(m.GetFloat("cantidad")),
					CostoUnitario: mat.CostoUnitario,
				})
			}

			tareas = append(tareas, NewTareaAvance(
				tarea.Id, tarea.GetString("nombre"), requeridos, mediciones,
				decimal.NewFromFloat(tarea.GetFloat("costo_mano_de_obra")),
			))
		}
		fases = append(fases, NewFaseAvance(
			fase.Id, fase.GetString("nombre"),
			decimal.NewFromFloat(fase.GetFloat("presupuesto_asignado")),
			decimal.NewFromFloat(fase.GetFloat("costo_mano_de_obra")),
			tareas,
		))
	}

	avance := NewObraAvance(obra.Id, obra.GetString("nombre"),
		decimal.NewFromFloat(obra.GetFloat("presupuesto_inicial")), fases)
	return &avance, nil
}

// obraTree is an obra's phases in order with their tasks by phase id.
type obraTree struct {
	fases  []*core.Record
	tareas map[string][]*core.Record
}

func loadObraTree(app core.App, obraID string) (*obraTree, error) {
	fases, err := app.FindRecordsByFilter("fases", "obra = {:obra}", "orden,id", 0, 0, dbx.Params{"obra": obraID})
	if err != nil {
		return nil, fmt.Errorf("load fases of obra %s: %w", obraID, err)
	}
	tree := &obraTree{fases: fases, tareas: make(map[string][]*core.Record, len(fases))}
	for _, f := range fases {
		tareas, err := app.FindRecordsByFilter("tareas", "fase = {:fase}", "fecha_inicio,nombre", 0, 0, dbx.Params{"fase": f.Id})
		if err != nil {
			return nil, fmt.Errorf("load tareas of fase %s: %w", f.Id, err)
		}
		tree.tareas[f.Id] = tareas
	}
	return tree, nil
}
