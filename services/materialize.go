package services

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

var ErrObraNotFound = errors.New("obra not found")

// DuracionObraDias is the heuristic schedule length of a materialized obra.
const DuracionObraDias = 23

const motivoFamiliaSinFase = "familia sin fase asignada"

// tareaPlantilla is one row of the fixed family → phase/task routing.
type tareaPlantilla struct {
	Fase     string
	Tarea    string
	Desde    int
	Hasta    int
	Familias []string
	Siempre  bool
}

// plantillaObra is ordered: phases and tasks are created in this order.
var plantillaObra = []tareaPlantilla{
	{Fase: "Transporte", Tarea: "Izaje", Desde: 0, Hasta: 1, Familias: []string{"IZAJE"}},
	{Fase: "Mecánica", Tarea: "Instalación de Anclajes", Desde: 0, Hasta: 5, Familias: []string{"ANCLAJE"}},
	{Fase: "Mecánica", Tarea: "Instalación de Tuberías", Desde: 3, Hasta: 15, Familias: []string{"TUBERIA", "TUBERIAS", "TORNILLERIA", "VALVULAS"}},
	{Fase: "Mecánica", Tarea: "Instalación de Drenajes", Desde: 3, Hasta: 15, Familias: []string{"DRENAJE"}},
	{Fase: "Electricidad", Tarea: "Instalación Eléctrica", Desde: 15, Hasta: 20, Familias: []string{"ELECTRICIDAD"}},
	{Fase: "Ventilación", Tarea: "Instalación de Ductería", Desde: 15, Hasta: 20, Familias: []string{"DUCTERIA"}},
	{Fase: "Arranque", Tarea: "Arranque", Desde: 20, Hasta: 23, Familias: []string{"REFRIGERANTE"}, Siempre: true},
}

var familiaTarea = func() map[string]int {
	m := make(map[string]int)
	for i, p := range plantillaObra {
		for _, f := range p.Familias {
			m[f] = i
		}
	}
	return m
}()

// ClassifyFamilia returns the phase and task a material family routes to.
func ClassifyFamilia(familia string) (fase, tarea string, ok bool) {
	i, ok := familiaTarea[NormalizeFamilia(familia)]
	if !ok {
		return "", "", false
	}
	return plantillaObra[i].Fase, plantillaObra[i].Tarea, true
}

type RequerimientoPlan struct {
	MaterialID string          `json:"material_id"`
	Codigo     string          `json:"codigo"`
	Cantidad   decimal.Decimal `json:"cantidad"`
	Costo      decimal.Decimal `json:"costo"`
}

type TareaPlan struct {
	Nombre         string              `json:"nombre"`
	Inicio         time.Time           `json:"fecha_inicio"`
	Fin            time.Time           `json:"fecha_fin_estimada"`
	Requerimientos []RequerimientoPlan `json:"requerimientos"`
}

type FasePlan struct {
	Nombre      string          `json:"nombre"`
	Orden       int             `json:"orden"`
	Presupuesto decimal.Decimal `json:"presupuesto_asignado"`
	Tareas      []TareaPlan     `json:"tareas"`
}

// ObraPlan is the phase/task tree derived from a priced materials list.
type ObraPlan struct {
	Inicio      time.Time       `json:"fecha_inicio"`
	Fin         time.Time       `json:"fecha_fin_estimada"`
	Presupuesto decimal.Decimal `json:"presupuesto_inicial"`
	Fases       []FasePlan      `json:"fases"`
}

// PlanObra routes each priced material to its task by family. Unknown
// codes and unclassified families are skipped with a warning. Only tasks
// with materials are planned, except Arranque.
func PlanObra(materiales map[string]MaterialCotizado, catalog *Catalog, inicio time.Time) (ObraPlan, []Warning) {
	w := newWarnings()
	plan := ObraPlan{Inicio: inicio, Fin: inicio.AddDate(0, 0, DuracionObraDias)}

	porTarea := make([][]RequerimientoPlan, len(plantillaObra))
	for _, code := range sortedKeys(materiales) {
		mc := materiales[code]
		if !mc.Cantidad.IsPositive() {
			continue
		}
		mat, ok := catalog.Material(code)
		if !ok {
			w.add(Warning{Codigo: code, Motivo: motivoMaterialDesconocido})
			continue
		}
		costo := mc.Total()
		plan.Presupuesto = plan.Presupuesto.Add(costo)

		i, ok := familiaTarea[mat.Familia]
		if !ok {
			w.add(Warning{Codigo: code, Origen: mat.Familia, Motivo: motivoFamiliaSinFase})
			continue
		}
		porTarea[i] = append(porTarea[i], RequerimientoPlan{
			MaterialID: mat.ID,
			Codigo:     mat.Codigo,
			Cantidad:   mc.Cantidad,
			Costo:      costo,
		})
	}

	fases := map[string]int{}
	for i, p := range plantillaObra {
		reqs := porTarea[i]
		if len(reqs) == 0 && !p.Siempre {
			continue
		}
		fi, ok := fases[p.Fase]
		if !ok {
			plan.Fases = append(plan.Fases, FasePlan{Nombre: p.Fase, Orden: len(plan.Fases) + 1})
			fi = len(plan.Fases) - 1
			fases[p.Fase] = fi
		}
		fase := &plan.Fases[fi]
		for _, r := range reqs {
			fase.Presupuesto = fase.Presupuesto.Add(r.Costo)
		}
		fase.Tareas = append(fase.Tareas, TareaPlan{
			Nombre:         p.Tarea,
			Inicio:         inicio.AddDate(0, 0, p.Desde),
			Fin:            inicio.AddDate(0, 0, p.Hasta),
			Requerimientos: reqs,
		})
	}
	return plan, w.list
}

// MaterializeInput names the obra created from a quotation.
type MaterializeInput struct {
	Nombre         string
	FechaInicio    time.Time
	CentroServicio string
}

func (in MaterializeInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FechaInicio, validation.Required),
	)
}

// ObraResult is a created obra and the plan it was built from.
type ObraResult struct {
	Obra     *core.Record
	Plan     ObraPlan
	Warnings []Warning
}

// MaterializeObra creates an obra with its phases, tasks and requirements
// from a quotation, in one transaction.
func MaterializeObra(app core.App, cotizacionID string, in MaterializeInput) (*ObraResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	result := &ObraResult{}
	err := app.RunInTransaction(func(txApp core.App) error {
		cot, datos, err := LoadCotizacionDatos(txApp, cotizacionID)
		if err != nil {
			return err
		}
		catalog, err := LoadCatalog(txApp)
		if err != nil {
			return err
		}
		plan, warns := PlanObra(datos.Materiales, catalog, in.FechaInicio)
		result.Plan = plan
		result.Warnings = warns

		nombre := in.Nombre
		if nombre == "" {
			nombre = cot.GetString("nombre")
		}

		obra, err := newRecord(txApp, "obras")
		if err != nil {
			return err
		}
		obra.Set("nombre", nombre)
		obra.Set("descripcion", datos.Descripcion)
		obra.Set("direccion", datos.DireccionProyecto)
		obra.Set("ingeniero_encargado", datos.IngenieroEncargado)
		obra.Set("centro_servicio", in.CentroServicio)
		obra.Set("fecha_inicio", plan.Inicio)
		obra.Set("fecha_fin_estimada", plan.Fin)
		obra.Set("presupuesto_inicial", plan.Presupuesto.InexactFloat64())
		obra.Set("cotizacion", cot.Id)
		if err := txApp.Save(obra); err != nil {
			return fmt.Errorf("save obra: %w", err)
		}

		for _, fp := range plan.Fases {
			fase, err := newRecord(txApp, "fases")
			if err != nil {
				return err
			}
			fase.Set("obra", obra.Id)
			fase.Set("nombre", fp.Nombre)
			fase.Set("orden", fp.Orden)
			fase.Set("presupuesto_asignado", fp.Presupuesto.InexactFloat64())
			if err := txApp.Save(fase); err != nil {
				return fmt.Errorf("save fase %q: %w", fp.Nombre, err)
			}

			for _, tp := range fp.Tareas {
				tarea, err := newRecord(txApp, "tareas")
				if err != nil {
					return err
				}
				tarea.Set("fase", fase.Id)
				tarea.Set("nombre", tp.Nombre)
				tarea.Set("descripcion", fmt.Sprintf("Generada desde la cotización %s", cot.GetString("correlativo")))
				tarea.Set("fecha_inicio", tp.Inicio)
				tarea.Set("fecha_fin_estimada", tp.Fin)
				if err := txApp.Save(tarea); err != nil {
					return fmt.Errorf("save tarea %q: %w", tp.Nombre, err)
				}
				if err := insertRequerimientos(txApp, tarea.Id, tp.Requerimientos); err != nil {
					return err
				}
			}
		}
		result.Obra = obra
		return nil
	})
	if err != nil {
		return nil, err
	}

	obrasMaterializadas.Inc()
	logWarnings(app, "obra", result.Warnings)
	app.Logger().Info("obra materializada",
		"obra", result.Obra.Id,
		"cotizacion", cotizacionID,
		"fases", len(result.Plan.Fases),
	)
	return result, nil
}

func insertRequerimientos(app core.App, tareaID string, reqs []RequerimientoPlan) error {
	if len(reqs) == 0 {
		return nil
	}
	col, err := app.FindCollectionByNameOrId("requerimientos_material")
	if err != nil {
		return fmt.Errorf("find requerimientos_material collection: %w", err)
	}
	for _, r := range reqs {
		rec := core.NewRecord(col)
		rec.Set("tarea", tareaID)
		rec.Set("material", r.MaterialID)
		rec.Set("cantidad_requerida", r.Cantidad.InexactFloat64())
		if err := app.Save(rec); err != nil {
			return fmt.Errorf("save requerimiento %s: %w", r.Codigo, err)
		}
	}
	return nil
}

func newRecord(app core.App, collection string) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		return nil, fmt.Errorf("find %s collection: %w", collection, err)
	}
	return core.NewRecord(col), nil
}
