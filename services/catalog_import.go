package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"
)

const importBatchSize = 100

// ImportResult holds the outcome of a batch import operation.
type ImportResult struct {
	TotalRows  int              `json:"total_rows"`
	Imported   int              `json:"imported"`
	Failed     int              `json:"failed"`
	Errors     []ImportRowError `json:"errors,omitempty"`
	RolledBack bool             `json:"rolled_back"`
}

// ImportRowError represents a failure to save a specific row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ImportRowError) Error() string {
	return fmt.Sprintf("row %d %s: %s", e.Row, e.Field, e.Message)
}

// importUnit is what one transaction step saves: a single catalog row or
// all rows of one rule origin.
type importUnit struct {
	rows []CatalogRow
	save func(app core.App) error
}

// CommitCatalogImport upserts validated rows in chunks of importBatchSize.
// Materials and equipment upsert by code. Rule rows are grouped per origin
// and replace that origin's rule.
//
// Within each chunk, if any save fails, the entire chunk is rolled back and
// its errors recorded. Later chunks still run.
func CommitCatalogImport(app core.App, kind ImportKind, rows []CatalogRow) (*ImportResult, error) {
	var units []importUnit
	switch kind {
	case ImportMateriales:
		for _, r := range rows {
			units = append(units, importUnit{rows: []CatalogRow{r}, save: materialSaver(r)})
		}
	case ImportEquipos:
		for _, r := range rows {
			units = append(units, importUnit{rows: []CatalogRow{r}, save: equipoSaver(r)})
		}
	case ImportReglasEquipo:
		units = ruleUnits(RuleEquipoMaterial, "equipo", rows)
	case ImportReglasMaterial:
		units = ruleUnits(RuleMaterialMaterial, "material_origen", rows)
	default:
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}

	result := &ImportResult{TotalRows: len(rows)}
	for start := 0; start < len(units); start += importBatchSize {
		chunk := units[start:min(start+importBatchSize, len(units))]
		n := 0
		for _, u := range chunk {
			n += len(u.rows)
		}

		if chunkErrors := commitChunk(app, chunk); len(chunkErrors) > 0 {
			result.Errors = append(result.Errors, chunkErrors...)
			result.Failed += n
			result.RolledBack = true
			filasImportadas.WithLabelValues(string(kind), "error").Add(float64(n))
		} else {
			result.Imported += n
			filasImportadas.WithLabelValues(string(kind), "ok").Add(float64(n))
		}
	}
	return result, nil
}

// commitChunk saves a batch of units within a RunInTransaction block.
// If any unit fails, the entire chunk is rolled back and errors are returned.
func commitChunk(app core.App, chunk []importUnit) []ImportRowError {
	var chunkErrors []ImportRowError

	err := app.RunInTransaction(func(txApp core.App) error {
		for _, u := range chunk {
			if err := u.save(txApp); err != nil {
				chunkErrors = append(chunkErrors, ImportRowError{
					Row:     u.rows[0].Line,
					Message: fmt.Sprintf("Failed to save: %s", err.Error()),
				})
				return fmt.Errorf("save failed at row %d: %w", u.rows[0].Line, err)
			}
		}
		return nil
	})

	if err != nil {
		log.Printf("catalog_import: chunk rolled back: %v", err)
		if len(chunkErrors) == 0 {
			chunkErrors = append(chunkErrors, ImportRowError{
				Row:     chunk[0].rows[0].Line,
				Message: fmt.Sprintf("Transaction failed: %s", err.Error()),
			})
		}
	}
	return chunkErrors
}

// findOrNew returns the record whose key field equals value, or a new one.
func findOrNew(app core.App, collection, key, value string) (*core.Record, error) {
	rec, err := app.FindFirstRecordByData(collection, key, value)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	rec, err = newRecord(app, collection)
	if err != nil {
		return nil, err
	}
	rec.Set(key, value)
	return rec, nil
}

func materialSaver(r CatalogRow) func(core.App) error {
	return func(app core.App) error {
		v := r.Values
		rec, err := findOrNew(app, "materiales", "codigo", NormalizeCodigo(v["codigo"]))
		if err != nil {
			return err
		}
		rec.Set("nombre", v["nombre"])
		rec.Set("unidad", v["unidad"])
		rec.Set("familia", NormalizeFamilia(v["familia"]))
		rec.Set("sistema", v["sistema"])
		rec.Set("costo_unitario", ParseQuantity(v["costo_unitario"]).InexactFloat64())
		return app.Save(rec)
	}
}

func equipoSaver(r CatalogRow) func(core.App) error {
	return func(app core.App) error {
		v := r.Values
		rec, err := findOrNew(app, "equipos", "modelo", NormalizeCodigo(v["modelo"]))
		if err != nil {
			return err
		}
		rec.Set("nombre", v["nombre"])
		rec.Set("descripcion", v["descripcion"])
		rec.Set("sistema", v["sistema"])
		for _, col := range []string{"capacidad", "mca", "mfa"} {
			rec.Set(col, ParseQuantity(v[col]).InexactFloat64())
		}
		return app.Save(rec)
	}
}

// ruleUnits groups rule rows by origin in first-seen order. Repeated
// targets within an origin are summed.
func ruleUnits(kind RuleKind, originCol string, rows []CatalogRow) []importUnit {
	var order []string
	groups := make(map[string][]CatalogRow)
	for _, r := range rows {
		origin := NormalizeCodigo(r.Values[originCol])
		if _, ok := groups[origin]; !ok {
			order = append(order, origin)
		}
		groups[origin] = append(groups[origin], r)
	}

	units := make([]importUnit, 0, len(order))
	for _, origin := range order {
		group := groups[origin]
		var lines []RuleLine
		index := make(map[string]int)
		for _, r := range group {
			code := NormalizeCodigo(r.Values["material"])
			qty := ParseQuantity(r.Values["cantidad"])
			if i, ok := index[code]; ok {
				lines[i].Cantidad = lines[i].Cantidad.Add(qty)
				continue
			}
			index[code] = len(lines)
			lines = append(lines, RuleLine{Codigo: code, Cantidad: qty})
		}
		units = append(units, importUnit{
			rows: group,
			save: func(app core.App) error {
				_, err := SaveRule(app, kind, origin, lines)
				return err
			},
		})
	}
	return units
}
