package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"cotizador/config"
)

var (
	ErrCorridaNotFound    = errors.New("corrida not found")
	ErrCotizacionNotFound = errors.New("cotizacion not found")
	ErrDuplicateCorrida   = errors.New("corrida name already exists")
)

// QuotationError wraps a failed quotation write with what was computed.
type QuotationError struct {
	Nombre     string
	Materiales map[string]MaterialCotizado
	Err        error
}

func (e *QuotationError) Error() string {
	return fmt.Sprintf("cotizacion %q (%d materiales): %v", e.Nombre, len(e.Materiales), e.Err)
}

func (e *QuotationError) Unwrap() error { return e.Err }

// ProyectoDatos is the descriptive header shared by runs and quotations.
type ProyectoDatos struct {
	Cliente            string `json:"cliente"`
	DireccionProyecto  string `json:"direccion_proyecto"`
	Descripcion        string `json:"descripcion"`
	IngenieroEncargado string `json:"ingeniero_encargado"`
}

// CorridaDatos is the payload stored on a run.
type CorridaDatos struct {
	ProyectoDatos
	ExpansionInput
}

// CotizacionDatos is the payload stored on a quotation row.
type CotizacionDatos struct {
	ProyectoDatos
	Materiales map[string]MaterialCotizado `json:"materiales"`
}

// CorridaInput is a validated request to create a run.
type CorridaInput struct {
	Nombre string
	Datos  CorridaDatos
	// Markup overrides the configured default when set.
	Markup *decimal.Decimal
}

func (in CorridaInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Nombre, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Markup, validation.By(func(value any) error {
			m, _ := value.(*decimal.Decimal)
			if m != nil && m.IsNegative() {
				return errors.New("must not be negative")
			}
			return nil
		})),
	)
}

// EditInput is a quotation edit: per-family markups and submitted quantities.
type EditInput struct {
	MarkupPorFamilia map[string]decimal.Decimal
	// Materiales replace stored quantities; zero removes the line.
	Materiales map[string]decimal.Decimal
}

func (in EditInput) Validate() error {
	for fam, m := range in.MarkupPorFamilia {
		if NormalizeFamilia(fam) == "" {
			return validation.Errors{"markup_familias": errors.New("family must not be blank")}
		}
		if m.IsNegative() {
			return validation.Errors{"markup_familias": fmt.Errorf("%s: must not be negative", fam)}
		}
	}
	return nil
}

// CotizacionResult is the outcome of a generation or an edit.
type CotizacionResult struct {
	Record      *core.Record
	Datos       CotizacionDatos
	Warnings    []Warning
	Reutilizado bool
}

// Cotizador runs the quotation lifecycle against the app's collections.
type Cotizador struct {
	App    core.App
	Config config.Config
	Now    func() time.Time
}

func NewCotizador(app core.App, cfg config.Config) *Cotizador {
	return &Cotizador{App: app, Config: cfg, Now: time.Now}
}

func (c *Cotizador) corridaNumbering() Numbering {
	return Numbering{
		Collection:   "corridas",
		Prefijo:      c.Config.Corrida.Prefijo,
		Organizacion: c.Config.Cotizacion.Organizacion,
		Reintentos:   c.Config.Cotizacion.Reintentos,
	}
}

func (c *Cotizador) cotizacionNumbering() Numbering {
	return Numbering{
		Collection:   "cotizaciones",
		Prefijo:      c.Config.Cotizacion.Prefijo,
		Organizacion: c.Config.Cotizacion.Organizacion,
		Reintentos:   c.Config.Cotizacion.Reintentos,
		Scope:        dbx.HashExp{"revision": 0},
	}
}

func (c *Cotizador) expander(catalog *Catalog, rules Rules) *Expander {
	return &Expander{
		Catalog:           catalog,
		Rules:             rules,
		FactorIteraciones: c.Config.Expansion.FactorIteraciones,
	}
}

// CreateCorrida validates and stores a new run with its own correlative.
func (c *Cotizador) CreateCorrida(in CorridaInput) (*core.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	markup := c.Config.Markup()
	if in.Markup != nil {
		markup = *in.Markup
	}
	if in.Datos.Equipos == nil {
		in.Datos.Equipos = map[string]int{}
	}
	if in.Datos.Tuberias == nil {
		in.Datos.Tuberias = map[string]decimal.Decimal{}
	}

	var record *core.Record
	err := c.App.RunInTransaction(func(txApp core.App) error {
		if _, err := txApp.FindFirstRecordByData("corridas", "nombre", in.Nombre); err == nil {
			return fmt.Errorf("%q: %w", in.Nombre, ErrDuplicateCorrida)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check corrida name: %w", err)
		}

		col, err := txApp.FindCollectionByNameOrId("corridas")
		if err != nil {
			return fmt.Errorf("find corridas collection: %w", err)
		}
		record = core.NewRecord(col)
		record.Set("nombre", in.Nombre)
		record.Set("markup", markup.InexactFloat64())
		record.Set("datos", in.Datos)

		return saveWithCorrelativo(txApp, record, c.corridaNumbering(), in.Nombre, c.Now())
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// saveWithCorrelativo allocates a correlative and saves, retrying with the
// next free number when the unique index rejects a racing duplicate.
func saveWithCorrelativo(app core.App, record *core.Record, n Numbering, nombre string, now time.Time) error {
	attempts := max(n.Reintentos, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		correlativo, err := n.Next(app, nombre, now)
		if err != nil {
			return err
		}
		record.Set("correlativo", correlativo)
		if record.Collection().Fields.GetByName("correlativo_base") != nil {
			record.Set("correlativo_base", correlativo)
		}
		lastErr = app.Save(record)
		if lastErr == nil {
			return nil
		}
		if !isUniqueViolation(lastErr) {
			return fmt.Errorf("save %s: %w", n.Collection, lastErr)
		}
	}
	return fmt.Errorf("save %s: %w", n.Collection, errors.Join(ErrCorrelativoAgotado, lastErr))
}

func (c *Cotizador) findCorrida(app core.App, id string) (*core.Record, CorridaDatos, error) {
	var datos CorridaDatos
	corrida, err := app.FindRecordById("corridas", id)
	if err != nil {
		return nil, datos, fmt.Errorf("%s: %w", id, ErrCorridaNotFound)
	}
	if corrida.GetString("datos") != "" {
		if err := corrida.UnmarshalJSONField("datos", &datos); err != nil {
			return nil, datos, fmt.Errorf("decode corrida %s datos: %w", id, err)
		}
	}
	return corrida, datos, nil
}

// ExpandCorrida expands and prices a run without writing anything.
func (c *Cotizador) ExpandCorrida(corridaID string) (*CotizacionDatos, []Warning, error) {
	corrida, datos, err := c.findCorrida(c.App, corridaID)
	if err != nil {
		return nil, nil, err
	}
	payload, warns, err := c.priceCorrida(c.App, corrida, datos)
	if err != nil {
		return nil, nil, err
	}
	return payload, warns, nil
}

func (c *Cotizador) priceCorrida(app core.App, corrida *core.Record, datos CorridaDatos) (*CotizacionDatos, []Warning, error) {
	catalog, err := LoadCatalog(app)
	if err != nil {
		return nil, nil, err
	}
	rules, err := LoadRules(app)
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()
	exp, err := c.expander(catalog, rules).Expand(datos.ExpansionInput)
	observeExpansion(exp, err, time.Since(started))
	if err != nil {
		return nil, nil, fmt.Errorf("expand corrida %s: %w", corrida.Id, err)
	}

	policy := MarkupPolicy{Default: decimal.NewFromFloat(corrida.GetFloat("markup"))}
	materiales, priceWarns := PriceMaterials(exp.Cantidades, catalog, policy)
	return &CotizacionDatos{
		ProyectoDatos: datos.ProyectoDatos,
		Materiales:    materiales,
	}, append(exp.Warnings, priceWarns...), nil
}

// GenerateCotizacion expands and prices a run and stores it as the run's
// first-generation quotation. A run that already has one gets its payload
// replaced and keeps its correlative.
func (c *Cotizador) GenerateCotizacion(corridaID string) (*CotizacionResult, error) {
	result := &CotizacionResult{}
	err := c.App.RunInTransaction(func(txApp core.App) error {
		corrida, datos, err := c.findCorrida(txApp, corridaID)
		if err != nil {
			return err
		}
		payload, warns, err := c.priceCorrida(txApp, corrida, datos)
		if err != nil {
			return err
		}
		nombre := corrida.GetString("nombre")
		result.Datos = *payload
		result.Warnings = warns

		record, err := txApp.FindFirstRecordByFilter("cotizaciones",
			"corrida = {:corrida} && revision = 0", dbx.Params{"corrida": corrida.Id})
		switch {
		case err == nil:
			result.Reutilizado = true
		case errors.Is(err, sql.ErrNoRows):
			col, err := txApp.FindCollectionByNameOrId("cotizaciones")
			if err != nil {
				return fmt.Errorf("find cotizaciones collection: %w", err)
			}
			record = core.NewRecord(col)
			record.Set("corrida", corrida.Id)
			record.Set("revision", 0)
		default:
			return fmt.Errorf("find cotizacion for corrida %s: %w", corrida.Id, err)
		}

		record.Set("nombre", nombre)
		record.Set("datos", payload)

		if result.Reutilizado {
			err = txApp.Save(record)
		} else {
			err = saveWithCorrelativo(txApp, record, c.cotizacionNumbering(), nombre, c.Now())
		}
		if err != nil {
			return &QuotationError{Nombre: nombre, Materiales: payload.Materiales, Err: err}
		}
		result.Record = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	cotizacionesGeneradas.Inc()
	logWarnings(c.App, "cotizacion", result.Warnings)
	c.App.Logger().Info("cotizacion generada",
		"correlativo", result.Record.GetString("correlativo"),
		"materiales", len(result.Datos.Materiales),
		"reutilizado", result.Reutilizado,
	)
	return result, nil
}

// EditCotizacion reprices a quotation with submitted quantities and
// per-family markups and stores the result as a new revision row.
func (c *Cotizador) EditCotizacion(cotizacionID string, in EditInput) (*CotizacionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	result := &CotizacionResult{}
	err := c.App.RunInTransaction(func(txApp core.App) error {
		src, err := txApp.FindRecordById("cotizaciones", cotizacionID)
		if err != nil {
			return fmt.Errorf("%s: %w", cotizacionID, ErrCotizacionNotFound)
		}
		var datos CotizacionDatos
		if src.GetString("datos") != "" {
			if err := src.UnmarshalJSONField("datos", &datos); err != nil {
				return fmt.Errorf("decode cotizacion %s datos: %w", src.Id, err)
			}
		}

		cantidades := make(map[string]decimal.Decimal, len(datos.Materiales))
		for code, m := range datos.Materiales {
			cantidades[code] = m.Cantidad
		}
		for code, q := range in.Materiales {
			code = NormalizeCodigo(code)
			if !q.IsPositive() {
				delete(cantidades, code)
				continue
			}
			cantidades[code] = q
		}

		catalog, err := LoadCatalog(txApp)
		if err != nil {
			return err
		}
		policy := MarkupPolicy{Default: c.Config.Markup(), PorFamilia: map[string]decimal.Decimal{}}
		if corrida, err := txApp.FindRecordById("corridas", src.GetString("corrida")); err == nil {
			policy.Default = decimal.NewFromFloat(corrida.GetFloat("markup"))
		}
		for fam, m := range in.MarkupPorFamilia {
			policy.PorFamilia[NormalizeFamilia(fam)] = m
		}
		materiales, warns := PriceMaterials(cantidades, catalog, policy)

		payload := CotizacionDatos{ProyectoDatos: datos.ProyectoDatos, Materiales: materiales}
		nombre := src.GetString("nombre")
		result.Datos = payload
		result.Warnings = warns

		base := src.GetString("correlativo_base")
		if base == "" {
			base, _ = SplitRevision(src.GetString("correlativo"))
		}
		next, err := nextRevision(txApp, base)
		if err != nil {
			return &QuotationError{Nombre: nombre, Materiales: materiales, Err: err}
		}

		record := core.NewRecord(src.Collection())
		record.Set("nombre", nombre)
		record.Set("corrida", src.GetString("corrida"))
		record.Set("correlativo", RevisionCorrelativo(base, next))
		record.Set("correlativo_base", base)
		record.Set("revision", next)
		record.Set("markup_familias", policy.PorFamilia)
		record.Set("datos", payload)
		if err := txApp.Save(record); err != nil {
			return &QuotationError{Nombre: nombre, Materiales: materiales, Err: err}
		}
		result.Record = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	revisionesCreadas.Inc()
	logWarnings(c.App, "revision", result.Warnings)
	c.App.Logger().Info("revision de cotizacion creada",
		"correlativo", result.Record.GetString("correlativo"),
		"materiales", len(result.Datos.Materiales),
	)
	return result, nil
}

// nextRevision returns 1 + the highest revision sharing base.
func nextRevision(app core.App, base string) (int, error) {
	latest, err := app.FindRecordsByFilter("cotizaciones",
		"correlativo_base = {:base}", "-revision", 1, 0, dbx.Params{"base": base})
	if err != nil {
		return 0, fmt.Errorf("find revisions of %s: %w", base, err)
	}
	if len(latest) == 0 {
		return 1, nil
	}
	return latest[0].GetInt("revision") + 1, nil
}

// LoadCotizacionDatos decodes a quotation's stored payload.
func LoadCotizacionDatos(app core.App, cotizacionID string) (*core.Record, *CotizacionDatos, error) {
	record, err := app.FindRecordById("cotizaciones", cotizacionID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cotizacionID, ErrCotizacionNotFound)
	}
	var datos CotizacionDatos
	if record.GetString("datos") != "" {
		if err := record.UnmarshalJSONField("datos", &datos); err != nil {
			return nil, nil, fmt.Errorf("decode cotizacion %s datos: %w", cotizacionID, err)
		}
	}
	return record, &datos, nil
}

func logWarnings(app core.App, area string, warns []Warning) {
	for _, w := range warns {
		app.Logger().Warn(area+": "+w.Motivo, "codigo", w.Codigo, "origen", w.Origen)
	}
}
