package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"cotizador/config"
	"cotizador/services"
)

type corridaRequest struct {
	Nombre string           `json:"nombre"`
	Markup *decimal.Decimal `json:"markup"`
	Datos  corridaDatosRaw  `json:"datos"`
}

// corridaDatosRaw accepts quantities as typed by users: strings, comma
// decimals or numbers. Unparsable entries are dropped.
type corridaDatosRaw struct {
	services.ProyectoDatos
	Equipos  map[string]any `json:"equipos"`
	Tuberias map[string]any `json:"tuberias"`
}

func (d corridaDatosRaw) parse() services.CorridaDatos {
	return services.CorridaDatos{
		ProyectoDatos: d.ProyectoDatos,
		ExpansionInput: services.ExpansionInput{
			Equipos:  services.ParseUnits(d.Equipos),
			Tuberias: services.ParseQuantities(d.Tuberias),
		},
	}
}

type corridaResponse struct {
	ID          string                `json:"id"`
	Nombre      string                `json:"nombre"`
	Correlativo string                `json:"correlativo"`
	Markup      float64               `json:"markup"`
	Datos       services.CorridaDatos `json:"datos"`
}

type cotizacionResponse struct {
	ID          string                   `json:"id"`
	Nombre      string                   `json:"nombre"`
	Correlativo string                   `json:"correlativo"`
	Revision    int                      `json:"revision"`
	Reutilizado bool                     `json:"reutilizado"`
	Total       decimal.Decimal          `json:"total"`
	Datos       services.CotizacionDatos `json:"datos"`
	Warnings    []services.Warning       `json:"warnings"`
}

func newCotizacionResponse(res *services.CotizacionResult) cotizacionResponse {
	warns := res.Warnings
	if warns == nil {
		warns = []services.Warning{}
	}
	return cotizacionResponse{
		ID:          res.Record.Id,
		Nombre:      res.Record.GetString("nombre"),
		Correlativo: res.Record.GetString("correlativo"),
		Revision:    res.Record.GetInt("revision"),
		Reutilizado: res.Reutilizado,
		Total:       services.CalcTotal(res.Datos.Materiales),
		Datos:       res.Datos,
		Warnings:    warns,
	}
}

// HandleCreateCorrida creates a run from captured equipment and pipe quantities.
func HandleCreateCorrida(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req corridaRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		datos := req.Datos.parse()
		record, err := services.NewCotizador(app, cfg).CreateCorrida(services.CorridaInput{
			Nombre: req.Nombre,
			Datos:  datos,
			Markup: req.Markup,
		})
		if err != nil {
			return writeError(e, "create_corrida", err)
		}

		return e.JSON(http.StatusCreated, corridaResponse{
			ID:          record.Id,
			Nombre:      record.GetString("nombre"),
			Correlativo: record.GetString("correlativo"),
			Markup:      record.GetFloat("markup"),
			Datos:       datos,
		})
	}
}

// HandleExpandCorrida returns the priced expansion of a run without saving it.
func HandleExpandCorrida(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		corridaID := e.Request.PathValue("id")
		if corridaID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing corrida ID")
		}

		datos, warns, err := services.NewCotizador(app, cfg).ExpandCorrida(corridaID)
		if err != nil {
			return writeError(e, "expand_corrida", err)
		}
		if warns == nil {
			warns = []services.Warning{}
		}
		return e.JSON(http.StatusOK, map[string]any{
			"datos":    datos,
			"total":    services.CalcTotal(datos.Materiales),
			"warnings": warns,
		})
	}
}

// HandleGenerateCotizacion generates or regenerates a run's quotation.
func HandleGenerateCotizacion(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		corridaID := e.Request.PathValue("id")
		if corridaID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing corrida ID")
		}

		res, err := services.NewCotizador(app, cfg).GenerateCotizacion(corridaID)
		if err != nil {
			return writeError(e, "generate_cotizacion", err)
		}

		status := http.StatusCreated
		if res.Reutilizado {
			status = http.StatusOK
		}
		return e.JSON(status, newCotizacionResponse(res))
	}
}
