package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"cotizador/config"
	"cotizador/services"
)

type revisionRequest struct {
	MarkupFamilias map[string]decimal.Decimal `json:"markup_familias"`
	Materiales     map[string]decimal.Decimal `json:"materiales"`
}

// HandleEditCotizacion applies family markups and quantity edits, saving the
// result as the next revision.
func HandleEditCotizacion(app *pocketbase.PocketBase, cfg config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cotizacionID := e.Request.PathValue("id")
		if cotizacionID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing cotizacion ID")
		}

		var req revisionRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		res, err := services.NewCotizador(app, cfg).EditCotizacion(cotizacionID, services.EditInput{
			MarkupPorFamilia: req.MarkupFamilias,
			Materiales:       req.Materiales,
		})
		if err != nil {
			return writeError(e, "edit_cotizacion", err)
		}
		return e.JSON(http.StatusCreated, newCotizacionResponse(res))
	}
}

type obraRequest struct {
	Nombre         string `json:"nombre"`
	FechaInicio    string `json:"fecha_inicio"`
	CentroServicio string `json:"centro_servicio"`
}

type obraResponse struct {
	ID       string             `json:"id"`
	Nombre   string             `json:"nombre"`
	Plan     services.ObraPlan  `json:"plan"`
	Warnings []services.Warning `json:"warnings"`
}

// HandleMaterializeObra turns a quotation into an obra with phases, tasks
// and material requirements.
func HandleMaterializeObra(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cotizacionID := e.Request.PathValue("id")
		if cotizacionID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing cotizacion ID")
		}

		var req obraRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		var inicio time.Time
		if s := strings.TrimSpace(req.FechaInicio); s != "" {
			t, err := time.Parse(time.DateOnly, s)
			if err != nil {
				return ErrorJSON(e, http.StatusBadRequest, "fecha_inicio must be YYYY-MM-DD")
			}
			inicio = t
		}

		res, err := services.MaterializeObra(app, cotizacionID, services.MaterializeInput{
			Nombre:         strings.TrimSpace(req.Nombre),
			FechaInicio:    inicio,
			CentroServicio: req.CentroServicio,
		})
		if err != nil {
			return writeError(e, "materialize_obra", err)
		}

		warns := res.Warnings
		if warns == nil {
			warns = []services.Warning{}
		}
		return e.JSON(http.StatusCreated, obraResponse{
			ID:       res.Obra.Id,
			Nombre:   res.Obra.GetString("nombre"),
			Plan:     res.Plan,
			Warnings: warns,
		})
	}
}
