package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/services"
)

// HandleObraAvance returns the progress tree of an obra.
func HandleObraAvance(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		obraID := e.Request.PathValue("id")
		if obraID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing obra ID")
		}

		avance, err := services.LoadObraAvance(app, obraID)
		if err != nil {
			return writeError(e, "obra_avance", err)
		}
		return e.JSON(http.StatusOK, avance)
	}
}

// HandleTablaMediciones returns the measurement grid of an obra.
func HandleTablaMediciones(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		obraID := e.Request.PathValue("id")
		if obraID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing obra ID")
		}

		tabla, err := services.LoadTablaMediciones(app, obraID)
		if err != nil {
			return writeError(e, "tabla_mediciones", err)
		}
		return e.JSON(http.StatusOK, tabla)
	}
}

type medicionesRequest struct {
	Fecha    string                     `json:"fecha"`
	Entradas []services.MedicionEntrada `json:"entradas"`
}

// HandleRegistrarMediciones stores one day's measurements for an obra.
func HandleRegistrarMediciones(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		obraID := e.Request.PathValue("id")
		if obraID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing obra ID")
		}

		var req medicionesRequest
		if err := e.BindBody(&req); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		n, err := services.RegistrarMediciones(app, obraID, req.Fecha, req.Entradas)
		if err != nil {
			return writeError(e, "registrar_mediciones", err)
		}
		return e.JSON(http.StatusCreated, map[string]int{"registradas": n})
	}
}

// HandleReemplazarRequerimientos replaces a task's material requirements
// with the submitted {material_id: cantidad} map.
func HandleReemplazarRequerimientos(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		tareaID := e.Request.PathValue("id")
		if tareaID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing tarea ID")
		}

		var cantidades map[string]any
		if err := e.BindBody(&cantidades); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		n, err := services.ReemplazarRequerimientos(app, tareaID, cantidades)
		if err != nil {
			return writeError(e, "reemplazar_requerimientos", err)
		}
		return e.JSON(http.StatusOK, map[string]int{"requerimientos": n})
	}
}
