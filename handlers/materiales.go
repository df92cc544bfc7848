package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/services"
)

// HandleListMateriales lists catalog materials, optionally filtered by
// ?sistema=VRF|CHW.
func HandleListMateriales(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		materiales, err := services.ListMateriales(app, e.Request.URL.Query().Get("sistema"))
		if err != nil {
			return writeError(e, "list_materiales", err)
		}
		return e.JSON(http.StatusOK, materiales)
	}
}

// HandleActualizarCostos bulk-updates unit costs from a {codigo: costo} map.
func HandleActualizarCostos(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var costos map[string]any
		if err := e.BindBody(&costos); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		n, err := services.ActualizarCostos(app, costos)
		if err != nil {
			return writeError(e, "actualizar_costos", err)
		}
		return e.JSON(http.StatusOK, map[string]int{"actualizados": n})
	}
}

// HandleOpciones returns dropdown options for catalog forms.
func HandleOpciones() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, services.LoadOpciones())
	}
}
