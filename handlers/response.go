package handlers

import (
	"errors"
	"log"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/services"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string   `json:"error"`
	Cadena []string `json:"cadena,omitempty"`

	// Solicitud is the request id of an internal failure.
	Solicitud string `json:"solicitud,omitempty"`
}

// ErrorJSON writes {"error": message} with the given status.
func ErrorJSON(e *core.RequestEvent, statusCode int, message string) error {
	return e.JSON(statusCode, errorBody{Error: message})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validation.Errors
	var verr validation.Error
	var cycle *services.RuleCycleError
	switch {
	case errors.Is(err, services.ErrCorridaNotFound),
		errors.Is(err, services.ErrCotizacionNotFound),
		errors.Is(err, services.ErrObraNotFound),
		errors.Is(err, services.ErrTareaNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateCorrida),
		errors.Is(err, services.ErrCorrelativoAgotado):
		return http.StatusConflict
	case errors.Is(err, services.ErrFechaRequerida),
		errors.As(err, &verrs),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &cycle):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError logs err under area and answers with its mapped status.
// Internal failures get a generic message; client errors echo the cause.
func writeError(e *core.RequestEvent, area string, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		id := GetRequestID(e.Request)
		log.Printf("%s: request %s: %v", area, id, err)
		return e.JSON(status, errorBody{Error: "Something went wrong. Please try again.", Solicitud: id})
	}

	body := errorBody{Error: err.Error()}
	var cycle *services.RuleCycleError
	if errors.As(err, &cycle) {
		body.Cadena = cycle.Chain
	}
	return e.JSON(status, body)
}
