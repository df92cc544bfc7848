package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/config"
	"cotizador/testhelpers"
)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// serve runs handler against a JSON request and returns the recorder.
// pathValues are name/value pairs.
func serve(t *testing.T, app *pocketbase.PocketBase, handler func(*core.RequestEvent) error, method, target, body string, pathValues ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// seedVRF creates E → 2×TUB, TUB → 1×ANC with base costs 100 and 10.
func seedVRF(t *testing.T, app *pocketbase.PocketBase) {
	t.Helper()
	testhelpers.CreateTestEquipo(t, app, "E")
	testhelpers.CreateTestMaterial(t, app, "TUB", "TUBERIA", 100)
	testhelpers.CreateTestMaterial(t, app, "ANC", "ANCLAJE", 10)
	testhelpers.CreateTestReglaEquipo(t, app, "E", testhelpers.RuleLine{Codigo: "TUB", Cantidad: 2})
	testhelpers.CreateTestReglaMaterial(t, app, "TUB", testhelpers.RuleLine{Codigo: "ANC", Cantidad: 1})
}

// createCorrida posts a run for E×equipos and returns its id.
func createCorrida(t *testing.T, app *pocketbase.PocketBase, nombre string, equipos int) string {
	t.Helper()
	body := `{"nombre": "` + nombre + `", "datos": {"cliente": "ACME", "equipos": {"E": ` + strconv.Itoa(equipos) + `}}}`
	rec := serve(t, app, HandleCreateCorrida(app, config.Default()), http.MethodPost, "/api/cotizador/corridas", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create corrida: status %d: %s", rec.Code, rec.Body.String())
	}
	var resp corridaResponse
	decodeBody(t, rec, &resp)
	return resp.ID
}

// generateCotizacion posts a generation for corridaID and returns the quotation id.
func generateCotizacion(t *testing.T, app *pocketbase.PocketBase, corridaID string) string {
	t.Helper()
	rec := serve(t, app, HandleGenerateCotizacion(app, config.Default()), http.MethodPost,
		"/api/cotizador/corridas/"+corridaID+"/cotizacion", "", "id", corridaID)
	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		t.Fatalf("generate cotizacion: status %d: %s", rec.Code, rec.Body.String())
	}
	var resp cotizacionResponse
	decodeBody(t, rec, &resp)
	return resp.ID
}
