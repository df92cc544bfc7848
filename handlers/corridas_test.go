package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"cotizador/config"
	"cotizador/services"
	"cotizador/testhelpers"
)

func TestHandleCreateCorrida(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleCreateCorrida(app, config.Default())

	rec := serve(t, app, handler, http.MethodPost, "/api/cotizador/corridas",
		`{"nombre": "Torre Norte", "markup": 0.25, "datos": {"cliente": "ACME", "equipos": {"E": 2}, "tuberias": {"TUB": 12.5}}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp corridaResponse
	decodeBody(t, rec, &resp)
	if !strings.HasPrefix(resp.Correlativo, "COR-") || !strings.HasSuffix(resp.Correlativo, "-001-torre-norte") {
		t.Errorf("correlativo = %q", resp.Correlativo)
	}
	if resp.Markup != 0.25 {
		t.Errorf("markup = %v, want 0.25", resp.Markup)
	}
	if resp.Datos.Equipos["E"] != 2 || resp.Datos.Cliente != "ACME" {
		t.Errorf("datos = %+v", resp.Datos)
	}

	rec = serve(t, app, handler, http.MethodPost, "/api/cotizador/corridas", `{"nombre": "Torre Norte"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}
}

func TestHandleCreateCorrida_LooseQuantities(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serve(t, app, HandleCreateCorrida(app, config.Default()), http.MethodPost, "/api/cotizador/corridas",
		`{"nombre": "Galpón", "datos": {"equipos": {"E": "2", "F": "dos"}, "tuberias": {"X": "abc", "Y": "10,5", "Z": 0}}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp corridaResponse
	decodeBody(t, rec, &resp)

	record, err := app.FindRecordById("corridas", resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	var stored services.CorridaDatos
	if err := record.UnmarshalJSONField("datos", &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.Tuberias) != 1 || !stored.Tuberias["Y"].Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("tuberias = %v, want only Y=10.5", stored.Tuberias)
	}
	if len(stored.Equipos) != 1 || stored.Equipos["E"] != 2 {
		t.Errorf("equipos = %v, want only E=2", stored.Equipos)
	}
}

func TestHandleCreateCorrida_BadInput(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleCreateCorrida(app, config.Default())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"nombre": `},
		{"blank name", `{"nombre": ""}`},
		{"negative markup", `{"nombre": "X", "markup": -0.1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, app, handler, http.MethodPost, "/api/cotizador/corridas", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleExpandCorrida(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	seedVRF(t, app)
	corridaID := createCorrida(t, app, "Edificio Sur", 3)

	rec := serve(t, app, HandleExpandCorrida(app, config.Default()), http.MethodGet,
		"/api/cotizador/corridas/"+corridaID+"/expansion", "", "id", corridaID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Datos struct {
			Materiales map[string]struct {
				Cantidad      float64 `json:"cantidad"`
				CostoUnitario float64 `json:"costo_unitario"`
			} `json:"materiales"`
		} `json:"datos"`
		Total    float64 `json:"total"`
		Warnings []any   `json:"warnings"`
	}
	decodeBody(t, rec, &resp)
	tub := resp.Datos.Materiales["TUB"]
	if tub.Cantidad != 6 || tub.CostoUnitario != 130 {
		t.Errorf("TUB = %+v, want 6 @ 130", tub)
	}
	if resp.Total != 858 {
		t.Errorf("total = %v, want 858", resp.Total)
	}

	// dry run saves nothing
	if n, _ := app.CountRecords("cotizaciones"); n != 0 {
		t.Errorf("cotizaciones = %d after expansion, want 0", n)
	}
}

func TestHandleGenerateCotizacion(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	seedVRF(t, app)
	corridaID := createCorrida(t, app, "Edificio Sur", 3)
	handler := HandleGenerateCotizacion(app, config.Default())

	rec := serve(t, app, handler, http.MethodPost, "/", "", "id", corridaID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var first cotizacionResponse
	decodeBody(t, rec, &first)
	if first.Revision != 0 || first.Reutilizado || !strings.HasPrefix(first.Correlativo, "COT-") {
		t.Errorf("first = %+v", first)
	}

	rec = serve(t, app, handler, http.MethodPost, "/", "", "id", corridaID)
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate: expected 200, got %d", rec.Code)
	}
	var second cotizacionResponse
	decodeBody(t, rec, &second)
	if second.ID != first.ID || second.Correlativo != first.Correlativo || !second.Reutilizado {
		t.Errorf("regeneration should reuse the row: %+v", second)
	}

	rec = serve(t, app, handler, http.MethodPost, "/", "", "id", "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing corrida: expected 404, got %d", rec.Code)
	}
}

func TestHandleGenerateCotizacion_Cycle(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestMaterial(t, app, "A", "TUBERIA", 1)
	testhelpers.CreateTestMaterial(t, app, "B", "TUBERIA", 1)
	testhelpers.CreateTestReglaMaterial(t, app, "A", testhelpers.RuleLine{Codigo: "B", Cantidad: 1})
	testhelpers.CreateTestReglaMaterial(t, app, "B", testhelpers.RuleLine{Codigo: "A", Cantidad: 1})

	rec := serve(t, app, HandleCreateCorrida(app, config.Default()), http.MethodPost, "/",
		`{"nombre": "Ciclo", "datos": {"tuberias": {"A": 1}}}`)
	var corrida corridaResponse
	decodeBody(t, rec, &corrida)

	rec = serve(t, app, HandleGenerateCotizacion(app, config.Default()), http.MethodPost, "/", "", "id", corrida.ID)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if len(body.Cadena) == 0 {
		t.Errorf("expected cycle chain in body, got %+v", body)
	}
	if n, _ := app.CountRecords("cotizaciones"); n != 0 {
		t.Errorf("cotizaciones = %d after failed generation, want 0", n)
	}
}
