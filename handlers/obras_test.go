package handlers

import (
	"net/http"
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/shopspring/decimal"

	"cotizador/services"
	"cotizador/testhelpers"
)

type obraFixture struct {
	obraID, tareaID, tubID, ancID string
}

// seedObra builds Torre (budget 100) → Mecánica → Instalación needing
// 10 TUB at cost 10.
func seedObra(t *testing.T, app *pocketbase.PocketBase) obraFixture {
	t.Helper()
	tub := testhelpers.CreateTestMaterial(t, app, "TUB", "TUBERIA", 10)
	anc := testhelpers.CreateTestMaterial(t, app, "ANC", "ANCLAJE", 1)
	obra := testhelpers.CreateTestObra(t, app, "Torre", 100)
	fase := testhelpers.CreateTestFase(t, app, obra.Id, "Mecánica", 1, 100)
	tarea := testhelpers.CreateTestTarea(t, app, fase.Id, "Instalación")
	testhelpers.CreateTestRequerimiento(t, app, tarea.Id, tub.Id, 10)
	return obraFixture{obraID: obra.Id, tareaID: tarea.Id, tubID: tub.Id, ancID: anc.Id}
}

func TestHandleRegistrarMediciones_ThenAvance(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	fx := seedObra(t, app)

	body := `{"fecha": "2026-03-02", "entradas": [
		{"tarea": "` + fx.tareaID + `", "material": "` + fx.tubID + `", "cantidad": "3"},
		{"tarea": "` + fx.tareaID + `", "material": "` + fx.tubID + `", "cantidad": 2},
		{"tarea": "` + fx.tareaID + `", "material": "` + fx.tubID + `", "cantidad": 0}
	]}`
	rec := serve(t, app, HandleRegistrarMediciones(app), http.MethodPost, "/", body, "id", fx.obraID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved map[string]int
	decodeBody(t, rec, &saved)
	if saved["registradas"] != 2 {
		t.Errorf("registradas = %d, want 2", saved["registradas"])
	}

	rec = serve(t, app, HandleObraAvance(app), http.MethodGet, "/", "", "id", fx.obraID)
	if rec.Code != http.StatusOK {
		t.Fatalf("avance: expected 200, got %d", rec.Code)
	}
	var avance services.ObraAvance
	decodeBody(t, rec, &avance)

	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"obra avance", avance.AvancePct, 50},
		{"obra costo", avance.CostoEjecutado, 50},
		{"obra ejecutado", avance.PorcentajeEjecutado, 50},
		{"tarea medido", avance.Fases[0].Tareas[0].Medido, 5},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.NewFromInt(c.want)) {
			t.Errorf("%s = %s, want %d", c.name, c.got, c.want)
		}
	}
}

func TestHandleRegistrarMediciones_Errors(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	fx := seedObra(t, app)

	tests := []struct {
		name   string
		obraID string
		body   string
		status int
	}{
		{"missing fecha", fx.obraID, `{"entradas": []}`, http.StatusBadRequest},
		{"bad fecha", fx.obraID, `{"fecha": "02/03/2026"}`, http.StatusBadRequest},
		{"unknown obra", "missing", `{"fecha": "2026-03-02"}`, http.StatusNotFound},
		{"no obra id", "", `{"fecha": "2026-03-02"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, app, HandleRegistrarMediciones(app), http.MethodPost, "/", tt.body, "id", tt.obraID)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	n, _ := app.CountRecords("mediciones_material")
	if n != 0 {
		t.Errorf("expected no measurements saved, got %d", n)
	}
}

func TestHandleTablaMediciones(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	fx := seedObra(t, app)
	testhelpers.CreateTestMedicion(t, app, fx.tareaID, fx.tubID, 4, "2026-03-01")

	rec := serve(t, app, HandleTablaMediciones(app), http.MethodGet, "/", "", "id", fx.obraID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tabla services.TablaMediciones
	decodeBody(t, rec, &tabla)
	if len(tabla.Fechas) != 1 || tabla.Fechas[0] != "2026-03-01" {
		t.Errorf("fechas = %v", tabla.Fechas)
	}
	if len(tabla.Filas) != 1 || tabla.Filas[0].Codigo != "TUB" || !tabla.Filas[0].TotalMedido.Equal(decimal.NewFromInt(4)) {
		t.Errorf("filas = %+v", tabla.Filas)
	}

	rec = serve(t, app, HandleTablaMediciones(app), http.MethodGet, "/", "", "id", "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown obra: expected 404, got %d", rec.Code)
	}
}

func TestHandleReemplazarRequerimientos(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	fx := seedObra(t, app)

	body := `{"` + fx.tubID + `": 0, "` + fx.ancID + `": "12"}`
	rec := serve(t, app, HandleReemplazarRequerimientos(app), http.MethodPut, "/", body, "id", fx.tareaID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	decodeBody(t, rec, &resp)
	if resp["requerimientos"] != 1 {
		t.Errorf("requerimientos = %d, want 1", resp["requerimientos"])
	}

	reqs, err := app.FindAllRecords("requerimientos_material", dbx.HashExp{"tarea": fx.tareaID})
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 1 || reqs[0].GetString("material") != fx.ancID {
		t.Errorf("expected only ANC requirement, got %d records", len(reqs))
	}

	rec = serve(t, app, HandleReemplazarRequerimientos(app), http.MethodPut, "/", `{}`, "id", "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown tarea: expected 404, got %d", rec.Code)
	}
}
