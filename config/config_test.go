package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Cotizacion.Prefijo != "COT" {
		t.Errorf("prefijo = %q, want COT", c.Cotizacion.Prefijo)
	}
	if c.Cotizacion.Organizacion != "GS-I" {
		t.Errorf("organizacion = %q, want GS-I", c.Cotizacion.Organizacion)
	}
	if got := c.Markup().String(); got != "0.3" {
		t.Errorf("markup = %s, want 0.3", got)
	}
	if c.Expansion.FactorIteraciones != 10 {
		t.Errorf("factor = %d, want 10", c.Expansion.FactorIteraciones)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cotizador.yaml")
	content := `cotizacion:
  prefijo: PRE
  markup_default: 0.25
expansion:
  factor_iteraciones: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Cotizacion.Prefijo != "PRE" {
		t.Errorf("prefijo = %q, want PRE", c.Cotizacion.Prefijo)
	}
	if got := c.Markup().String(); got != "0.25" {
		t.Errorf("markup = %s, want 0.25", got)
	}
	if c.Expansion.FactorIteraciones != 4 {
		t.Errorf("factor = %d, want 4", c.Expansion.FactorIteraciones)
	}
	// untouched keys keep defaults
	if c.Corrida.Prefijo != "COR" {
		t.Errorf("corrida prefijo = %q, want COR", c.Corrida.Prefijo)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COTIZADOR_COTIZACION_ORGANIZACION", "XX")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Cotizacion.Organizacion != "XX" {
		t.Errorf("organizacion = %q, want XX", c.Cotizacion.Organizacion)
	}
}
