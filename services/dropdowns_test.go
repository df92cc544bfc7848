package services

import (
	"testing"
)

func TestUnidadOptions(t *testing.T) {
	if len(UnidadOptions) == 0 {
		t.Fatal("UnidadOptions should not be empty")
	}

	seen := make(map[string]bool)
	for _, opt := range UnidadOptions {
		if opt == "" {
			t.Error("UnidadOptions contains empty string")
		}
		if seen[opt] {
			t.Errorf("duplicate unidad %q", opt)
		}
		seen[opt] = true
	}
	for _, k := range []string{"un", "m", "kg"} {
		if !seen[k] {
			t.Errorf("expected unidad %q not found", k)
		}
	}
}

func TestFamiliaOptions_AllClassify(t *testing.T) {
	fams := FamiliaOptions()
	if len(fams) == 0 {
		t.Fatal("FamiliaOptions should not be empty")
	}
	if fams[0] != "IZAJE" || fams[len(fams)-1] != "REFRIGERANTE" {
		t.Errorf("families not in template order: %v", fams)
	}
	for _, f := range fams {
		if _, _, ok := ClassifyFamilia(f); !ok {
			t.Errorf("family %q does not classify", f)
		}
	}
}

func TestLoadOpciones(t *testing.T) {
	o := LoadOpciones()
	if len(o.Sistemas) != 2 || o.Sistemas[0] != "VRF" {
		t.Errorf("sistemas = %v", o.Sistemas)
	}
	if len(o.Unidades) != len(UnidadOptions) || len(o.Familias) != len(FamiliaOptions()) {
		t.Errorf("opciones = %+v", o)
	}
}
