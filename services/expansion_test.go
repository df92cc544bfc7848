package services

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog(codes ...string) *Catalog {
	mats := make([]Material, 0, len(codes))
	for _, c := range codes {
		mats = append(mats, Material{Codigo: c, Nombre: c, Familia: "TUBERIA", CostoUnitario: dec("1")})
	}
	return NewCatalog([]Equipo{{Modelo: "E"}, {Modelo: "F"}}, mats)
}

func line(code, qty string) RuleLine {
	return RuleLine{Codigo: code, Cantidad: dec(qty)}
}

func assertQuantities(t *testing.T, got map[string]decimal.Decimal, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d codes %v, want %d %v", len(got), got, len(want), want)
	}
	for code, w := range want {
		g, ok := got[code]
		if !ok {
			t.Errorf("missing %s", code)
			continue
		}
		if !g.Equal(dec(w)) {
			t.Errorf("%s = %s, want %s", code, g, w)
		}
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		in    ExpansionInput
		want  map[string]string
	}{
		{
			name: "empty input",
			in:   ExpansionInput{},
			want: map[string]string{},
		},
		{
			name:  "material rule doubles",
			rules: Rules{MaterialMaterial: RuleSet{"X": {line("Y", "2")}}},
			in:    ExpansionInput{Tuberias: map[string]decimal.Decimal{"X": dec("10")}},
			want:  map[string]string{"X": "10", "Y": "20"},
		},
		{
			name:  "equipment rule applied per unit",
			rules: Rules{EquipoMaterial: RuleSet{"E": {line("M", "5")}}},
			in:    ExpansionInput{Equipos: map[string]int{"E": 3}},
			want:  map[string]string{"M": "15"},
		},
		{
			name: "transitive chain",
			rules: Rules{MaterialMaterial: RuleSet{
				"A": {line("B", "2")},
				"B": {line("C", "0.5")},
			}},
			in:   ExpansionInput{Tuberias: map[string]decimal.Decimal{"A": dec("4")}},
			want: map[string]string{"A": "4", "B": "8", "C": "4"},
		},
		{
			name: "diamond accumulates both paths",
			rules: Rules{MaterialMaterial: RuleSet{
				"A": {line("B", "1"), line("C", "1")},
				"B": {line("D", "1")},
				"C": {line("D", "2")},
			}},
			in:   ExpansionInput{Tuberias: map[string]decimal.Decimal{"A": dec("1")}},
			want: map[string]string{"A": "1", "B": "1", "C": "1", "D": "3"},
		},
		{
			name: "late contribution to already expanded code",
			rules: Rules{MaterialMaterial: RuleSet{
				"A": {line("B", "1"), line("C", "1")},
				"C": {line("B", "1")},
				"B": {line("D", "10")},
			}},
			in:   ExpansionInput{Tuberias: map[string]decimal.Decimal{"A": dec("1")}},
			want: map[string]string{"A": "1", "B": "2", "C": "1", "D": "20"},
		},
		{
			name: "equipment and direct quantities merge",
			rules: Rules{
				EquipoMaterial:   RuleSet{"E": {line("X", "1")}},
				MaterialMaterial: RuleSet{"X": {line("Y", "3")}},
			},
			in: ExpansionInput{
				Equipos:  map[string]int{"E": 2},
				Tuberias: map[string]decimal.Decimal{"X": dec("1.5")},
			},
			want: map[string]string{"X": "3.5", "Y": "10.5"},
		},
		{
			name:  "zero and negative inputs ignored",
			rules: Rules{EquipoMaterial: RuleSet{"E": {line("M", "5")}}},
			in: ExpansionInput{
				Equipos:  map[string]int{"E": 0, "F": -1},
				Tuberias: map[string]decimal.Decimal{"X": dec("0"), "Y": dec("-3")},
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := &Expander{Catalog: testCatalog("A", "B", "C", "D", "M", "X", "Y"), Rules: tt.rules}
			got, err := x.Expand(tt.in)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			assertQuantities(t, got.Cantidades, tt.want)
		})
	}
}

func TestExpand_Idempotent(t *testing.T) {
	x := &Expander{
		Catalog: testCatalog("A", "B", "C", "M"),
		Rules: Rules{
			EquipoMaterial:   RuleSet{"E": {line("A", "2"), line("M", "1")}},
			MaterialMaterial: RuleSet{"A": {line("B", "3")}, "B": {line("C", "0.25")}},
		},
	}
	in := ExpansionInput{
		Equipos:  map[string]int{"E": 4, "F": 1},
		Tuberias: map[string]decimal.Decimal{"B": dec("2"), "ZZ": dec("1")},
	}

	first, err := x.Expand(in)
	if err != nil {
		t.Fatalf("first Expand() error = %v", err)
	}
	second, err := x.Expand(in)
	if err != nil {
		t.Fatalf("second Expand() error = %v", err)
	}

	want := map[string]string{}
	for k, v := range first.Cantidades {
		want[k] = v.String()
	}
	assertQuantities(t, second.Cantidades, want)
	if !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Errorf("warnings differ: %v vs %v", first.Warnings, second.Warnings)
	}
}

func TestExpand_UnknownCodesWarn(t *testing.T) {
	x := &Expander{
		Catalog: testCatalog("M"),
		Rules: Rules{
			EquipoMaterial:   RuleSet{"E": {line("M", "1"), line("GHOST", "2")}},
			MaterialMaterial: RuleSet{"M": {line("GHOST", "1")}},
		},
	}
	got, err := x.Expand(ExpansionInput{
		Equipos:  map[string]int{"E": 1, "F": 1, "NOPE": 2},
		Tuberias: map[string]decimal.Decimal{"MISSING": dec("1")},
	})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	assertQuantities(t, got.Cantidades, map[string]string{"M": "1"})

	want := []Warning{
		{Codigo: "MISSING", Motivo: motivoMaterialDesconocido},
		{Codigo: "GHOST", Origen: "E", Motivo: motivoMaterialDesconocido},
		{Codigo: "F", Motivo: motivoSinRegla},
		{Codigo: "NOPE", Motivo: motivoEquipoDesconocido},
		{Codigo: "GHOST", Origen: "M", Motivo: motivoMaterialDesconocido},
	}
	if !reflect.DeepEqual(got.Warnings, want) {
		t.Errorf("warnings =\n%v\nwant\n%v", got.Warnings, want)
	}
}

func TestExpand_CycleReturnsRuleCycleError(t *testing.T) {
	x := &Expander{
		Catalog: testCatalog("X", "Y", "Z"),
		Rules: Rules{MaterialMaterial: RuleSet{
			"X": {line("Y", "1")},
			"Y": {line("X", "1")},
		}},
	}
	_, err := x.Expand(ExpansionInput{Tuberias: map[string]decimal.Decimal{"X": dec("1")}})

	var cycleErr *RuleCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected RuleCycleError, got %v", err)
	}
	if len(cycleErr.Chain) != 3 || cycleErr.Chain[0] != cycleErr.Chain[2] {
		t.Errorf("chain = %v, want closed cycle of X and Y", cycleErr.Chain)
	}
}

func TestExpand_UnreachableCycleIgnored(t *testing.T) {
	x := &Expander{
		Catalog: testCatalog("X", "Y", "P", "Q"),
		Rules: Rules{MaterialMaterial: RuleSet{
			"X": {line("Y", "2")},
			"P": {line("Q", "1")},
			"Q": {line("P", "1")},
		}},
	}
	got, err := x.Expand(ExpansionInput{Tuberias: map[string]decimal.Decimal{"X": dec("1")}})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	assertQuantities(t, got.Cantidades, map[string]string{"X": "1", "Y": "2"})
}

// A01..A30 chain, each Ai also feeding B01, and a B01..B30 chain: many
// paths, no cycle. Every code expands once.
func TestExpand_FanInChainExpandsOnce(t *testing.T) {
	var codes []string
	rules := RuleSet{}
	name := func(p string, i int) string { return fmt.Sprintf("%s%02d", p, i) }
	for i := 1; i <= 30; i++ {
		codes = append(codes, name("A", i), name("B", i))
		a := []RuleLine{line("B01", "1")}
		if i < 30 {
			a = append(a, line(name("A", i+1), "1"))
			rules[name("B", i)] = []RuleLine{line(name("B", i+1), "1")}
		}
		rules[name("A", i)] = a
	}
	x := &Expander{Catalog: testCatalog(codes...), Rules: Rules{MaterialMaterial: rules}, FactorIteraciones: 1}

	got, err := x.Expand(ExpansionInput{Tuberias: map[string]decimal.Decimal{"A01": dec("1")}})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got.Iteraciones != 60 {
		t.Errorf("iterations = %d, want 60", got.Iteraciones)
	}
	for _, code := range []string{"A01", "A30"} {
		if !got.Cantidades[code].Equal(dec("1")) {
			t.Errorf("%s = %s, want 1", code, got.Cantidades[code])
		}
	}
	// B01 receives one unit from each of the 30 A codes.
	for _, code := range []string{"B01", "B30"} {
		if !got.Cantidades[code].Equal(dec("30")) {
			t.Errorf("%s = %s, want 30", code, got.Cantidades[code])
		}
	}
}

func TestExpand_SelfLoopIsCycle(t *testing.T) {
	x := &Expander{
		Catalog: testCatalog("X"),
		Rules:   Rules{MaterialMaterial: RuleSet{"X": {line("X", "0.5")}}},
	}
	_, err := x.Expand(ExpansionInput{Tuberias: map[string]decimal.Decimal{"X": dec("1")}})

	var cycleErr *RuleCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected RuleCycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycleErr.Chain, []string{"X", "X"}) {
		t.Errorf("chain = %v, want [X X]", cycleErr.Chain)
	}
}

func TestRuleSetLookup_MissReturnsEmpty(t *testing.T) {
	rs := RuleSet{"A": {line("B", "1")}}
	if got := rs.Lookup("nope"); len(got) != 0 {
		t.Errorf("Lookup(nope) = %v, want empty", got)
	}
	if got := rs.Lookup(" A "); len(got) != 1 {
		t.Errorf("Lookup(' A ') = %v, want 1 line", got)
	}
	var nilSet RuleSet
	if got := nilSet.Lookup("A"); got != nil {
		t.Errorf("nil set Lookup = %v, want nil", got)
	}
}

func TestRuleLineValidate(t *testing.T) {
	if err := line("A", "1").Validate(); err != nil {
		t.Errorf("valid line: %v", err)
	}
	if err := line("", "1").Validate(); err == nil {
		t.Error("blank code should fail")
	}
	if err := line("A", "0").Validate(); err == nil {
		t.Error("zero quantity should fail")
	}
}
