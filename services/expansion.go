package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultFactorIteraciones scales the pop limit when none is configured.
const DefaultFactorIteraciones = 10

// ExpansionInput is the raw content of a corrida: equipment units and
// direct material quantities.
type ExpansionInput struct {
	Equipos  map[string]int             `json:"equipos"`
	Tuberias map[string]decimal.Decimal `json:"tuberias"`
}

// Warning flags an input or rule line that was skipped or priced at zero.
type Warning struct {
	Codigo string `json:"codigo"`
	Origen string `json:"origen,omitempty"`
	Motivo string `json:"motivo"`
}

func (w Warning) String() string {
	if w.Origen != "" {
		return fmt.Sprintf("%s (desde %s): %s", w.Codigo, w.Origen, w.Motivo)
	}
	return fmt.Sprintf("%s: %s", w.Codigo, w.Motivo)
}

const (
	motivoEquipoDesconocido   = "equipo no existe en el catálogo"
	motivoMaterialDesconocido = "material no existe en el catálogo"
	motivoSinRegla            = "equipo sin regla de materiales"
)

// ExpansionResult is the consolidated materials list of one expansion.
type ExpansionResult struct {
	Cantidades  map[string]decimal.Decimal
	Warnings    []Warning
	Iteraciones int
}

// RuleCycleError is returned when the material rules reachable from the
// input feed back into themselves.
type RuleCycleError struct {
	// Chain is the code path of a cycle, first code repeated at the end.
	// Empty only when the pop limit was hit.
	Chain       []string
	Iteraciones int
}

func (e *RuleCycleError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("material rule expansion exceeded %d iterations", e.Iteraciones)
	}
	return "material rule cycle: " + strings.Join(e.Chain, " -> ")
}

// Expander resolves equipment and material rules against a catalog.
type Expander struct {
	Catalog *Catalog
	Rules   Rules
	// FactorIteraciones multiplies the size of the reachable rule graph to
	// bound pops. Zero means DefaultFactorIteraciones.
	FactorIteraciones int
}

// Expand applies each equipment rule once, then material rules in
// topological order so every code expands exactly once. A cycle among the
// reachable material rules is an error. Codes missing from the
// catalog are skipped with a warning.
func (x *Expander) Expand(in ExpansionInput) (*ExpansionResult, error) {
	w := newWarnings()
	acc := make(map[string]decimal.Decimal)

	for _, code := range sortedKeys(in.Tuberias) {
		qty := in.Tuberias[code]
		if !qty.IsPositive() {
			continue
		}
		if _, ok := x.Catalog.Material(code); !ok {
			w.add(Warning{Codigo: code, Motivo: motivoMaterialDesconocido})
			continue
		}
		code = NormalizeCodigo(code)
		acc[code] = acc[code].Add(qty)
	}

	for _, code := range sortedKeys(in.Equipos) {
		units := in.Equipos[code]
		if units <= 0 {
			continue
		}
		if _, ok := x.Catalog.Equipo(code); !ok {
			w.add(Warning{Codigo: code, Motivo: motivoEquipoDesconocido})
			continue
		}
		lines := x.Rules.EquipoMaterial.Lookup(code)
		if len(lines) == 0 {
			w.add(Warning{Codigo: code, Motivo: motivoSinRegla})
			continue
		}
		n := decimal.NewFromInt(int64(units))
		for _, l := range lines {
			if _, ok := x.Catalog.Material(l.Codigo); !ok {
				w.add(Warning{Codigo: l.Codigo, Origen: code, Motivo: motivoMaterialDesconocido})
				continue
			}
			add := l.Cantidad.Mul(n)
			if !add.IsPositive() {
				continue
			}
			acc[l.Codigo] = acc[l.Codigo].Add(add)
		}
	}

	seeds := sortedKeys(acc)
	if chain := x.findCycle(seeds); len(chain) > 0 {
		return nil, &RuleCycleError{Chain: chain}
	}

	order, edges := x.topoOrder(seeds)
	limit := x.factor() * (edges + len(order) + 1)

	pops := 0
	for _, code := range order {
		if pops >= limit {
			return nil, &RuleCycleError{Iteraciones: pops}
		}
		pops++

		qty := acc[code]
		if !qty.IsPositive() {
			continue
		}
		for _, l := range x.Rules.MaterialMaterial.Lookup(code) {
			if _, ok := x.Catalog.Material(l.Codigo); !ok {
				w.add(Warning{Codigo: l.Codigo, Origen: code, Motivo: motivoMaterialDesconocido})
				continue
			}
			add := l.Cantidad.Mul(qty)
			if !add.IsPositive() {
				continue
			}
			acc[l.Codigo] = acc[l.Codigo].Add(add)
		}
	}

	for code, q := range acc {
		if !q.IsPositive() {
			delete(acc, code)
		}
	}
	return &ExpansionResult{Cantidades: acc, Warnings: w.list, Iteraciones: pops}, nil
}

func (x *Expander) factor() int {
	if x.FactorIteraciones > 0 {
		return x.FactorIteraciones
	}
	return DefaultFactorIteraciones
}

// expandsInto returns the catalog targets code feeds with a positive
// quantity.
func (x *Expander) expandsInto(code string) []string {
	var out []string
	for _, l := range x.Rules.MaterialMaterial.Lookup(code) {
		if !l.Cantidad.IsPositive() {
			continue
		}
		if _, ok := x.Catalog.Material(l.Codigo); !ok {
			continue
		}
		out = append(out, l.Codigo)
	}
	return out
}

// topoOrder lists every code reachable from seeds so that each code comes
// after all of its origins, and counts the rule edges between them. The
// reachable graph must be acyclic.
func (x *Expander) topoOrder(seeds []string) ([]string, int) {
	reach := make(map[string]bool, len(seeds))
	stack := append([]string{}, seeds...)
	for _, code := range seeds {
		reach[code] = true
	}
	indeg := make(map[string]int)
	edges := 0
	for len(stack) > 0 {
		code := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, to := range x.expandsInto(code) {
			indeg[to]++
			edges++
			if !reach[to] {
				reach[to] = true
				stack = append(stack, to)
			}
		}
	}

	var ready []string
	for code := range reach {
		if indeg[code] == 0 {
			ready = append(ready, code)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(reach))
	for len(ready) > 0 {
		code := ready[0]
		ready = ready[1:]
		order = append(order, code)
		var freed []string
		for _, to := range x.expandsInto(code) {
			indeg[to]--
			if indeg[to] == 0 {
				freed = append(freed, to)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
	}
	return order, edges
}

// findCycle searches the positive material rule graph, starting from the
// pending codes in order, for a cycle and returns it as a closed chain.
func (x *Expander) findCycle(pending []string) []string {
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[string]int)
	var stack []string
	var cycle []string

	var visit func(code string) bool
	visit = func(code string) bool {
		state[code] = inStack
		stack = append(stack, code)
		for _, to := range x.expandsInto(code) {
			switch state[to] {
			case inStack:
				for i, c := range stack {
					if c == to {
						cycle = append(append([]string{}, stack[i:]...), to)
						return true
					}
				}
			case unvisited:
				if visit(to) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[code] = done
		return false
	}

	starts := append([]string{}, pending...)
	sort.Strings(starts)
	for _, code := range starts {
		if state[code] == unvisited && visit(code) {
			return cycle
		}
	}
	return nil
}

// warnings collects unique warnings in first-seen order.
type warnings struct {
	seen map[Warning]bool
	list []Warning
}

func newWarnings() *warnings {
	return &warnings{seen: make(map[Warning]bool)}
}

func (w *warnings) add(warn Warning) {
	if w.seen[warn] {
		return
	}
	w.seen[warn] = true
	w.list = append(w.list, warn)
}
