// Package services provides the expansion, pricing, quotation and project
// progress logic behind the cotizador routes.
package services

import (
	"github.com/shopspring/decimal"
)

// DefaultMarkup is the run-level markup applied when none is configured.
var DefaultMarkup = decimal.RequireFromString("0.30")

const motivoSinCosto = "material sin costo en el catálogo"

// MarkupPolicy resolves the markup factor of a material by family.
type MarkupPolicy struct {
	Default    decimal.Decimal
	PorFamilia map[string]decimal.Decimal
}

// For returns the family override when present, else the default.
func (p MarkupPolicy) For(familia string) decimal.Decimal {
	if m, ok := p.PorFamilia[NormalizeFamilia(familia)]; ok {
		return m
	}
	return p.Default
}

// ApplyMarkup returns base × (1 + markup) rounded to 2 decimals.
func ApplyMarkup(base, markup decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(1).Add(markup)).Round(2)
}

// MaterialCotizado is a priced line of a quotation payload.
type MaterialCotizado struct {
	Cantidad      decimal.Decimal `json:"cantidad"`
	CostoUnitario decimal.Decimal `json:"costo_unitario"`
}

func (m MaterialCotizado) Total() decimal.Decimal {
	return m.Cantidad.Mul(m.CostoUnitario)
}

// PriceMaterials prices each positive quantity with the policy markup.
// Codes missing from the catalog price at zero and are flagged.
func PriceMaterials(cantidades map[string]decimal.Decimal, catalog *Catalog, policy MarkupPolicy) (map[string]MaterialCotizado, []Warning) {
	w := newWarnings()
	out := make(map[string]MaterialCotizado, len(cantidades))
	for _, code := range sortedKeys(cantidades) {
		qty := cantidades[code]
		if !qty.IsPositive() {
			continue
		}
		m, ok := catalog.Material(code)
		if !ok {
			w.add(Warning{Codigo: code, Motivo: motivoMaterialDesconocido})
			out[code] = MaterialCotizado{Cantidad: qty, CostoUnitario: decimal.Zero}
			continue
		}
		if m.CostoUnitario.IsZero() {
			w.add(Warning{Codigo: code, Motivo: motivoSinCosto})
		}
		out[code] = MaterialCotizado{
			Cantidad:      qty,
			CostoUnitario: ApplyMarkup(m.CostoUnitario, policy.For(m.Familia)),
		}
	}
	return out, w.list
}

// QuotationTotals summarizes a priced materials list against its base cost.
type QuotationTotals struct {
	TotalCotizado decimal.Decimal
	TotalCosto    decimal.Decimal
	Margen        decimal.Decimal
	MargenPct     decimal.Decimal
}

// CalcQuotationTotals sums quoted totals and base catalog cost. Unknown
// codes contribute zero cost.
func CalcQuotationTotals(materiales map[string]MaterialCotizado, catalog *Catalog) QuotationTotals {
	var t QuotationTotals
	for code, m := range materiales {
		t.TotalCotizado = t.TotalCotizado.Add(m.Total())
		if mat, ok := catalog.Material(code); ok {
			t.TotalCosto = t.TotalCosto.Add(m.Cantidad.Mul(mat.CostoUnitario))
		}
	}
	t.Margen = t.TotalCotizado.Sub(t.TotalCosto)
	if !t.TotalCotizado.IsZero() {
		t.MargenPct = t.Margen.Div(t.TotalCotizado).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return t
}

// CalcTotal is the quoted grand total of a materials list.
func CalcTotal(materiales map[string]MaterialCotizado) decimal.Decimal {
	total := decimal.Zero
	for _, m := range materiales {
		total = total.Add(m.Total())
	}
	return total
}
