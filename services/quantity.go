package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ParseQuantity coerces a user-submitted quantity (JSON number, numeric
// string, comma-decimal string) into a decimal. Unparsable or negative
// values yield zero.
func ParseQuantity(v any) decimal.Decimal {
	d, ok := parseQuantity(v)
	if !ok {
		return decimal.Zero
	}
	return d
}

// parseQuantity reports false for unparsable or negative input, so an
// explicit zero can be told apart from garbage.
func parseQuantity(v any) (decimal.Decimal, bool) {
	if v == nil {
		return decimal.Zero, false
	}
	if d, ok := v.(decimal.Decimal); ok {
		return d, !d.IsNegative()
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return decimal.Zero, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	// With both separators present the last one is the decimal point:
	// 1.234,50 and 1,234.50 are both 1234.50.
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// ParseQuantities coerces a code → raw quantity map, dropping blank codes
// and entries that do not parse to a positive value.
func ParseQuantities(raw map[string]any) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(raw))
	for code, v := range raw {
		code = NormalizeCodigo(code)
		if code == "" {
			continue
		}
		q := ParseQuantity(v)
		if !q.IsPositive() {
			continue
		}
		out[code] = out[code].Add(q)
	}
	return out
}

// ParseUnits is ParseQuantities for whole equipment units. Fractions are
// truncated.
func ParseUnits(raw map[string]any) map[string]int {
	out := make(map[string]int, len(raw))
	for code, q := range ParseQuantities(raw) {
		n := int(q.IntPart())
		if n <= 0 {
			continue
		}
		out[code] += n
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
