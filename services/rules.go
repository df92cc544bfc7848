package services

import (
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// RuleKind selects one of the two rule collections.
type RuleKind struct {
	Collection string
	OriginKey  string
}

var (
	RuleEquipoMaterial   = RuleKind{Collection: "reglas_equipo_material", OriginKey: "equipo"}
	RuleMaterialMaterial = RuleKind{Collection: "reglas_material_material", OriginKey: "material"}
)

// RuleLine is one target of a rule: Cantidad units of Codigo per origin unit.
type RuleLine struct {
	Codigo   string          `json:"codigo"`
	Cantidad decimal.Decimal `json:"cantidad"`
}

func (l RuleLine) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Codigo, validation.Required),
		validation.Field(&l.Cantidad, validation.By(positiveDecimal)),
	)
}

func positiveDecimal(value any) error {
	d, _ := value.(decimal.Decimal)
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

// RuleSet maps an origin code to its ordered target lines.
type RuleSet map[string][]RuleLine

// Lookup returns the lines for origin, or nil when no rule exists.
func (rs RuleSet) Lookup(origin string) []RuleLine {
	return rs[NormalizeCodigo(origin)]
}

// Rules bundles both rule sets the expansion engine consumes.
type Rules struct {
	EquipoMaterial   RuleSet
	MaterialMaterial RuleSet
}

// rawRuleLine accepts quantities stored as numbers or strings.
type rawRuleLine struct {
	Codigo   string `json:"codigo"`
	Cantidad any    `json:"cantidad"`
}

// LoadRules reads both rule collections.
func LoadRules(app core.App) (Rules, error) {
	em, err := LoadRuleSet(app, RuleEquipoMaterial)
	if err != nil {
		return Rules{}, err
	}
	mm, err := LoadRuleSet(app, RuleMaterialMaterial)
	if err != nil {
		return Rules{}, err
	}
	return Rules{EquipoMaterial: em, MaterialMaterial: mm}, nil
}

// LoadRuleSet reads one rule collection. Lines with a blank code or a
// non-positive quantity are dropped. Duplicate origins are merged in
// record order.
func LoadRuleSet(app core.App, kind RuleKind) (RuleSet, error) {
	records, err := app.FindAllRecords(kind.Collection)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind.Collection, err)
	}
	rs := make(RuleSet, len(records))
	for _, r := range records {
		origin := NormalizeCodigo(r.GetString(kind.OriginKey))
		if origin == "" {
			continue
		}
		lines, err := ruleLinesFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind.Collection, origin, err)
		}
		rs[origin] = append(rs[origin], lines...)
	}
	return rs, nil
}

func ruleLinesFromRecord(r *core.Record) ([]RuleLine, error) {
	var raw []rawRuleLine
	if r.GetString("materiales") == "" {
		return nil, nil
	}
	if err := r.UnmarshalJSONField("materiales", &raw); err != nil {
		return nil, fmt.Errorf("decode materiales: %w", err)
	}
	lines := make([]RuleLine, 0, len(raw))
	for _, l := range raw {
		line := RuleLine{Codigo: NormalizeCodigo(l.Codigo), Cantidad: ParseQuantity(l.Cantidad)}
		if line.Codigo == "" || !line.Cantidad.IsPositive() {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SaveRule replaces the lines of the rule for origin, creating the record
// when absent.
func SaveRule(app core.App, kind RuleKind, origin string, lines []RuleLine) (*core.Record, error) {
	origin = NormalizeCodigo(origin)
	if err := validation.Validate(origin, validation.Required); err != nil {
		return nil, fmt.Errorf("%s: %w", kind.OriginKey, err)
	}
	for i := range lines {
		lines[i].Codigo = NormalizeCodigo(lines[i].Codigo)
	}
	if err := validation.Validate(lines, validation.Required); err != nil {
		return nil, fmt.Errorf("materiales: %w", err)
	}

	record, err := app.FindFirstRecordByFilter(kind.Collection, kind.OriginKey+" = {:origin}", dbx.Params{"origin": origin})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find %s: %w", kind.Collection, err)
		}
		col, err := app.FindCollectionByNameOrId(kind.Collection)
		if err != nil {
			return nil, fmt.Errorf("find collection %s: %w", kind.Collection, err)
		}
		record = core.NewRecord(col)
		record.Set(kind.OriginKey, origin)
	}
	record.Set("materiales", lines)
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("save %s %q: %w", kind.Collection, origin, err)
	}
	return record, nil
}
