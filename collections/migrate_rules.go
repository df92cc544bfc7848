package collections

import (
	"fmt"
	"log"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ruleCollections maps each rule collection to its origin field.
var ruleCollections = []struct {
	name      string
	originKey string
}{
	{"reglas_equipo_material", "equipo"},
	{"reglas_material_material", "material"},
}

// MigrateConsolidateRules merges rule records whose origins differ only by
// surrounding whitespace into a single record per origin, appending lines
// in record order. Safe to call on every startup -- returns early if every
// origin is already canonical.
func MigrateConsolidateRules(app *pocketbase.PocketBase) error {
	for _, rc := range ruleCollections {
		if err := consolidateRules(app, rc.name, rc.originKey); err != nil {
			return err
		}
	}
	return nil
}

func consolidateRules(app core.App, collection, originKey string) error {
	records, err := app.FindRecordsByFilter(collection, "id != ''", "created,id", 0, 0)
	if err != nil {
		return fmt.Errorf("migrate_rules: could not query %s: %w", collection, err)
	}

	groups := make(map[string][]*core.Record)
	var order []string
	dirty := false
	for _, r := range records {
		raw := r.GetString(originKey)
		origin := strings.TrimSpace(raw)
		if origin != raw {
			dirty = true
		}
		if _, ok := groups[origin]; !ok {
			order = append(order, origin)
		} else {
			dirty = true
		}
		groups[origin] = append(groups[origin], r)
	}
	if !dirty {
		return nil
	}

	log.Printf("migrate_rules: consolidating %d %s record(s) into %d origin(s)\n", len(records), collection, len(order))

	return app.RunInTransaction(func(txApp core.App) error {
		for _, origin := range order {
			group := groups[origin]
			keep := group[0]
			var lines []any
			for _, r := range group {
				var rl []any
				if r.GetString("materiales") != "" {
					if err := r.UnmarshalJSONField("materiales", &rl); err != nil {
						return fmt.Errorf("migrate_rules: %s %s: %w", collection, r.Id, err)
					}
				}
				lines = append(lines, rl...)
			}

			// Delete duplicates first so the trimmed origin is free under
			// the unique index.
			for _, dup := range group[1:] {
				if err := txApp.Delete(dup); err != nil {
					return fmt.Errorf("migrate_rules: delete %s %s: %w", collection, dup.Id, err)
				}
			}
			keep.Set(originKey, origin)
			keep.Set("materiales", lines)
			if err := txApp.Save(keep); err != nil {
				return fmt.Errorf("migrate_rules: save %s %q: %w", collection, origin, err)
			}
		}
		return nil
	})
}
