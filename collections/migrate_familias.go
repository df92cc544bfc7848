package collections

import (
	"fmt"
	"log"
	"strings"

	"github.com/pocketbase/pocketbase"
)

// MigrateNormalizeFamilias trims and upper-cases every material family so
// obra routing matches regardless of how the catalog was typed. Safe to
// call on every startup.
func MigrateNormalizeFamilias(app *pocketbase.PocketBase) error {
	materiales, err := app.FindAllRecords("materiales")
	if err != nil {
		return fmt.Errorf("migrate_familias: could not query materiales: %w", err)
	}

	updated := 0
	for _, m := range materiales {
		familia := m.GetString("familia")
		normalized := strings.ToUpper(strings.TrimSpace(familia))
		if normalized == familia {
			continue
		}
		m.Set("familia", normalized)
		if err := app.Save(m); err != nil {
			log.Printf("migrate_familias: failed to update material %s: %v\n", m.GetString("codigo"), err)
			continue
		}
		updated++
	}

	if updated > 0 {
		log.Printf("migrate_familias: normalized %d material famil(ies)\n", updated)
	}
	return nil
}
