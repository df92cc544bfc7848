package services

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugMaxLen = 40

// ErrCorrelativoAgotado is returned when every retry collided with an
// existing correlative.
var ErrCorrelativoAgotado = errors.New("no free correlative after retries")

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify folds accents and lowercases s into a dash-separated slug.
// "Torre Ñuñoa Mecánica" → "torre-nunoa-mecanica"
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := slugInvalid.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > slugMaxLen {
		slug = strings.TrimRight(slug[:slugMaxLen], "-")
	}
	return slug
}

// formatCorrelativo constructs PREFIX-YYYY-ORG-NNN-slug. The slug segment
// is omitted when empty.
func formatCorrelativo(prefijo string, year int, org string, seq int, slug string) string {
	c := fmt.Sprintf("%s-%04d-%s-%03d", prefijo, year, org, seq)
	if slug != "" {
		c += "-" + slug
	}
	return c
}

// RevisionCorrelativo returns the correlative of revision n of base.
func RevisionCorrelativo(base string, n int) string {
	return fmt.Sprintf("%s_rev_%d", base, n)
}

// SplitRevision splits "<base>_rev_N" into base and N. A correlative without
// a revision suffix is revision 0.
func SplitRevision(correlativo string) (string, int) {
	i := strings.LastIndex(correlativo, "_rev_")
	if i < 0 {
		return correlativo, 0
	}
	n, err := strconv.Atoi(correlativo[i+len("_rev_"):])
	if err != nil || n < 0 {
		return correlativo, 0
	}
	return correlativo[:i], n
}

// Numbering allocates yearly sequential correlatives for one collection.
type Numbering struct {
	Collection   string
	Prefijo      string
	Organizacion string
	// Reintentos bounds how many sequence numbers are tried past the count.
	Reintentos int
	// Scope restricts which rows count toward the sequence.
	Scope dbx.Expression
}

// Next returns the next free correlative for nombre in now's year.
// Sequence = count of scoped rows whose correlative contains "-YYYY-" + 1,
// bumped while the candidate already exists.
func (n Numbering) Next(app core.App, nombre string, now time.Time) (string, error) {
	year := now.Year()
	marker := fmt.Sprintf("-%04d-", year)

	exprs := []dbx.Expression{dbx.Like("correlativo", marker)}
	if n.Scope != nil {
		exprs = append(exprs, n.Scope)
	}
	count, err := app.CountRecords(n.Collection, exprs...)
	if err != nil {
		return "", fmt.Errorf("count %s correlatives: %w", n.Collection, err)
	}

	slug := Slugify(nombre)
	attempts := max(n.Reintentos, 1)
	seq := int(count) + 1
	for i := 0; i < attempts; i, seq = i+1, seq+1 {
		candidate := formatCorrelativo(n.Prefijo, year, n.Organizacion, seq, slug)
		taken, err := correlativoExists(app, n.Collection, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s %s-%04d: %w", n.Collection, n.Prefijo, year, ErrCorrelativoAgotado)
}

func correlativoExists(app core.App, collection, correlativo string) (bool, error) {
	_, err := app.FindFirstRecordByData(collection, "correlativo", correlativo)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check correlative %q: %w", correlativo, err)
}

// isUniqueViolation reports whether err came from a unique index, either
// PocketBase's record validator or SQLite itself.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "must be unique")
}
