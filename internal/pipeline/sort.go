package pipeline

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/star/assetlist/internal/catalog"
)

// Sort returns a new slice ordered by s. Values are compared after lower-casing,
// absent values compare as the empty string, and equal keys keep their input order.
func Sort(records []catalog.ObjectRecord, s SortState) []catalog.ObjectRecord {
	lower := cases.Lower(language.Und)

	// Fold each key once rather than on every comparison.
	type keyed struct {
		key string
		rec catalog.ObjectRecord
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		v, _ := r.Field(s.Field)
		items[i] = keyed{key: lower.String(v), rec: r}
	}

	desc := s.Direction == Descending
	slices.SortStableFunc(items, func(a, b keyed) int {
		c := strings.Compare(a.key, b.key)
		if desc {
			return -c
		}
		return c
	})

	out := make([]catalog.ObjectRecord, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}
