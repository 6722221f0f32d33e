package pipeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/star/assetlist/internal/catalog"
)

// LiveFilter returns the records whose name or NORAD ID contains term,
// case-insensitively. Absent fields compare as the empty string, so an empty
// term keeps every record. The input is not modified.
func LiveFilter(records []catalog.ObjectRecord, term string) []catalog.ObjectRecord {
	m := newTextMatcher(term)
	out := make([]catalog.ObjectRecord, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyFilter narrows records by the committed search term, the selected
// object types and the selected orbit codes. All three must hold. An empty
// type or orbit selection places no constraint.
func ApplyFilter(records []catalog.ObjectRecord, f FilterState) []catalog.ObjectRecord {
	m := newTextMatcher(f.SearchTerm)
	upper := cases.Upper(language.Und)
	types := toSet(f.ObjectTypes, upper.String)
	orbits := toSet(f.OrbitCodes, catalog.StripBraces)

	out := make([]catalog.ObjectRecord, 0, len(records))
	for _, r := range records {
		if !m.match(r) {
			continue
		}
		if len(types) > 0 {
			t, ok := r.Field(catalog.FieldObjectType)
			if _, in := types[upper.String(t)]; !ok || !in {
				continue
			}
		}
		if len(orbits) > 0 {
			code, ok := r.StrippedOrbitCode()
			if _, in := orbits[code]; !ok || !in {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func toSet(vals []string, norm func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[norm(v)] = struct{}{}
	}
	return set
}

// textMatcher matches a search term against a record's name and NORAD ID.
type textMatcher struct {
	lower cases.Caser
	term  string
}

func newTextMatcher(term string) *textMatcher {
	lower := cases.Lower(language.Und)
	return &textMatcher{lower: lower, term: lower.String(term)}
}

func (m *textMatcher) match(r catalog.ObjectRecord) bool {
	if m.term == "" {
		return true
	}
	name, _ := r.Field(catalog.FieldName)
	if strings.Contains(m.lower.String(name), m.term) {
		return true
	}
	id, _ := r.Field(catalog.FieldNoradCatID)
	return strings.Contains(m.lower.String(id), m.term)
}
