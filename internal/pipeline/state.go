package pipeline

import (
	"fmt"
	"slices"

	"github.com/star/assetlist/internal/catalog"
)

// FilterState is the user's filter selection for one session.
// ObjectTypes and OrbitCodes are sets; an empty set places no constraint.
type FilterState struct {
	SearchTerm  string   `json:"search_term"`
	ObjectTypes []string `json:"object_types"`
	OrbitCodes  []string `json:"orbit_codes"`
}

// ToggleObjectType adds t to the selection, or removes it if already selected.
func (f *FilterState) ToggleObjectType(t string) {
	f.ObjectTypes = toggle(f.ObjectTypes, t)
}

// ToggleOrbitCode adds code to the selection, or removes it if already selected.
func (f *FilterState) ToggleOrbitCode(code string) {
	f.OrbitCodes = toggle(f.OrbitCodes, code)
}

func toggle(set []string, v string) []string {
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), v)
}

// dedupe returns vals with duplicates and empty strings removed, first occurrence kept.
func dedupe(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortableFields are the columns that can be sorted on.
var SortableFields = []string{
	catalog.FieldNoradCatID,
	catalog.FieldName,
	catalog.FieldLaunchDate,
	catalog.FieldCountryCode,
}

// ParseSortField validates a sort field name.
func ParseSortField(s string) (string, error) {
	if slices.Contains(SortableFields, s) {
		return s, nil
	}
	return "", fmt.Errorf("unsortable field %q", s)
}

// ParseDirection validates a sort direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Ascending, Descending:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid sort direction %q", s)
}

// SortState is the active sort column and direction.
type SortState struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by name ascending.
func DefaultSort() SortState {
	return SortState{Field: catalog.FieldName, Direction: Ascending}
}

// Toggle returns the state after a header click on field: the same field
// flips direction, a new field starts ascending.
func (s SortState) Toggle(field string) SortState {
	if s.Field == field {
		if s.Direction == Ascending {
			return SortState{Field: field, Direction: Descending}
		}
		return SortState{Field: field, Direction: Ascending}
	}
	return SortState{Field: field, Direction: Ascending}
}
