package view

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/pipeline"
)

// Placeholder is shown for absent values.
const Placeholder = "-"

// Row is the display projection of one record.
type Row struct {
	Index      int    `json:"index"`
	Key        string `json:"key"`
	NoradCatID string `json:"norad_cat_id"`
	Name       string `json:"name"`
	LaunchDate string `json:"launch_date"`
	Regime     string `json:"regime"`
	Country    string `json:"country"`
	Status     string `json:"status"`
	Badge      string `json:"badge"`
}

// RowAt returns a pure function mapping a row index to its display row.
func RowAt(records []catalog.ObjectRecord) func(int) Row {
	return func(i int) Row {
		return NewRow(i, records[i])
	}
}

// NewRow projects r for display. Missing fields become the placeholder and
// the regime has its braces stripped.
func NewRow(index int, r catalog.ObjectRecord) Row {
	regime := Placeholder
	if code, ok := r.StrippedOrbitCode(); ok && code != "" {
		regime = code
	}
	objectType, _ := r.Field(catalog.FieldObjectType)

	return Row{
		Index:      index,
		Key:        r.Key(),
		NoradCatID: orPlaceholder(r, catalog.FieldNoradCatID),
		Name:       orPlaceholder(r, catalog.FieldName),
		LaunchDate: orPlaceholder(r, catalog.FieldLaunchDate),
		Regime:     regime,
		Country:    orPlaceholder(r, catalog.FieldCountryCode),
		Status:     orPlaceholder(r, catalog.FieldStatus),
		Badge:      BadgeTag(objectType),
	}
}

func orPlaceholder(r catalog.ObjectRecord, field string) string {
	if v, ok := r.Field(field); ok {
		return v
	}
	return Placeholder
}

// BadgeTag returns the status badge styling tag for an object type.
// The match is exact; anything else gets "other".
func BadgeTag(objectType string) string {
	switch objectType {
	case catalog.TypeDebris:
		return "debris"
	case catalog.TypeRocketBody:
		return "rocket-body"
	case catalog.TypePayload:
		return "payload"
	case catalog.TypeUnknown:
		return "unknown"
	}
	return "other"
}

// CategoryLabel renders a category chip label; a zero count is omitted.
func CategoryLabel(c pipeline.Category) string {
	if c.Value == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, humanize.Comma(int64(c.Value)))
}

// SelectionLabel renders a filter dropdown button, e.g. "Orbit Codes (2)".
func SelectionLabel(label string, selected []string) string {
	return fmt.Sprintf("%s (%d)", label, len(selected))
}

// SortIndicator returns the arrow shown next to the header for field.
func SortIndicator(s pipeline.SortState, field string) string {
	if s.Field != field {
		return ""
	}
	if s.Direction == pipeline.Descending {
		return "↓"
	}
	return "↑"
}
