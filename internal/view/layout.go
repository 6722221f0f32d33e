package view

import "github.com/star/assetlist/internal/catalog"

// NarrowBreakpoint is the viewport width below which fixed pixel columns are used.
const NarrowBreakpoint = 768

// Column is one table header.
type Column struct {
	Title    string `json:"title"`
	Field    string `json:"field,omitempty"`
	Sortable bool   `json:"sortable"`
	Align    string `json:"align"`
}

// Layout is the column set and grid template for one viewport width.
type Layout struct {
	Template string   `json:"template"`
	Narrow   bool     `json:"narrow"`
	Columns  []Column `json:"columns"`
}

// Columns are the table headers in display order. The COSPAR ID column shows launchDate.
var Columns = []Column{
	{Title: "NORAD ID", Field: catalog.FieldNoradCatID, Sortable: true, Align: "start"},
	{Title: "Name", Field: catalog.FieldName, Sortable: true, Align: "start"},
	{Title: "COSPAR ID", Field: catalog.FieldLaunchDate, Sortable: true, Align: "start"},
	{Title: "Regime", Align: "start"},
	{Title: "Country", Field: catalog.FieldCountryCode, Sortable: true, Align: "center"},
	{Title: "Status", Align: "center"},
}

// LayoutFor picks the grid template for a viewport width in pixels.
func LayoutFor(viewportWidth int) Layout {
	narrow := viewportWidth > 0 && viewportWidth < NarrowBreakpoint
	template := "1fr 2fr 2fr 1.5fr 1.5fr 1fr"
	if narrow {
		template = "130px 200px 160px 120px 120px 100px"
	}
	return Layout{
		Template: template,
		Narrow:   narrow,
		Columns:  Columns,
	}
}
