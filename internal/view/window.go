// Package view is the presentation boundary between the pipeline and the
// windowed table: which rows are visible, how a record is displayed, and how
// columns are laid out for a viewport.
package view

// Defaults matching the table in the web frontend.
const (
	DefaultRowHeight = 50
	DefaultHeight    = 450
	DefaultOverscan  = 2
)

// Window describes a fixed-row-height list of Total rows shown through a
// viewport Height pixels tall.
type Window struct {
	Total     int
	RowHeight int
	Height    int
	Overscan  int
}

// Range is a half-open row interval [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Visible returns the rows to materialize when the list is scrolled
// scrollOffset pixels down, including Overscan rows on each side.
func (w Window) Visible(scrollOffset int) Range {
	if w.Total <= 0 {
		return Range{}
	}
	rowHeight := w.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	height := w.Height
	if height <= 0 {
		height = DefaultHeight
	}
	overscan := w.Overscan
	if overscan < 0 {
		overscan = 0
	}

	maxOffset := max(w.Total*rowHeight-height, 0)
	scrollOffset = min(max(scrollOffset, 0), maxOffset)

	first := scrollOffset / rowHeight
	last := (scrollOffset + height - 1) / rowHeight

	return Range{
		Start: max(first-overscan, 0),
		End:   min(last+overscan+1, w.Total),
	}
}

// Slice returns the items of rows covered by r, producing each with rowAt.
// Only the requested rows are built.
func Slice[T any](r Range, rowAt func(int) T) []T {
	out := make([]T, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, rowAt(i))
	}
	return out
}
