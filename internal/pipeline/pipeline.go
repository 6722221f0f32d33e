// Package pipeline implements the client-side data pipeline over a fetched
// catalog: classification counts, text and attribute filtering, and sorting.
//
// A Pipeline holds the state for one UI session and is recomputed explicitly:
//
//	OnCollectionChanged  new data arrived from the fetch cache
//	SetSearchTerm        search term committed (live text filter)
//	ApplyFilters         "Apply Filters" pressed (full filter)
//	SortBy               column header clicked
//	SelectCategory       category selector clicked (returns the query to fetch)
//
// Every stage runs synchronously and never mutates the source collection.
// A Pipeline is not safe for concurrent use; callers serialize events.
package pipeline

import (
	"time"

	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/metrics"
)

// Pipeline is the filter/sort/classify state machine for one session.
type Pipeline struct {
	categories []Category
	active     string
	filter     FilterState
	sort       SortState

	source   []catalog.ObjectRecord
	filtered []catalog.ObjectRecord
	sorted   []catalog.ObjectRecord
}

// New creates a pipeline with the default categories, "All Objects" active,
// an empty filter and name-ascending sort.
func New() *Pipeline {
	return &Pipeline{
		categories: DefaultCategories(),
		active:     CategoryAll,
		sort:       DefaultSort(),
	}
}

// OnCollectionChanged installs a newly fetched collection. Category counts are
// only recomputed while "All Objects" is the active category; otherwise they
// keep their previous values. The live text filter is always rerun.
func (p *Pipeline) OnCollectionChanged(records []catalog.ObjectRecord) {
	p.source = records
	if p.active == CategoryAll {
		start := time.Now()
		p.categories = Classify(records).Apply(p.categories)
		metrics.ObservePipeline("classify", time.Since(start))
	}
	p.liveFilter()
}

// SetSearchTerm commits a search term and reruns the live text filter.
func (p *Pipeline) SetSearchTerm(term string) {
	p.filter.SearchTerm = term
	p.liveFilter()
}

// SetSelection replaces the object-type and orbit-code selections without
// applying them.
func (p *Pipeline) SetSelection(objectTypes, orbitCodes []string) {
	p.filter.ObjectTypes = dedupe(objectTypes)
	p.filter.OrbitCodes = dedupe(orbitCodes)
}

// ToggleObjectType flips one object type in the pending selection.
func (p *Pipeline) ToggleObjectType(t string) {
	p.filter.ToggleObjectType(t)
}

// ToggleOrbitCode flips one orbit code in the pending selection.
func (p *Pipeline) ToggleOrbitCode(code string) {
	p.filter.ToggleOrbitCode(code)
}

// ApplyFilters re-filters the full source collection with the committed search
// term and the current type and orbit selections.
func (p *Pipeline) ApplyFilters() {
	start := time.Now()
	p.filtered = ApplyFilter(p.source, p.filter)
	metrics.ObservePipeline("apply_filter", time.Since(start))
	p.resort()
}

// SortBy handles a header click on field.
func (p *Pipeline) SortBy(field string) error {
	if _, err := ParseSortField(field); err != nil {
		return err
	}
	p.sort = p.sort.Toggle(field)
	p.resort()
	return nil
}

// SetSort installs an explicit sort state.
func (p *Pipeline) SetSort(s SortState) error {
	if _, err := ParseSortField(s.Field); err != nil {
		return err
	}
	if _, err := ParseDirection(string(s.Direction)); err != nil {
		return err
	}
	p.sort = s
	p.resort()
	return nil
}

// SelectCategory makes name the active category and returns the query for its
// object types. The caller is expected to fetch it and feed the result to
// OnCollectionChanged. Unknown names leave the state untouched.
func (p *Pipeline) SelectCategory(name string) (catalog.Query, bool) {
	c, ok := FindCategory(p.categories, name)
	if !ok {
		return catalog.Query{}, false
	}
	p.active = c.Name
	return catalog.NewQuery(c.ObjectTypes), true
}

// Query returns the query for the active category.
func (p *Pipeline) Query() catalog.Query {
	c, _ := FindCategory(p.categories, p.active)
	return catalog.NewQuery(c.ObjectTypes)
}

// Rows returns the filtered, sorted view. Callers must not modify it.
func (p *Pipeline) Rows() []catalog.ObjectRecord {
	return p.sorted
}

// Source returns the full fetched collection.
func (p *Pipeline) Source() []catalog.ObjectRecord {
	return p.source
}

// Categories returns a copy of the category selectors with their counts.
func (p *Pipeline) Categories() []Category {
	return append([]Category(nil), p.categories...)
}

// ActiveCategory returns the selected category name.
func (p *Pipeline) ActiveCategory() string {
	return p.active
}

// Filter returns the current filter state.
func (p *Pipeline) Filter() FilterState {
	f := p.filter
	f.ObjectTypes = append([]string(nil), f.ObjectTypes...)
	f.OrbitCodes = append([]string(nil), f.OrbitCodes...)
	return f
}

// SortState returns the active sort.
func (p *Pipeline) SortState() SortState {
	return p.sort
}

func (p *Pipeline) liveFilter() {
	start := time.Now()
	p.filtered = LiveFilter(p.source, p.filter.SearchTerm)
	metrics.ObservePipeline("live_filter", time.Since(start))
	p.resort()
}

func (p *Pipeline) resort() {
	start := time.Now()
	p.sorted = Sort(p.filtered, p.sort)
	metrics.ObservePipeline("sort", time.Since(start))
}
