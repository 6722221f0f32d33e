// Package session holds per-browser UI state. Each Session owns one pipeline
// and behaves like a single-threaded event loop: every user action or fetch
// completion takes the session lock, recomputes synchronously, and notifies
// subscribers before the next event is handled.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/pipeline"
	"github.com/star/assetlist/internal/view"
)

// Loader resolves a catalog query, typically through the query cache.
type Loader interface {
	Get(ctx context.Context, q catalog.Query) (*catalog.Dataset, error)
}

// Status is the fetch state shown above the table.
type Status struct {
	Loading   bool      `json:"loading"`
	Error     bool      `json:"error"`
	Success   bool      `json:"success"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID             string               `json:"id"`
	Version        int64                `json:"version"`
	Status         Status               `json:"status"`
	Categories     []CategoryView       `json:"categories"`
	ActiveCategory string               `json:"active_category"`
	Filter         pipeline.FilterState `json:"filter"`
	FilterLabels   FilterLabels         `json:"filter_labels"`
	Sort           pipeline.SortState   `json:"sort"`
	Total          int                  `json:"total"`
	SourceTotal    int                  `json:"source_total"`
}

// FilterLabels are the dropdown button captions for the pending selections.
type FilterLabels struct {
	ObjectTypes string `json:"object_types"`
	OrbitCodes  string `json:"orbit_codes"`
}

// CategoryView is a category selector with its rendered label.
type CategoryView struct {
	pipeline.Category
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// WindowResult is the visible slice of the table for one scroll position.
type WindowResult struct {
	Version   int64              `json:"version"`
	Status    Status             `json:"status"`
	Total     int                `json:"total"`
	RowHeight int                `json:"row_height"`
	Range     view.Range         `json:"range"`
	Layout    view.Layout        `json:"layout"`
	Sort      pipeline.SortState `json:"sort"`
	Rows      []view.Row         `json:"rows"`
}

// Session is one user's browsing state.
type Session struct {
	id     string
	loader Loader
	ctx    context.Context
	logger *slog.Logger

	mu        sync.Mutex
	pipe      *pipeline.Pipeline
	status    Status
	pending   int
	version   int64
	lastSeen  time.Time
	listeners map[chan Snapshot]struct{}

	loads sync.WaitGroup
}

func newSession(ctx context.Context, id string, loader Loader, logger *slog.Logger) *Session {
	return &Session{
		id:        id,
		loader:    loader,
		ctx:       ctx,
		logger:    logger.With("session_id", id),
		pipe:      pipeline.New(),
		lastSeen:  time.Now(),
		listeners: make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Load issues the fetch for q in the background. The result replaces the
// session's collection when it resolves, whichever request resolves last.
// Disabled queries are ignored.
func (s *Session) Load(q catalog.Query) {
	if !q.Enabled() {
		return
	}

	s.mu.Lock()
	s.pending++
	s.status.Loading = true
	s.changedLocked()
	s.mu.Unlock()

	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		ds, err := s.loader.Get(s.ctx, q)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.pending--
		s.status.Loading = s.pending > 0
		if err != nil {
			s.status.Error = true
			s.status.Success = false
			s.logger.Warn("catalog load failed", "key", q.Key(), "error", err)
			s.changedLocked()
			return
		}

		if active := s.pipe.Query().Key(); active != q.Key() {
			s.logger.Debug("applying result for inactive query", "key", q.Key(), "active_key", active)
		}
		s.status.Error = false
		s.status.Success = true
		s.status.FetchedAt = ds.FetchedAt
		s.pipe.OnCollectionChanged(ds.Records)
		s.changedLocked()
	}()
}

// Wait blocks until every in-flight load has been applied.
func (s *Session) Wait() {
	s.loads.Wait()
}

// Search commits a search term.
func (s *Session) Search(term string) Snapshot {
	return s.update(func(p *pipeline.Pipeline) { p.SetSearchTerm(term) })
}

// SetFilters replaces the object-type and orbit-code selections and applies
// them together with the committed search term.
func (s *Session) SetFilters(objectTypes, orbitCodes []string) Snapshot {
	return s.update(func(p *pipeline.Pipeline) {
		p.SetSelection(objectTypes, orbitCodes)
		p.ApplyFilters()
	})
}

// ToggleObjectType flips one pending object-type selection.
func (s *Session) ToggleObjectType(t string) Snapshot {
	return s.update(func(p *pipeline.Pipeline) { p.ToggleObjectType(t) })
}

// ToggleOrbitCode flips one pending orbit-code selection.
func (s *Session) ToggleOrbitCode(code string) Snapshot {
	return s.update(func(p *pipeline.Pipeline) { p.ToggleOrbitCode(code) })
}

// ApplyFilters applies the pending selections.
func (s *Session) ApplyFilters() Snapshot {
	return s.update(func(p *pipeline.Pipeline) { p.ApplyFilters() })
}

// Sort handles a header click.
func (s *Session) Sort(field string) (Snapshot, error) {
	var err error
	snap := s.update(func(p *pipeline.Pipeline) { err = p.SortBy(field) })
	return snap, err
}

// SelectCategory switches the active category and fetches its object types.
func (s *Session) SelectCategory(name string) (Snapshot, error) {
	s.mu.Lock()
	q, ok := s.pipe.SelectCategory(name)
	if !ok {
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("unknown category %q", name)
	}
	s.changedLocked()
	s.mu.Unlock()

	s.Load(q)
	return s.Snapshot(), nil
}

// Reload fetches the active category's query again.
func (s *Session) Reload() {
	s.Load(s.Query())
}

// Query returns the query for the active category.
func (s *Session) Query() catalog.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipe.Query()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Window returns the rows visible at scrollOffset for a viewport of the given
// height and width, in pixels.
func (s *Session) Window(scrollOffset, height, width int) WindowResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	rows := s.pipe.Rows()
	w := view.Window{
		Total:     len(rows),
		RowHeight: view.DefaultRowHeight,
		Height:    height,
		Overscan:  view.DefaultOverscan,
	}
	r := w.Visible(scrollOffset)

	return WindowResult{
		Version:   s.version,
		Status:    s.status,
		Total:     len(rows),
		RowHeight: w.RowHeight,
		Range:     r,
		Layout:    view.LayoutFor(width),
		Sort:      s.pipe.SortState(),
		Rows:      view.Slice(r, view.RowAt(rows)),
	}
}

// Subscribe registers for snapshots after every change. Only the latest
// undelivered snapshot is kept. The returned func unsubscribes.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, ch)
			s.mu.Unlock()
		})
	}
}

func (s *Session) update(fn func(p *pipeline.Pipeline)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.pipe)
	s.changedLocked()
	return s.snapshotLocked()
}

// idleSince reports how long the session has gone untouched. A session with an
// open event stream is never idle.
func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) > 0 {
		return 0
	}
	return now.Sub(s.lastSeen)
}

// changedLocked bumps the version and publishes a snapshot. Caller holds mu.
func (s *Session) changedLocked() {
	s.version++
	s.lastSeen = time.Now()
	if len(s.listeners) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.listeners {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot and keep the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	active := s.pipe.ActiveCategory()
	cats := s.pipe.Categories()
	views := make([]CategoryView, len(cats))
	for i, c := range cats {
		views[i] = CategoryView{
			Category: c,
			Label:    view.CategoryLabel(c),
			Active:   c.Name == active,
		}
	}
	filter := s.pipe.Filter()
	labels := FilterLabels{
		ObjectTypes: view.SelectionLabel("Object Types", filter.ObjectTypes),
		OrbitCodes:  view.SelectionLabel("Orbit Codes", filter.OrbitCodes),
	}
	return Snapshot{
		ID:             s.id,
		Version:        s.version,
		Status:         s.status,
		Categories:     views,
		ActiveCategory: active,
		Filter:         filter,
		FilterLabels:   labels,
		Sort:           s.pipe.SortState(),
		Total:          len(s.pipe.Rows()),
		SourceTotal:    len(s.pipe.Source()),
	}
}
