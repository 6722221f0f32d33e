package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// stubLoader returns canned records per query key. A gate registered for a
// key blocks that load until the gate is closed.
type stubLoader struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]catalog.ObjectRecord
	gates   map[string]chan struct{}
	err     error
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		results: make(map[string][]catalog.ObjectRecord),
		gates:   make(map[string]chan struct{}),
	}
}

func (l *stubLoader) Get(ctx context.Context, q catalog.Query) (*catalog.Dataset, error) {
	l.mu.Lock()
	l.calls = append(l.calls, q.Key())
	gate := l.gates[q.Key()]
	records := l.results[q.Key()]
	err := l.err
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &catalog.Dataset{Query: q, FetchedAt: time.Now(), Records: records}, nil
}

func (l *stubLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func keyFor(types ...string) string {
	return catalog.NewQuery(types).Key()
}

func rec(id, name, objectType string) catalog.ObjectRecord {
	return catalog.ObjectRecord{
		NoradCatID: catalog.Ptr(id),
		Name:       catalog.Ptr(name),
		ObjectType: catalog.Ptr(objectType),
	}
}

func mixedCatalog() []catalog.ObjectRecord {
	return []catalog.ObjectRecord{
		rec("1", "ISS (ZARYA)", catalog.TypePayload),
		rec("2", "HUBBLE", catalog.TypePayload),
		rec("3", "FENGYUN 1C DEB", catalog.TypeDebris),
		rec("4", "SL-16 R/B", catalog.TypeRocketBody),
		rec("5", "OBJECT X", catalog.TypeUnknown),
	}
}

func waitFor(t *testing.T, s *Session, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met; last snapshot %+v", s.Snapshot())
	return Snapshot{}
}

func TestSessionInitialLoad(t *testing.T) {
	loader := newStubLoader()
	loader.results[keyFor(catalog.AllObjectTypes...)] = mixedCatalog()

	s := newSession(context.Background(), "s1", loader, testLogger())
	s.Reload()
	s.Wait()

	snap := s.Snapshot()
	if !snap.Status.Success || snap.Status.Loading || snap.Status.Error {
		t.Fatalf("status = %+v, want success", snap.Status)
	}
	if snap.Total != 5 || snap.SourceTotal != 5 {
		t.Errorf("total = %d/%d, want 5/5", snap.Total, snap.SourceTotal)
	}
	if snap.ActiveCategory != pipeline.CategoryAll {
		t.Errorf("active = %q, want %q", snap.ActiveCategory, pipeline.CategoryAll)
	}

	want := map[string]string{
		pipeline.CategoryAll:          "All Objects (5)",
		pipeline.CategoryPayloads:     "Payloads (2)",
		pipeline.CategoryDebris:       "Debris (1)",
		pipeline.CategoryRocketBodies: "Rocket Bodies (1)",
		pipeline.CategoryUnknown:      "Unknown (1)",
	}
	for _, c := range snap.Categories {
		if c.Label != want[c.Name] {
			t.Errorf("label for %s = %q, want %q", c.Name, c.Label, want[c.Name])
		}
		if c.Active != (c.Name == pipeline.CategoryAll) {
			t.Errorf("category %s active = %v", c.Name, c.Active)
		}
	}
}

func TestSessionLoadError(t *testing.T) {
	loader := newStubLoader()
	loader.err = errors.New("upstream down")

	s := newSession(context.Background(), "s1", loader, testLogger())
	s.Reload()
	s.Wait()

	st := s.Snapshot().Status
	if !st.Error || st.Success || st.Loading {
		t.Errorf("status = %+v, want error only", st)
	}
}

func TestSessionSelectCategoryFetchesAndFreezesCounts(t *testing.T) {
	loader := newStubLoader()
	loader.results[keyFor(catalog.AllObjectTypes...)] = mixedCatalog()
	loader.results[keyFor(catalog.TypeDebris)] = []catalog.ObjectRecord{
		rec("3", "FENGYUN 1C DEB", catalog.TypeDebris),
		rec("6", "COSMOS 2251 DEB", catalog.TypeDebris),
	}

	s := newSession(context.Background(), "s1", loader, testLogger())
	s.Reload()
	s.Wait()

	if _, err := s.SelectCategory(pipeline.CategoryDebris); err != nil {
		t.Fatalf("SelectCategory: %v", err)
	}
	s.Wait()

	snap := s.Snapshot()
	if snap.ActiveCategory != pipeline.CategoryDebris {
		t.Errorf("active = %q", snap.ActiveCategory)
	}
	if snap.SourceTotal != 2 {
		t.Errorf("source total = %d, want 2", snap.SourceTotal)
	}
	for _, c := range snap.Categories {
		if c.Name == pipeline.CategoryDebris && c.Value != 1 {
			t.Errorf("debris count = %d, want frozen value 1", c.Value)
		}
		if c.Name == pipeline.CategoryAll && c.Value != 5 {
			t.Errorf("all count = %d, want frozen value 5", c.Value)
		}
	}
	if n := loader.callCount(); n != 2 {
		t.Errorf("loader calls = %d, want 2", n)
	}
}

func TestSessionSelectUnknownCategory(t *testing.T) {
	loader := newStubLoader()
	s := newSession(context.Background(), "s1", loader, testLogger())

	if _, err := s.SelectCategory("Stations"); err == nil {
		t.Fatal("expected error for unknown category")
	}
	if n := loader.callCount(); n != 0 {
		t.Errorf("loader calls = %d, want 0", n)
	}
}

// TestSessionLastResponseWins verifies that a slow response for an earlier
// selection replaces the data of a later, faster one.
func TestSessionLastResponseWins(t *testing.T) {
	loader := newStubLoader()
	debris := []catalog.ObjectRecord{rec("3", "FENGYUN 1C DEB", catalog.TypeDebris)}
	payloads := []catalog.ObjectRecord{
		rec("1", "ISS (ZARYA)", catalog.TypePayload),
		rec("2", "HUBBLE", catalog.TypePayload),
	}
	gate := make(chan struct{})
	loader.results[keyFor(catalog.TypeDebris)] = debris
	loader.results[keyFor(catalog.TypePayload)] = payloads
	loader.gates[keyFor(catalog.TypeDebris)] = gate

	s := newSession(context.Background(), "s1", loader, testLogger())

	if _, err := s.SelectCategory(pipeline.CategoryDebris); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectCategory(pipeline.CategoryPayloads); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func(snap Snapshot) bool { return snap.SourceTotal == 2 })
	if !s.Snapshot().Status.Loading {
		t.Error("status should still be loading while the debris fetch is in flight")
	}

	close(gate)
	s.Wait()

	snap := s.Snapshot()
	if snap.SourceTotal != 1 {
		t.Errorf("source total = %d, want 1 (debris response arrived last)", snap.SourceTotal)
	}
	if snap.ActiveCategory != pipeline.CategoryPayloads {
		t.Errorf("active = %q, want %q", snap.ActiveCategory, pipeline.CategoryPayloads)
	}
	if snap.Status.Loading {
		t.Error("loading should be cleared once every fetch resolved")
	}
}

func TestSessionSearchAndFilters(t *testing.T) {
	loader := newStubLoader()
	loader.results[keyFor(catalog.AllObjectTypes...)] = mixedCatalog()

	s := newSession(context.Background(), "s1", loader, testLogger())
	s.Reload()
	s.Wait()

	if snap := s.Search("deb"); snap.Total != 1 {
		t.Errorf("search total = %d, want 1", snap.Total)
	}
	if snap := s.Search(""); snap.Total != 5 {
		t.Errorf("cleared search total = %d, want 5", snap.Total)
	}

	snap := s.SetFilters([]string{"payload"}, nil)
	if snap.Total != 2 {
		t.Errorf("filtered total = %d, want 2", snap.Total)
	}

	if snap.FilterLabels.ObjectTypes != "Object Types (1)" || snap.FilterLabels.OrbitCodes != "Orbit Codes (0)" {
		t.Errorf("labels = %+v", snap.FilterLabels)
	}

	snap = s.ToggleObjectType(catalog.TypeDebris)
	if snap.Total != 2 {
		t.Errorf("toggle applied early: total = %d, want 2", snap.Total)
	}
	if snap.FilterLabels.ObjectTypes != "Object Types (2)" {
		t.Errorf("object type label = %q, want Object Types (2)", snap.FilterLabels.ObjectTypes)
	}
	if snap := s.ApplyFilters(); snap.Total != 3 {
		t.Errorf("after toggle total = %d, want 3", snap.Total)
	}
}

func TestSessionSort(t *testing.T) {
	loader := newStubLoader()
	loader.results[keyFor(catalog.AllObjectTypes...)] = mixedCatalog()

	s := newSession(context.Background(), "s1", loader, testLogger())
	s.Reload()
	s.Wait()

	snap, err := s.Sort(catalog.FieldName)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Sort.Direction != pipeline.Descending {
		t.Errorf("direction = %q, want desc after clicking the active column", snap.Sort.Direction)
	}
	rows := s.Window(0, 450, 0).Rows
	if rows[0].Name != "SL-16 R/B" {
		t.Errorf("first row = %q, want SL-16 R/B", rows[0].Name)
	}

	if _, err := s.Sort("status"); err == nil {
		t.Error("expected error for unsortable field")
	}
}

func TestSessionWindow(t *testing.T) {
	records := make([]catalog.ObjectRecord, 30)
	for i := range records {
		records[i] = rec(fmt.Sprint(i), fmt.Sprintf("SAT-%02d", i), catalog.TypePayload)
	}
	loader := newStubLoader()
	loader.results[keyFor(catalog.AllObjectTypes...)] = records

	s := newSession(context.Background(), "s1", loader, testLogger())
	s.Reload()
	s.Wait()

	w := s.Window(0, 450, 1280)
	if w.Total != 30 || w.RowHeight != 50 {
		t.Errorf("total/rowHeight = %d/%d", w.Total, w.RowHeight)
	}
	if w.Range.Start != 0 || w.Range.End != 11 || len(w.Rows) != 11 {
		t.Errorf("range = %+v with %d rows, want [0,11)", w.Range, len(w.Rows))
	}
	if w.Rows[0].Name != "SAT-00" || w.Rows[10].Index != 10 {
		t.Errorf("unexpected rows: first %+v last %+v", w.Rows[0], w.Rows[10])
	}
	if w.Layout.Narrow {
		t.Error("1280px viewport should use the wide layout")
	}

	w = s.Window(1000, 450, 600)
	if w.Range.Start != 18 || w.Range.End != 30 {
		t.Errorf("range = %+v, want [18,30)", w.Range)
	}
	if !w.Layout.Narrow {
		t.Error("600px viewport should use the narrow layout")
	}
}

func TestSessionSubscribe(t *testing.T) {
	s := newSession(context.Background(), "s1", newStubLoader(), testLogger())
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Search("iss")
	s.Search("hubble")

	select {
	case snap := <-ch:
		if snap.Filter.SearchTerm != "hubble" {
			t.Errorf("search term = %q, want the latest (hubble)", snap.Filter.SearchTerm)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	unsubscribe()
	s.Search("gps")
	select {
	case snap := <-ch:
		t.Errorf("received snapshot after unsubscribe: %+v", snap)
	default:
	}
}

func TestManagerCreateAndGet(t *testing.T) {
	loader := newStubLoader()
	loader.results[keyFor(catalog.AllObjectTypes...)] = mixedCatalog()
	m := NewManager(context.Background(), Config{}, loader, testLogger())

	s, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	got, ok := m.Get(s.ID())
	if !ok || got != s {
		t.Fatal("created session not found")
	}
	if got.Snapshot().SourceTotal != 5 {
		t.Error("new session should load All Objects")
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("unexpected session for unknown id")
	}
}

func TestManagerLimit(t *testing.T) {
	m := NewManager(context.Background(), Config{MaxSessions: 2}, newStubLoader(), testLogger())
	for range 2 {
		s, err := m.Create()
		if err != nil {
			t.Fatal(err)
		}
		s.Wait()
	}
	if _, err := m.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("err = %v, want ErrTooManySessions", err)
	}
	if m.Count() != 2 {
		t.Errorf("count = %d, want 2", m.Count())
	}
}

func TestManagerSweep(t *testing.T) {
	m := NewManager(context.Background(), Config{IdleTTL: time.Minute}, newStubLoader(), testLogger())
	s, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if n := m.Sweep(time.Now()); n != 0 {
		t.Errorf("swept %d fresh sessions", n)
	}
	if n := m.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if m.Count() != 0 {
		t.Errorf("count = %d, want 0", m.Count())
	}
}

// TestManagerSweepKeepsStreamingSessions verifies an open event stream keeps
// a session alive however long it goes without user actions.
func TestManagerSweepKeepsStreamingSessions(t *testing.T) {
	m := NewManager(context.Background(), Config{IdleTTL: time.Minute}, newStubLoader(), testLogger())
	s, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	_, unsubscribe := s.Subscribe()
	if n := m.Sweep(time.Now().Add(2 * time.Minute)); n != 0 {
		t.Errorf("swept %d sessions with an open stream", n)
	}
	if _, ok := m.Get(s.ID()); !ok {
		t.Fatal("streaming session should still be reachable")
	}

	unsubscribe()
	if n := m.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("swept %d after the stream closed, want 1", n)
	}
}
