package catalog

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store holds the most recently resolved dataset across all sessions and
// remembers when each distinct query last resolved. Readiness and the dataset
// age gauge read from it.
type Store struct {
	latest atomic.Pointer[Dataset]

	mu       sync.Mutex
	resolved map[string]time.Time
}

// Summary describes the latest dataset for the readiness probe.
type Summary struct {
	ObjectTypes []string
	Records     int
	FetchedAt   time.Time
	Queries     int // Distinct queries resolved so far.
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{resolved: make(map[string]time.Time)}
}

// Get returns the latest dataset, or nil if no query has resolved yet.
func (s *Store) Get() *Dataset {
	return s.latest.Load()
}

// Set records ds as the latest dataset.
func (s *Store) Set(ds *Dataset) {
	s.mu.Lock()
	s.resolved[ds.Query.Key()] = ds.FetchedAt
	s.mu.Unlock()
	s.latest.Store(ds)
}

// Summary reports on the latest dataset. ok is false until a query resolves.
func (s *Store) Summary() (sum Summary, ok bool) {
	ds := s.latest.Load()
	if ds == nil {
		return Summary{}, false
	}
	s.mu.Lock()
	queries := len(s.resolved)
	s.mu.Unlock()
	return Summary{
		ObjectTypes: ds.Query.ObjectTypes,
		Records:     len(ds.Records),
		FetchedAt:   ds.FetchedAt,
		Queries:     queries,
	}, true
}

// AgeSeconds returns the age of the latest dataset in seconds.
// Returns -1 if nothing has been loaded.
func (s *Store) AgeSeconds() float64 {
	ds := s.latest.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}
