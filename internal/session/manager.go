package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/star/assetlist/internal/metrics"
)

// ErrTooManySessions is returned when the session limit has been reached.
var ErrTooManySessions = errors.New("too many sessions")

// Config holds session management configuration.
type Config struct {
	IdleTTL       time.Duration // Drop sessions unused this long (default: 30m)
	MaxSessions   int           // Upper bound on live sessions (default: 1000)
	SweepInterval time.Duration // How often idle sessions are swept (default: 1m)
}

// Manager creates, looks up and expires sessions.
// Safe for concurrent use by multiple goroutines.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	config Config
	loader Loader
	ctx    context.Context
	logger *slog.Logger
}

// NewManager creates a session manager. Loads started by its sessions run
// under ctx and stop waiting when it is cancelled.
func NewManager(ctx context.Context, config Config, loader Loader, logger *slog.Logger) *Manager {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 30 * time.Minute
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = 1000
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	return &Manager{
		sessions: make(map[string]*Session),
		config:   config,
		loader:   loader,
		ctx:      ctx,
		logger:   logger,
	}
}

// Create starts a new session on "All Objects" and kicks off its first fetch.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.config.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s := newSession(m.ctx, uuid.NewString(), m.loader, m.logger)
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.SetSessionsActive(count)
	m.logger.Debug("session created", "session_id", s.ID(), "sessions", count)

	s.Reload()
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many it removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var removed int
	for id, s := range m.sessions {
		if s.idleSince(now) > m.config.IdleTTL {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		metrics.SetSessionsActive(count)
		m.logger.Debug("session sweep", "sessions_removed", removed, "sessions", count)
	}
	return removed
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}
