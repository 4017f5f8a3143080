package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/booking"
)

// NewSessionID returns a new unique session id with the ses_ prefix.
func NewSessionID() string {
	return "ses_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:22]
}

type entry struct {
	session  *Session
	openedAt time.Time
}

// Manager tracks the open validation sessions by id. A session belongs to
// one edit interaction and is removed when it closes or expires.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry

	svc    BookingService
	logger zerolog.Logger
	now    func() time.Time
}

// ManagerConfig holds the inputs for creating a Manager.
type ManagerConfig struct {
	Service BookingService
	Logger  zerolog.Logger
}

// NewManager creates an empty session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		entries: make(map[string]*entry),
		svc:     cfg.Service,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Open starts a new session for the given draft. editID is the booking being
// edited, or empty for a create.
func (m *Manager) Open(draft booking.Booking, editID string) *Session {
	s := New(Config{
		ID:      NewSessionID(),
		Draft:   draft,
		EditID:  editID,
		Service: m.svc,
		Logger:  m.logger,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.id] = &entry{session: s, openedAt: m.now()}
	return s
}

// Get returns the session with the given id, or false if it is unknown.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Remove drops a session from the manager. The session itself is cancelled
// so any in-flight scan result is discarded.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()

	if ok {
		e.session.Cancel()
	}
}

// Prune cancels and drops sessions older than maxAge, plus any that already
// closed. It returns the number of sessions removed.
func (m *Manager) Prune(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	var stale []*entry
	for id, e := range m.entries {
		if e.openedAt.Before(cutoff) || e.session.Snapshot().State == StateClosed {
			stale = append(stale, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.session.Cancel()
	}
	return len(stale)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
