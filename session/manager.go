package session

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Manager struct {
	clock       clock.Clock
	historySize int
	sessions    map[string]*Session
}

// NewManager creates a session manager that keeps at most historySize match
// results per session. Passing a nil clock uses the system clock.
func NewManager(c clock.Clock, historySize int) *Manager {
	if c == nil {
		c = clock.New()
	}
	return &Manager{
		clock:       c,
		historySize: historySize,
		sessions:    map[string]*Session{},
	}
}

// Create allocates a new session in the NEW state and returns its ID.
func (m *Manager) Create(connRef string) string {
	now := m.clock.Now()
	id := uuid.NewString()
	m.sessions[id] = &Session{
		ID:           id,
		ConnRef:      connRef,
		State:        StateNew,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	return id
}

// Get returns a copy of the session. Callers never receive a live reference.
func (m *Manager) Get(id string) (Session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return m.snapshot(s), true
}

func (m *Manager) snapshot(s *Session) Session {
	cp := *s
	cp.History = append([]Result(nil), s.History...)
	return cp
}

// SetState applies a lifecycle transition. Illegal transitions are rejected
// and logged, never silently applied.
func (m *Manager) SetState(id string, newState State) bool {
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	if !isLegalTransition(s.State, newState) {
		log.Warn().
			Str("session", id).
			Msgf("rejected illegal session transition %s -> %s", s.State, newState)
		return false
	}
	s.State = newState
	s.LastActiveAt = m.clock.Now()
	if newState == StateDisconnected {
		s.DisconnectedAt = s.LastActiveAt
	}
	return true
}

// SetHandle records the display handle bound to the session. The handle
// registry is the authority on uniqueness; this is bookkeeping only.
func (m *Manager) SetHandle(id, handle string) bool {
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.Handle = handle
	s.LastActiveAt = m.clock.Now()
	return true
}

// RecordResult appends a match result to the session's bounded history and
// updates the relegation streak: a qualifying (bottom-bracket) result extends
// the streak, anything else resets it to zero. Returns the new streak length.
func (m *Manager) RecordResult(id string, res Result, qualifying bool) (streak int, ok bool) {
	s, exists := m.sessions[id]
	if !exists {
		return 0, false
	}
	s.History = append(s.History, res)
	if excess := len(s.History) - m.historySize; excess > 0 {
		s.History = s.History[excess:]
	}
	if qualifying {
		s.Streak++
	} else {
		s.Streak = 0
	}
	s.LastActiveAt = m.clock.Now()
	return s.Streak, true
}

// CleanupStale drops bookkeeping for sessions that have been disconnected
// longer than maxIdle. Their handles stay reserved in the registry.
func (m *Manager) CleanupStale(maxIdle time.Duration) (removed int) {
	cutoff := m.clock.Now().Add(-maxIdle)
	for id, s := range m.sessions {
		if s.State == StateDisconnected && s.DisconnectedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count reports the number of tracked sessions, connected or not.
func (m *Manager) Count() int {
	return len(m.sessions)
}

// ConnectedCount reports sessions that still have a live connection.
func (m *Manager) ConnectedCount() int {
	n := 0
	for _, s := range m.sessions {
		if s.State != StateDisconnected {
			n++
		}
	}
	return n
}

// Reset destroys every session. Only the epoch reset may call this.
func (m *Manager) Reset() {
	m.sessions = map[string]*Session{}
}
