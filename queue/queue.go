// Package queue maintains the fairness-ordered join queue, selects match
// rosters, and applies the relegation policy at match end.
package queue

import (
	"errors"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/arena-engine/handle"
	"pkg.world.dev/arena-engine/session"
)

var (
	ErrNoHandle      = errors.New("handle-not-claimed")
	ErrAlreadyQueued = errors.New("already-queued")
	ErrNotEligible   = errors.New("not-eligible")
	ErrQueueFull     = errors.New("queue-full")
)

// Entry is one waiting session. Ordering is strict FIFO by enqueue time.
type Entry struct {
	SessionID  string
	EnqueuedAt time.Time
}

// Bracket maps a match player count to how many bottom finishers count as a
// qualifying (relegation-track) result.
type Bracket struct {
	Players int
	Bottom  int
}

// DefaultBrackets is the stock relegation table. Intermediate player counts
// round down to the nearest bracket; counts below the smallest bracket never
// produce qualifying results.
var DefaultBrackets = []Bracket{
	{Players: 4, Bottom: 1},
	{Players: 6, Bottom: 2},
	{Players: 8, Bottom: 3},
	{Players: 16, Bottom: 4},
}

type Config struct {
	MaxSize             int
	MinMatchPlayers     int
	MaxMatchPlayers     int
	RelegationThreshold int
	Brackets            []Bracket
}

type Coordinator struct {
	cfg      Config
	clock    clock.Clock
	sessions *session.Manager
	handles  *handle.Registry

	entries []Entry
	queued  map[string]struct{}
}

func NewCoordinator(cfg Config, c clock.Clock, sessions *session.Manager, handles *handle.Registry) *Coordinator {
	if c == nil {
		c = clock.New()
	}
	brackets := append([]Bracket(nil), cfg.Brackets...)
	sort.Slice(brackets, func(i, j int) bool { return brackets[i].Players < brackets[j].Players })
	cfg.Brackets = brackets
	return &Coordinator{
		cfg:      cfg,
		clock:    c,
		sessions: sessions,
		handles:  handles,
		queued:   map[string]struct{}{},
	}
}

// Enqueue appends the session to the back of the queue and returns its
// 1-based position. The session must hold a handle, must not already be
// queued or in a match, and the queue must have room.
func (c *Coordinator) Enqueue(sessionID string) (position int, err error) {
	if _, ok := c.handles.HandleFor(sessionID); !ok {
		return 0, ErrNoHandle
	}
	if _, ok := c.queued[sessionID]; ok {
		return 0, ErrAlreadyQueued
	}
	s, ok := c.sessions.Get(sessionID)
	if !ok {
		return 0, ErrNotEligible
	}
	switch s.State {
	case session.StateNew, session.StateQueued:
	case session.StateActive:
		return 0, ErrAlreadyQueued
	default:
		return 0, ErrNotEligible
	}
	if len(c.entries) >= c.cfg.MaxSize {
		return 0, ErrQueueFull
	}

	c.entries = append(c.entries, Entry{SessionID: sessionID, EnqueuedAt: c.clock.Now()})
	c.queued[sessionID] = struct{}{}
	return len(c.entries), nil
}

// Dequeue removes a specific session's entry, typically on disconnect.
func (c *Coordinator) Dequeue(sessionID string) bool {
	if _, ok := c.queued[sessionID]; !ok {
		return false
	}
	delete(c.queued, sessionID)
	for i, e := range c.entries {
		if e.SessionID == sessionID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	return true
}

// SelectRoster returns the longest-waiting eligible sessions, up to
// MaxMatchPlayers, and removes them from the queue. If fewer than
// MinMatchPlayers are eligible it returns nil and leaves the queue untouched.
// Selection is pure FIFO; no randomness.
func (c *Coordinator) SelectRoster() []string {
	eligible := make([]string, 0, c.cfg.MaxMatchPlayers)
	for _, e := range c.entries {
		s, ok := c.sessions.Get(e.SessionID)
		if !ok || s.State != session.StateQueued {
			continue
		}
		eligible = append(eligible, e.SessionID)
		if len(eligible) == c.cfg.MaxMatchPlayers {
			break
		}
	}
	if len(eligible) < c.cfg.MinMatchPlayers {
		return nil
	}
	for _, id := range eligible {
		c.Dequeue(id)
	}
	return eligible
}

// Outcome is one session's result in a just-ended match.
type Outcome struct {
	SessionID    string
	Rank         int
	Score        int
	TotalPlayers int
}

// bottomFor rounds the player count down to the nearest configured bracket.
func (c *Coordinator) bottomFor(players int) int {
	bottom := 0
	for _, b := range c.cfg.Brackets {
		if players >= b.Players {
			bottom = b.Bottom
		}
	}
	return bottom
}

// ApplyRelegationPolicy records each outcome against its session, extends or
// resets relegation streaks, and marks sessions RELEGATED once they hit the
// configured threshold of consecutive bottom-bracket finishes. Returns the
// session IDs relegated by this match.
func (c *Coordinator) ApplyRelegationPolicy(matchID string, outcomes []Outcome) (relegated []string) {
	bottom := 0
	if len(outcomes) > 0 {
		bottom = c.bottomFor(outcomes[0].TotalPlayers)
	}
	for _, o := range outcomes {
		qualifying := bottom > 0 && o.Rank > o.TotalPlayers-bottom
		res := session.Result{
			MatchID:      matchID,
			Rank:         o.Rank,
			Score:        o.Score,
			TotalPlayers: o.TotalPlayers,
		}
		streak, ok := c.sessions.RecordResult(o.SessionID, res, qualifying)
		if !ok {
			log.Warn().Str("session", o.SessionID).Msg("dropping result for unknown session")
			continue
		}
		if streak >= c.cfg.RelegationThreshold {
			if c.sessions.SetState(o.SessionID, session.StateRelegated) {
				relegated = append(relegated, o.SessionID)
			}
		}
	}
	return relegated
}

// Cleanup drops queue entries whose sessions are gone or disconnected.
func (c *Coordinator) Cleanup() (removed int) {
	kept := c.entries[:0]
	for _, e := range c.entries {
		s, ok := c.sessions.Get(e.SessionID)
		if !ok || s.State == session.StateDisconnected {
			delete(c.queued, e.SessionID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	c.entries = kept
	return removed
}

func (c *Coordinator) Len() int {
	return len(c.entries)
}

// Positions returns each queued session's 1-based position.
func (c *Coordinator) Positions() map[string]int {
	positions := make(map[string]int, len(c.entries))
	for i, e := range c.entries {
		positions[e.SessionID] = i + 1
	}
	return positions
}

// Reset empties the queue. Only the epoch reset may call this.
func (c *Coordinator) Reset() {
	c.entries = nil
	c.queued = map[string]struct{}{}
}
