package arena

import (
	"time"

	"pkg.world.dev/arena-engine/matchstage"
)

// PlayerResult is one player's line in a submitted match outcome. Rank 1 is
// the winner; ranks need not be contiguous but must be positive.
type PlayerResult struct {
	SessionID string `json:"sessionId"`
	Rank      int    `json:"rank"`
	Score     int    `json:"score"`
}

// RosterEntry names one participant of a running match.
type RosterEntry struct {
	SessionID string `json:"sessionId"`
	Handle    string `json:"handle"`
}

// StateChangeEvent announces a phase transition.
type StateChangeEvent struct {
	Previous matchstage.Stage `json:"previous"`
	Current  matchstage.Stage `json:"current"`
}

// MatchStartEvent announces a new match and its locked-in roster.
type MatchStartEvent struct {
	MatchID string        `json:"matchId"`
	Roster  []RosterEntry `json:"roster"`
}

// MatchEndEvent carries the final standings of a finished match. Results is
// empty when the match timed out without a reported outcome. Relegated lists
// the sessions the relegation policy removed from circulation.
type MatchEndEvent struct {
	MatchID   string         `json:"matchId"`
	Results   []PlayerResult `json:"results,omitempty"`
	Relegated []string       `json:"relegated,omitempty"`
}

// PlayerRelegatedEvent singles out one relegation so clients can notify the
// affected player directly.
type PlayerRelegatedEvent struct {
	SessionID string `json:"sessionId"`
	Handle    string `json:"handle"`
	MatchID   string `json:"matchId"`
}

// ServerResetEvent closes out an epoch with its final stats.
type ServerResetEvent struct {
	Stats EpochStats `json:"stats"`
}

// Snapshot is a point-in-time view of the whole engine, served to clients so
// they can render the current phase and its countdowns. Remaining durations
// are scheduler.UnknownRemaining when the corresponding timer is not armed.
type Snapshot struct {
	Phase                 matchstage.Stage `json:"phase"`
	MatchID               string           `json:"matchId,omitempty"`
	Roster                []RosterEntry    `json:"roster,omitempty"`
	MatchRemaining        time.Duration    `json:"matchRemaining"`
	IntermissionRemaining time.Duration    `json:"intermissionRemaining"`
	ResetRemaining        time.Duration    `json:"resetRemaining"`
	QueueSize             int              `json:"queueSize"`
	QueuePositions        map[string]int   `json:"queuePositions,omitempty"`
	ConnectedSessions     int              `json:"connectedSessions"`
	Epoch                 EpochStats       `json:"epochStats"`
}
