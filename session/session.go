// Package session owns the lifecycle and performance bookkeeping of connected
// participants. Sessions live entirely in memory and are destroyed only by
// stale cleanup or a full epoch reset.
package session

import "time"

type State string

const (
	StateNew          State = "NEW"
	StateQueued       State = "QUEUED"
	StateActive       State = "ACTIVE"
	StateRelegated    State = "RELEGATED"
	StateDisconnected State = "DISCONNECTED"
)

// legalTransitions is the session state diagram. Any state may additionally
// move to StateDisconnected on connection loss.
var legalTransitions = map[State][]State{
	StateNew:       {StateQueued},
	StateQueued:    {StateActive},
	StateActive:    {StateQueued, StateRelegated},
	StateRelegated: {},
}

func isLegalTransition(from, to State) bool {
	if to == StateDisconnected {
		return from != StateDisconnected
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Result is one match outcome for a session. Rank 1 is the winner.
type Result struct {
	MatchID      string `json:"matchId"`
	Rank         int    `json:"rank"`
	Score        int    `json:"score"`
	TotalPlayers int    `json:"totalPlayers"`
}

// Session is one connected participant. The connection reference is an opaque
// token owned by the transport layer; the engine never manages its lifecycle.
type Session struct {
	ID             string
	ConnRef        string
	Handle         string
	State          State
	History        []Result
	Streak         int
	CreatedAt      time.Time
	LastActiveAt   time.Time
	DisconnectedAt time.Time // zero while the session is connected
}
