package arena

import "time"

// EpochStats summarizes one epoch, the span between two full server resets.
// A copy is published on the serverReset event just before the counters are
// wiped for the next epoch.
type EpochStats struct {
	Epoch          int       `json:"epoch"`
	StartedAt      time.Time `json:"startedAt"`
	MatchesPlayed  int       `json:"matchesPlayed"`
	PeakConcurrent int       `json:"peakConcurrent"`
	HandlesIssued  int       `json:"handlesIssued"`
}
