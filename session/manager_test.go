package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"gotest.tools/v3/assert"
)

func newTestManager() (*Manager, *clock.Mock) {
	mock := clock.NewMock()
	return NewManager(mock, 10), mock
}

func TestCreateStartsInNewState(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("conn-1")

	s, ok := m.Get(id)
	assert.Check(t, ok)
	assert.Equal(t, StateNew, s.State)
	assert.Equal(t, "conn-1", s.ConnRef)
	assert.Equal(t, 1, m.Count())
}

func TestGetReturnsCopy(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("conn-1")
	m.RecordResult(id, Result{MatchID: "m1", Rank: 1, TotalPlayers: 4}, false)

	s, _ := m.Get(id)
	s.Handle = "mutated"
	s.History[0].Rank = 99

	again, _ := m.Get(id)
	assert.Equal(t, "", again.Handle)
	assert.Equal(t, 1, again.History[0].Rank)
}

func TestSetStateFollowsDiagram(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("conn-1")

	// NEW -> ACTIVE skips the queue and must be rejected.
	assert.Check(t, !m.SetState(id, StateActive))

	assert.Check(t, m.SetState(id, StateQueued))
	assert.Check(t, m.SetState(id, StateActive))
	assert.Check(t, m.SetState(id, StateQueued), "survivors go back to the queue")
	assert.Check(t, m.SetState(id, StateActive))
	assert.Check(t, m.SetState(id, StateRelegated))

	// RELEGATED is terminal for the epoch, except for disconnection.
	assert.Check(t, !m.SetState(id, StateQueued))
	assert.Check(t, m.SetState(id, StateDisconnected))
	assert.Check(t, !m.SetState(id, StateQueued))
}

func TestAnyStateMayDisconnect(t *testing.T) {
	m, _ := newTestManager()
	for _, setup := range [][]State{
		{},
		{StateQueued},
		{StateQueued, StateActive},
	} {
		id := m.Create("conn")
		for _, st := range setup {
			assert.Check(t, m.SetState(id, st))
		}
		assert.Check(t, m.SetState(id, StateDisconnected))
		assert.Check(t, !m.SetState(id, StateDisconnected), "disconnecting twice is illegal")
	}
}

func TestRecordResultBoundsHistory(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("conn-1")

	for i := 0; i < 15; i++ {
		_, ok := m.RecordResult(id, Result{MatchID: fmt.Sprintf("m%d", i), Rank: 1, TotalPlayers: 4}, false)
		assert.Check(t, ok)
	}

	s, _ := m.Get(id)
	assert.Equal(t, 10, len(s.History))
	// Oldest entries are dropped first.
	assert.Equal(t, "m5", s.History[0].MatchID)
	assert.Equal(t, "m14", s.History[9].MatchID)
}

func TestStreakCountsOnlyConsecutiveQualifyingResults(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("conn-1")

	streak, _ := m.RecordResult(id, Result{Rank: 4, TotalPlayers: 4}, true)
	assert.Equal(t, 1, streak)
	streak, _ = m.RecordResult(id, Result{Rank: 4, TotalPlayers: 4}, true)
	assert.Equal(t, 2, streak)

	// A non-qualifying result resets the streak to zero.
	streak, _ = m.RecordResult(id, Result{Rank: 1, TotalPlayers: 4}, false)
	assert.Equal(t, 0, streak)

	streak, _ = m.RecordResult(id, Result{Rank: 4, TotalPlayers: 4}, true)
	assert.Equal(t, 1, streak)
}

func TestCleanupStaleRemovesOnlyLongDisconnected(t *testing.T) {
	m, mock := newTestManager()

	stale := m.Create("conn-1")
	fresh := m.Create("conn-2")
	live := m.Create("conn-3")

	m.SetState(stale, StateDisconnected)
	mock.Add(31 * time.Minute)
	m.SetState(fresh, StateDisconnected)

	removed := m.CleanupStale(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := m.Get(stale)
	assert.Check(t, !ok)
	_, ok = m.Get(fresh)
	assert.Check(t, ok)
	_, ok = m.Get(live)
	assert.Check(t, ok)
}

func TestConnectedCount(t *testing.T) {
	m, _ := newTestManager()
	a := m.Create("conn-1")
	m.Create("conn-2")
	assert.Equal(t, 2, m.ConnectedCount())

	m.SetState(a, StateDisconnected)
	assert.Equal(t, 1, m.ConnectedCount())
	assert.Equal(t, 2, m.Count())
}

func TestReset(t *testing.T) {
	m, _ := newTestManager()
	m.Create("conn-1")
	m.Create("conn-2")
	m.Reset()
	assert.Equal(t, 0, m.Count())
}
