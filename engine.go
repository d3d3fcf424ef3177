// Package arena implements a server-authoritative match-cycle engine: a fixed
// rotation of timed matches and intermissions, a FIFO join queue, an epoch-wide
// unique handle registry, performance-based relegation, and a periodic full
// reset that returns the server to a blank slate.
package arena

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/arena-engine/events"
	"pkg.world.dev/arena-engine/handle"
	"pkg.world.dev/arena-engine/matchstage"
	"pkg.world.dev/arena-engine/queue"
	"pkg.world.dev/arena-engine/scheduler"
	"pkg.world.dev/arena-engine/session"
	"pkg.world.dev/arena-engine/statsd"
)

var (
	ErrCapacityExceeded = errors.New("capacity-exceeded")
	ErrUnknownSession   = errors.New("unknown-session")
	ErrUnknownMatch     = errors.New("unknown-match")
	ErrNotRunning       = errors.New("engine-not-running")
)

const (
	timerKindIntermission = "intermission"
	timerKindMatch        = "match"
	timerKindEpochReset   = "epoch-reset"
	timerKindCleanup      = "stale-cleanup"
)

// Match is the engine's bookkeeping for the single match allowed to run at a
// time. Roster order is the FIFO selection order, not a ranking.
type Match struct {
	ID        string
	StartedAt time.Time
	Roster    []string
}

// Engine owns the whole match cycle. Public methods and timer callbacks all
// serialize on one mutex; the stage manager is the only state readable without
// it. Timer callbacks never run user code, so holding the lock across a full
// transition is cheap and keeps every invariant check simple.
type Engine struct {
	config Config
	clock  clock.Clock
	stage  *matchstage.Manager
	hub    *events.Hub

	mu        sync.Mutex
	scheduler *scheduler.Scheduler
	handles   *handle.Registry
	sessions  *session.Manager
	queue     *queue.Coordinator

	match       *Match
	epoch       EpochStats
	epochNumber int
	phaseStart  time.Time

	intermissionTimer scheduler.TimerID
	matchTimer        scheduler.TimerID
	resetTimer        scheduler.TimerID
	cleanupTimer      scheduler.TimerID
}

// NewEngine builds an engine from the environment config plus any options.
// The engine stays in the INIT stage until Start is called.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		config: *cfg,
		clock:  clock.New(),
		stage:  matchstage.NewManager(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if err := e.config.setLogLevel(); err != nil {
		return nil, err
	}

	if e.config.StatsdAddress != "" {
		if err := statsd.Init(e.config.StatsdAddress, []string{"namespace:" + e.config.ArenaNamespace}); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd")
		}
	} else {
		log.Logger.Debug().Msg("statsd address is not set, statsd is disabled")
	}

	e.hub = events.NewHub()
	e.buildComponents()
	return e, nil
}

// buildComponents (re)creates every piece of mutable state. It runs once at
// construction and again only if the post-reset self-check fails.
func (e *Engine) buildComponents() {
	e.scheduler = scheduler.New(e.clock)
	e.handles = handle.NewRegistry()
	e.sessions = session.NewManager(e.clock, e.config.ResultHistorySize)
	e.queue = queue.NewCoordinator(queue.Config{
		MaxSize:             e.config.MaxQueueSize,
		MinMatchPlayers:     e.config.MinMatchPlayers,
		MaxMatchPlayers:     e.config.MaxMatchPlayers,
		RelegationThreshold: e.config.RelegationThreshold,
		Brackets:            e.config.RelegationBrackets,
	}, e.clock, e.sessions, e.handles)
	e.match = nil
}

// Hub exposes the event hub so the transport layer can mount the websocket
// endpoint and tests can subscribe.
func (e *Engine) Hub() *events.Hub {
	return e.hub
}

// Config returns a copy of the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Start moves the engine out of INIT into its first intermission and arms the
// cycle timers. Calling Start twice is an error.
func (e *Engine) Start() error {
	if ok := e.stage.CompareAndSwap(matchstage.Init, matchstage.Intermission); !ok {
		return eris.Errorf("engine cannot start from stage %q", e.stage.Current())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.beginEpoch()
	e.emit(events.KindStateChange, StateChangeEvent{Previous: matchstage.Init, Current: matchstage.Intermission})
	e.hub.Flush()
	return nil
}

// beginEpoch starts a fresh epoch in the INTERMISSION stage. Callers hold e.mu
// and have already emptied (or freshly built) the state holders.
func (e *Engine) beginEpoch() {
	e.epochNumber++
	e.epoch = EpochStats{Epoch: e.epochNumber, StartedAt: e.clock.Now()}
	e.phaseStart = e.epoch.StartedAt
	e.intermissionTimer = e.scheduler.Schedule(timerKindIntermission, e.config.IntermissionDuration, e.onIntermissionExpired)
	e.resetTimer = e.scheduler.Schedule(timerKindEpochReset, e.config.ResetInterval, e.onResetTimerExpired)
	e.cleanupTimer = e.scheduler.Schedule(timerKindCleanup, e.config.StaleSessionTimeout, e.onCleanupExpired)
	log.Info().Int("epoch", e.epochNumber).Msg("intermission started")
}

// Connect admits a new client under the connection ceiling and returns its
// session ID. connRef is an opaque transport reference kept for logging.
func (e *Engine) Connect(connRef string) (string, error) {
	if stage := e.stage.Current(); stage == matchstage.Init || stage == matchstage.ShutDown {
		return "", ErrNotRunning
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions.ConnectedCount() >= e.config.MaxConnections {
		statsd.EmitCount("connections_rejected", 1, nil)
		return "", ErrCapacityExceeded
	}
	id := e.sessions.Create(connRef)
	if connected := e.sessions.ConnectedCount(); connected > e.epoch.PeakConcurrent {
		e.epoch.PeakConcurrent = connected
	}
	log.Debug().Str("session", id).Str("conn", connRef).Msg("session connected")
	return id, nil
}

// ClaimHandle binds a display handle to the session for the rest of the epoch.
func (e *Engine) ClaimHandle(sessionID, h string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions.Get(sessionID)
	if !ok || s.State == session.StateDisconnected {
		return ErrUnknownSession
	}
	if err := e.handles.Claim(sessionID, h); err != nil {
		return err
	}
	e.sessions.SetHandle(sessionID, h)
	e.epoch.HandlesIssued = e.handles.Count()
	log.Debug().Str("session", sessionID).Str("handle", h).Msg("handle claimed")
	return nil
}

// JoinQueue puts the session at the back of the join queue and returns its
// 1-based position.
func (e *Engine) JoinQueue(sessionID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions.Get(sessionID)
	if !ok {
		return 0, ErrUnknownSession
	}
	pos, err := e.queue.Enqueue(sessionID)
	if err != nil {
		return 0, err
	}
	if s.State == session.StateNew {
		e.sessions.SetState(sessionID, session.StateQueued)
	}
	statsd.EmitQueueDepth(e.queue.Len())
	return pos, nil
}

// Disconnect removes the session from the queue and, if a match is running,
// from the active roster. Its handle stays reserved and its result history is
// retained until the stale-session sweep or the next reset.
func (e *Engine) Disconnect(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions.Get(sessionID)
	if !ok || s.State == session.StateDisconnected {
		return ErrUnknownSession
	}
	e.queue.Dequeue(sessionID)
	if e.match != nil {
		for i, id := range e.match.Roster {
			if id == sessionID {
				e.match.Roster = append(e.match.Roster[:i], e.match.Roster[i+1:]...)
				break
			}
		}
	}
	e.sessions.SetState(sessionID, session.StateDisconnected)
	log.Debug().Str("session", sessionID).Msg("session disconnected")
	return nil
}

// SubmitMatchResult ends the running match early with the given standings.
// The match ID must name the match that is actually in progress; stale or
// unknown IDs are rejected without side effects.
func (e *Engine) SubmitMatchResult(matchID string, results []PlayerResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage.Current() != matchstage.ActiveMatch || e.match == nil || e.match.ID != matchID {
		return ErrUnknownMatch
	}
	e.scheduler.Cancel(e.matchTimer)
	e.finishMatch(results)
	return nil
}

// ForceReset tears the epoch down immediately instead of waiting for the
// reset interval. Intended for operators.
func (e *Engine) ForceReset() error {
	if stage := e.stage.Current(); stage == matchstage.Init || stage == matchstage.ShutDown {
		return ErrNotRunning
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doReset("forced")
	return nil
}

// State returns a consistent snapshot of the engine for clients.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Phase:                 e.stage.Current(),
		MatchRemaining:        e.scheduler.Remaining(e.matchTimer),
		IntermissionRemaining: e.scheduler.Remaining(e.intermissionTimer),
		ResetRemaining:        e.scheduler.Remaining(e.resetTimer),
		QueueSize:             e.queue.Len(),
		QueuePositions:        e.queue.Positions(),
		ConnectedSessions:     e.sessions.ConnectedCount(),
		Epoch:                 e.epoch,
	}
	if e.match != nil {
		snap.MatchID = e.match.ID
		snap.Roster = e.rosterEntries(e.match.Roster)
	}
	return snap
}

// Shutdown stops the cycle for good: timers are cancelled, the stage moves to
// SHUT_DOWN, and the event hub closes every subscriber and connection.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.stage.Current() == matchstage.ShutDown {
		e.mu.Unlock()
		return
	}
	e.scheduler.CancelAll()
	e.stage.Store(matchstage.ShutDown)
	e.mu.Unlock()
	e.hub.Shutdown()
	log.Info().Msg("engine shut down")
}

// onIntermissionExpired tries to start a match. If the queue cannot field one,
// the intermission simply runs again at full length.
func (e *Engine) onIntermissionExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage.Current() != matchstage.Intermission {
		return
	}
	roster := e.queue.SelectRoster()
	statsd.EmitQueueDepth(e.queue.Len())
	if roster == nil {
		log.Info().Int("queued", e.queue.Len()).Msg("not enough players, extending intermission")
		e.intermissionTimer = e.scheduler.Schedule(timerKindIntermission, e.config.IntermissionDuration, e.onIntermissionExpired)
		return
	}

	for _, id := range roster {
		e.sessions.SetState(id, session.StateActive)
	}
	e.match = &Match{
		ID:        uuid.NewString(),
		StartedAt: e.clock.Now(),
		Roster:    roster,
	}
	statsd.EmitPhaseStat(e.phaseStart, "intermission")
	e.phaseStart = e.match.StartedAt
	e.stage.Store(matchstage.ActiveMatch)
	e.matchTimer = e.scheduler.Schedule(timerKindMatch, e.config.MatchDuration, e.onMatchExpired)
	statsd.EmitRosterSize(len(roster))
	log.Info().Str("match", e.match.ID).Int("players", len(roster)).Msg("match started")

	e.emit(events.KindStateChange, StateChangeEvent{Previous: matchstage.Intermission, Current: matchstage.ActiveMatch})
	e.emit(events.KindMatchStart, MatchStartEvent{MatchID: e.match.ID, Roster: e.rosterEntries(roster)})
	e.hub.Flush()
}

// onMatchExpired ends a match that ran out its clock with no reported outcome.
// Nobody is ranked, so nobody's relegation streak moves.
func (e *Engine) onMatchExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage.Current() != matchstage.ActiveMatch || e.match == nil {
		return
	}
	log.Info().Str("match", e.match.ID).Msg("match timed out without a result")
	e.finishMatch(nil)
}

// finishMatch closes out the running match: records outcomes, applies the
// relegation policy, requeues survivors, and returns to intermission.
// Callers hold e.mu and have already stopped the match timer.
func (e *Engine) finishMatch(results []PlayerResult) {
	match := e.match
	members := make(map[string]struct{}, len(match.Roster))
	for _, id := range match.Roster {
		members[id] = struct{}{}
	}

	outcomes := make([]queue.Outcome, 0, len(results))
	total := len(results)
	for _, r := range results {
		if _, ok := members[r.SessionID]; !ok {
			log.Warn().Str("match", match.ID).Str("session", r.SessionID).
				Msg("dropping result for session outside the roster")
			continue
		}
		outcomes = append(outcomes, queue.Outcome{
			SessionID:    r.SessionID,
			Rank:         r.Rank,
			Score:        r.Score,
			TotalPlayers: total,
		})
	}
	relegated := e.queue.ApplyRelegationPolicy(match.ID, outcomes)
	statsd.EmitCount("relegations", int64(len(relegated)), nil)

	relegatedSet := make(map[string]struct{}, len(relegated))
	for _, id := range relegated {
		relegatedSet[id] = struct{}{}
	}
	for _, id := range match.Roster {
		if _, gone := relegatedSet[id]; gone {
			continue
		}
		s, ok := e.sessions.Get(id)
		if !ok || s.State != session.StateActive {
			continue
		}
		e.sessions.SetState(id, session.StateQueued)
		if _, err := e.queue.Enqueue(id); err != nil {
			// The player keeps their QUEUED state and can rejoin by hand.
			log.Warn().Str("session", id).Err(err).Msg("could not requeue player after match")
		}
	}

	e.epoch.MatchesPlayed++
	statsd.EmitPhaseStat(e.phaseStart, "match")
	e.phaseStart = e.clock.Now()
	e.match = nil
	e.stage.Store(matchstage.Intermission)
	e.intermissionTimer = e.scheduler.Schedule(timerKindIntermission, e.config.IntermissionDuration, e.onIntermissionExpired)
	log.Info().Str("match", match.ID).Int("relegated", len(relegated)).Msg("match ended")

	e.emit(events.KindMatchEnd, MatchEndEvent{MatchID: match.ID, Results: results, Relegated: relegated})
	for _, id := range relegated {
		h, _ := e.handles.HandleFor(id)
		e.emit(events.KindPlayerRelegated, PlayerRelegatedEvent{SessionID: id, Handle: h, MatchID: match.ID})
	}
	e.emit(events.KindStateChange, StateChangeEvent{Previous: matchstage.ActiveMatch, Current: matchstage.Intermission})
	e.hub.Flush()
}

func (e *Engine) onResetTimerExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if stage := e.stage.Current(); stage == matchstage.ShutDown {
		return
	}
	e.doReset("interval")
}

// doReset wipes every piece of epoch state and starts a fresh epoch. The
// self-check after the wipe is deliberately paranoid: a reset that leaves
// anything behind breaks the no-reuse handle guarantee, so a failed check
// rebuilds the components from scratch. Callers hold e.mu.
func (e *Engine) doReset(reason string) {
	previous := e.stage.Swap(matchstage.Resetting)
	stats := e.epoch
	stats.HandlesIssued = e.handles.Count()

	e.scheduler.CancelAll()
	e.handles.Reset()
	e.sessions.Reset()
	e.queue.Reset()
	e.match = nil

	if e.handles.Count() != 0 || e.sessions.Count() != 0 || e.queue.Len() != 0 || e.scheduler.Len() != 0 {
		log.Error().Str("reason", reason).Msg("reset left residual state, rebuilding components")
		e.scheduler.CancelAll()
		e.buildComponents()
	}

	statsd.EmitCount("resets", 1, []string{reason})
	log.Info().Str("reason", reason).Int("epoch", stats.Epoch).
		Int("matches", stats.MatchesPlayed).Msg("server reset complete")

	e.emit(events.KindServerReset, ServerResetEvent{Stats: stats})
	e.emit(events.KindStateChange, StateChangeEvent{Previous: previous, Current: matchstage.Resetting})

	e.stage.Store(matchstage.Intermission)
	e.beginEpoch()
	e.emit(events.KindStateChange, StateChangeEvent{Previous: matchstage.Resetting, Current: matchstage.Intermission})
	e.hub.Flush()
}

// onCleanupExpired sweeps sessions that disconnected long ago, then drops any
// queue entries they left behind and re-arms itself.
func (e *Engine) onCleanupExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage.Current() == matchstage.ShutDown {
		return
	}
	removed := e.sessions.CleanupStale(e.config.StaleSessionTimeout)
	e.queue.Cleanup()
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("swept stale sessions")
	}
	e.cleanupTimer = e.scheduler.Schedule(timerKindCleanup, e.config.StaleSessionTimeout, e.onCleanupExpired)
}

func (e *Engine) rosterEntries(ids []string) []RosterEntry {
	entries := make([]RosterEntry, 0, len(ids))
	for _, id := range ids {
		h, _ := e.handles.HandleFor(id)
		entries = append(entries, RosterEntry{SessionID: id, Handle: h})
	}
	return entries
}

func (e *Engine) emit(kind string, data any) {
	e.hub.Emit(kind, data)
}
