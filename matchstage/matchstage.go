// Package matchstage tracks which phase of the match cycle the engine is in.
package matchstage

import (
	"sync"
	"sync/atomic"
)

type Stage string

const (
	Init         Stage = "INIT"          // The default stage before Start() is called
	Intermission Stage = "INTERMISSION"  // Queue processing between matches
	ActiveMatch  Stage = "ACTIVE_MATCH"  // A match is in progress
	Resetting    Stage = "SERVER_RESET"  // Transient stage while the epoch is torn down
	ShutDown     Stage = "SHUT_DOWN"     // The engine has stopped for good
)

type Manager struct {
	current *atomic.Value

	mu        sync.Mutex
	listeners map[Stage][]chan struct{}
}

func NewManager() *Manager {
	m := &Manager{
		current:   &atomic.Value{},
		listeners: map[Stage][]chan struct{}{},
	}
	m.current.Store(Init)
	return m
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	swapped = m.current.CompareAndSwap(oldStage, newStage)
	if swapped {
		m.notify(newStage)
	}
	return swapped
}

func (m *Manager) Store(val Stage) {
	m.current.Store(val)
	m.notify(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	oldStage = m.current.Swap(newStage).(Stage)
	m.notify(newStage)
	return oldStage
}

// NotifyOnStage returns a channel that is closed once the manager enters the given stage.
// If the manager is already at that stage the returned channel is closed immediately.
func (m *Manager) NotifyOnStage(stage Stage) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	if m.Current() == stage {
		close(ch)
		return ch
	}
	m.listeners[stage] = append(m.listeners[stage], ch)
	return ch
}

func (m *Manager) notify(stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.listeners[stage] {
		close(ch)
	}
	m.listeners[stage] = nil
}
