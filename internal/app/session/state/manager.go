package state

import (
	"sync"
	"time"
)

// Info is a copy of the session bookkeeping.
type Info struct {
	SessionID  string
	Phase      Phase
	StartedAt  *time.Time
	EndedAt    *time.Time
	TrackCount int
	Reloads    int
}

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	sessionID  string
	phase      Phase
	startedAt  *time.Time
	endedAt    *time.Time
	trackCount int
	reloads    int
}

// New creates a new state manager.
func New(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		phase:     PhaseWaiting,
	}
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Activate moves a waiting session to active and records the start time.
// It reports false if the session was not waiting.
func (m *Manager) Activate(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseWaiting {
		return false
	}
	m.phase = PhaseActive
	m.startedAt = &now
	return true
}

// Terminate moves the session to terminated and records the end time.
// It reports false if the session was already terminated.
func (m *Manager) Terminate(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseTerminated {
		return false
	}
	m.phase = PhaseTerminated
	m.endedAt = &now
	return true
}

// SetTrackCount records the size of the loaded library.
func (m *Manager) SetTrackCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackCount = n
}

// RecordReload counts a library reload and records its size.
func (m *Manager) RecordReload(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	m.trackCount = n
}

// Info returns a copy of the bookkeeping.
func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Info{
		SessionID:  m.sessionID,
		Phase:      m.phase,
		StartedAt:  m.startedAt,
		EndedAt:    m.endedAt,
		TrackCount: m.trackCount,
		Reloads:    m.reloads,
	}
}
