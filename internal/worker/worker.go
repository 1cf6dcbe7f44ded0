package worker

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheFortz/combat/internal/channel"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/internal/parser"
	"github.com/TheFortz/combat/internal/sim"
	"github.com/TheFortz/combat/internal/storage"
	"github.com/TheFortz/combat/pkg/core"
)

// DefaultQueueSize is the number of outcomes that may wait for storage.
const DefaultQueueSize = 10_000

// ErrStopped is returned for lifecycle calls after Stop.
var ErrStopped = errors.New("worker stopped")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Sim           *sim.Simulation
	MatchContext  *match.Context
	ParserService parser.Service
	Logger        *slog.Logger
	// TickRate is used for match metadata and to sample performance once a second.
	TickRate int
	Tag      string
	// QueueSize bounds the hand-off to storage; excess outcomes are dropped.
	QueueSize int
	// OnMatchEnd runs after storage has closed a match.
	OnMatchEnd func(m *core.Match, duration time.Duration)
}

// record is one storage call. done is set for lifecycle calls whose
// caller waits for the result.
type record struct {
	kind string
	fn   func(storage.Backend) error
	done chan error
}

// TickStats is the summary of the most recent tick.
type TickStats struct {
	Tick     uint64
	Duration time.Duration
	Active   int
	Hits     int
	Kills    int
}

// Manager connects the dispatcher, the simulation and the storage backend.
// It is the simulation's Recorder: outcomes are handed to a single storage
// goroutine so the tick never waits on I/O.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	log     *slog.Logger

	records channel.Channel[record]
	done    chan struct{}
	mu      sync.RWMutex
	stopped bool

	dropped  atomic.Uint64
	lastTick atomic.Pointer[TickStats]
}

var _ sim.Recorder = (*Manager)(nil)

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = DefaultQueueSize
	}
	if deps.MatchContext == nil {
		deps.MatchContext = match.NewContext()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		log:     deps.Logger,
		records: channel.New[record](deps.QueueSize),
		done:    make(chan struct{}),
	}
}

// SetSimulation attaches the simulation the handlers drive. The simulation
// is usually built with this Manager as its Recorder, so it arrives late.
func (m *Manager) SetSimulation(s *sim.Simulation) {
	m.deps.Sim = s
}

// Start launches the storage goroutine.
func (m *Manager) Start() {
	go m.storageLoop()
}

// Stop closes the hand-off and waits until everything queued is stored.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.records.Close()
	m.mu.Unlock()
	<-m.done
}

func (m *Manager) storageLoop() {
	defer close(m.done)
	for r := range m.records.Receive() {
		err := r.fn(m.backend)
		if r.done != nil {
			r.done <- err
			continue
		}
		if err != nil {
			m.log.Warn("Failed to record outcome", "kind", r.kind, "error", err)
		}
	}
}

// enqueue hands an outcome to storage without blocking.
func (m *Manager) enqueue(kind string, fn func(storage.Backend) error) {
	if !m.deps.MatchContext.Active() {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		return
	}
	if !m.records.TrySend(record{kind: kind, fn: fn}) {
		if m.dropped.Add(1)%1000 == 1 {
			m.log.Warn("Storage queue full, dropping outcomes", "kind", kind, "dropped", m.dropped.Load())
		}
	}
}

// call runs fn on the storage goroutine after everything already queued,
// and waits for its result.
func (m *Manager) call(kind string, fn func(storage.Backend) error) error {
	done := make(chan error, 1)
	m.mu.RLock()
	if m.stopped {
		m.mu.RUnlock()
		return ErrStopped
	}
	m.records.Send(record{kind: kind, fn: fn, done: done})
	m.mu.RUnlock()
	return <-done
}

// Dropped returns how many outcomes were discarded because storage fell behind.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}

// Pending returns the number of outcomes waiting for the storage goroutine.
func (m *Manager) Pending() int {
	return m.records.Len()
}

// LastTick returns the summary of the most recent tick.
func (m *Manager) LastTick() TickStats {
	if s := m.lastTick.Load(); s != nil {
		return *s
	}
	return TickStats{}
}

// GetWriteQueueLengths returns the backend's queued rows, zero if it has none.
func (m *Manager) GetWriteQueueLengths() model.WriteQueueLengths {
	if r, ok := m.backend.(storage.QueueReporter); ok {
		return r.GetWriteQueueLengths()
	}
	return model.WriteQueueLengths{}
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if r, ok := m.backend.(storage.QueueReporter); ok {
		return r.GetLastDBWriteDuration()
	}
	return 0
}
