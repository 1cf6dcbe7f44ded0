package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/influx"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/internal/worker"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultInterval is how often a status snapshot is taken.
const DefaultInterval = time.Second

// StatusFileName is written to StatusDir on every snapshot.
const StatusFileName = "status.json"

// Source is what the monitor samples; *worker.Manager implements it.
type Source interface {
	LastTick() worker.TickStats
	Pending() int
	Dropped() uint64
	GetWriteQueueLengths() model.WriteQueueLengths
	GetLastDBWriteDuration() time.Duration
}

// PointWriter accepts influx points; *influx.Manager implements it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger       *slog.Logger
	MatchContext *match.Context
	Source       Source
	// Entities reports the live entity count.
	Entities func() int
	// Influx is optional.
	Influx PointWriter
	// StatusDir is where status.json goes; empty disables the file.
	StatusDir string
	Interval  time.Duration
}

// Status is one snapshot of the running process.
type Status struct {
	Time                time.Time               `json:"time"`
	Match               string                  `json:"match"`
	MatchID             uint                    `json:"matchId"`
	Tick                uint64                  `json:"tick"`
	TickDurationMs      float64                 `json:"tickDurationMs"`
	ActiveProjectiles   int                     `json:"activeProjectiles"`
	Entities            int                     `json:"entities"`
	PendingOutcomes     int                     `json:"pendingOutcomes"`
	DroppedOutcomes     uint64                  `json:"droppedOutcomes"`
	WriteQueues         model.WriteQueueLengths `json:"writeQueues"`
	LastWriteDurationMs float64                 `json:"lastWriteDurationMs"`
}

// Point converts the snapshot for the sim_performance bucket.
func (s Status) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"status",
		map[string]string{"match": s.Match},
		map[string]any{
			"tick":                   int64(s.Tick),
			"tick_duration_ms":       s.TickDurationMs,
			"active_projectiles":     s.ActiveProjectiles,
			"entities":               s.Entities,
			"pending_outcomes":       s.PendingOutcomes,
			"dropped_outcomes":       int64(s.DroppedOutcomes),
			"write_queue_total":      s.WriteQueues.Total(),
			"last_write_duration_ms": s.LastWriteDurationMs,
		},
		s.Time,
	)
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus takes a snapshot now.
func (s *Service) GetStatus() Status {
	src := s.deps.Source
	tick := src.LastTick()

	st := Status{
		Time:                time.Now(),
		Tick:                tick.Tick,
		TickDurationMs:      float64(tick.Duration.Microseconds()) / 1000,
		ActiveProjectiles:   tick.Active,
		PendingOutcomes:     src.Pending(),
		DroppedOutcomes:     src.Dropped(),
		WriteQueues:         src.GetWriteQueueLengths(),
		LastWriteDurationMs: float64(src.GetLastDBWriteDuration().Microseconds()) / 1000,
	}
	if s.deps.Entities != nil {
		st.Entities = s.deps.Entities()
	}
	if s.deps.MatchContext != nil {
		m := s.deps.MatchContext.GetMatch()
		st.Match, st.MatchID = m.Name, m.ID
	}
	return st
}

// WriteStatusFile replaces status.json in dir with st.
func WriteStatusFile(dir string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run()
}

func (s *Service) run() {
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(s.done)
	}()

	logger := s.deps.Logger
	logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample takes one snapshot and fans it out. Samples outside a match are
// only logged.
func (s *Service) sample() {
	st := s.GetStatus()
	logger := s.deps.Logger

	logger.Debug("Status",
		"tick", st.Tick,
		"tickDurationMs", st.TickDurationMs,
		"projectiles", st.ActiveProjectiles,
		"entities", st.Entities,
		"pending", st.PendingOutcomes,
		"writeQueue", st.WriteQueues.Total(),
	)
	if st.DroppedOutcomes > 0 {
		logger.Warn("Outcomes dropped since start", "dropped", st.DroppedOutcomes)
	}

	if s.deps.StatusDir != "" {
		if err := WriteStatusFile(s.deps.StatusDir, st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Influx == nil || s.deps.MatchContext == nil || !s.deps.MatchContext.Active() {
		return
	}
	if err := s.deps.Influx.WritePoint(influx.BucketSimPerformance, st.Point()); err != nil {
		logger.Error("Error writing status point", "error", err)
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
