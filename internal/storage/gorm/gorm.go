// Package gormstorage implements the storage.Backend interface on any gorm
// dialect, with internal queues and a background DB writer goroutine.
// The postgres and sqlite backends differ only in how they obtain the *gorm.DB.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheFortz/combat/internal/database"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/internal/model/convert"
	"github.com/TheFortz/combat/internal/queue"
	"github.com/TheFortz/combat/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

const (
	// DefaultFlushInterval is how often queued rows are written.
	DefaultFlushInterval = 2 * time.Second
	// DefaultBatchSize caps the rows written per table per flush.
	DefaultBatchSize = 5000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB *gorm.DB
	// Open is called by Init when DB is nil.
	Open     func() (*gorm.DB, error)
	Logger   *slog.Logger
	DBLogger zerolog.Logger
	// Settings is stored with every match row.
	Settings any
	// ServerName seeds server_infos on first migration.
	ServerName string

	FlushInterval time.Duration
	BatchSize     int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Shots      *queue.Queue[model.Shot]
	Hits       *queue.Queue[model.Hit]
	Components *queue.Queue[model.ComponentDamage]
	Effects    *queue.Queue[model.Effect]
	Kills      *queue.Queue[model.Kill]
	Perf       *queue.Queue[model.SimPerformance]
}

func newQueues() *queues {
	return &queues{
		Shots:      queue.New[model.Shot](),
		Hits:       queue.New[model.Hit](),
		Components: queue.New[model.ComponentDamage](),
		Effects:    queue.New[model.Effect](),
		Kills:      queue.New[model.Kill](),
		Perf:       queue.New[model.SimPerformance](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	db      *gorm.DB
	queues  *queues
	matchID atomic.Uint64

	flushMu   sync.Mutex
	lastWrite atomic.Int64

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection, nil before Init.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init opens the DB if needed, runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.db = b.deps.DB
	if b.db == nil {
		if b.deps.Open == nil {
			return errors.New("no database configured")
		}
		db, err := b.deps.Open()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		b.db = db
	}

	if err := database.Migrate(b.db, b.deps.DBLogger, b.deps.ServerName); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done
	})
	return nil
}

// StartMatch inserts the match row and assigns its ID to m.
// Rows still queued for a previous match are flushed first.
func (b *Backend) StartMatch(m *core.Match) error {
	if b.db == nil {
		return errors.New("backend not initialized")
	}
	b.Flush()

	row, err := convert.CoreToMatch(*m, b.deps.Settings)
	if err != nil {
		return err
	}
	row.ID = 0
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}

	m.ID = row.ID
	b.matchID.Store(uint64(row.ID))
	return nil
}

// EndMatch flushes pending rows and stamps the match end time.
func (b *Backend) EndMatch(end time.Time) error {
	id := uint(b.matchID.Load())
	if id == 0 {
		return match.ErrNoMatch
	}
	b.Flush()
	b.matchID.Store(0)

	if err := b.db.Model(&model.Match{}).Where("id = ?", id).Update("end_time", end).Error; err != nil {
		return fmt.Errorf("failed to end match %d: %w", id, err)
	}
	return nil
}

func (b *Backend) currentMatch() (uint, error) {
	id := uint(b.matchID.Load())
	if id == 0 {
		return 0, match.ErrNoMatch
	}
	return id, nil
}

// RecordShot converts and queues a shot.
func (b *Backend) RecordShot(e *core.ShotEvent) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	b.queues.Shots.Push(convert.CoreToShot(*e, id))
	return nil
}

// RecordHit converts and queues a hit.
func (b *Backend) RecordHit(e *core.HitEvent) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	b.queues.Hits.Push(convert.CoreToHit(*e, id))
	return nil
}

// RecordComponentDamage converts and queues component damage.
func (b *Backend) RecordComponentDamage(e *core.ComponentEvent) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	b.queues.Components.Push(convert.CoreToComponentDamage(*e, id))
	return nil
}

// RecordEffect converts and queues an effect.
func (b *Backend) RecordEffect(e *core.EffectEvent) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	row, err := convert.CoreToEffect(*e, id)
	if err != nil {
		return err
	}
	b.queues.Effects.Push(row)
	return nil
}

// RecordKill converts and queues a kill.
func (b *Backend) RecordKill(e *core.KillEvent) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	b.queues.Kills.Push(convert.CoreToKill(*e, id))
	return nil
}

// RecordPerformance queues a simulation health sample for the current match.
func (b *Backend) RecordPerformance(p model.SimPerformance) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	p.MatchID = id
	b.queues.Perf.Push(p)
	return nil
}

// GetWriteQueueLengths reports the rows waiting in each queue.
func (b *Backend) GetWriteQueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		Shots:      b.queues.Shots.Len(),
		Hits:       b.queues.Hits.Len(),
		Components: b.queues.Components.Len(),
		Effects:    b.queues.Effects.Len(),
		Kills:      b.queues.Kills.Len(),
	}
}

// GetLastDBWriteDuration returns how long the last flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush writes every queue until empty or a write fails.
func (b *Backend) Flush() {
	if b.db == nil {
		return
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	size := b.deps.BatchSize
	log := b.deps.Logger
	drainQueue(b.db, b.queues.Shots, "shots", size, log)
	drainQueue(b.db, b.queues.Hits, "hits", size, log)
	drainQueue(b.db, b.queues.Components, "component damages", size, log)
	drainQueue(b.db, b.queues.Effects, "effects", size, log)
	drainQueue(b.db, b.queues.Kills, "kills", size, log)
	drainQueue(b.db, b.queues.Perf, "sim performances", size, log)
	b.lastWrite.Store(int64(time.Since(start)))
}

// drainQueue writes batches until the queue is empty or a write fails.
func drainQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, size int, log *slog.Logger) {
	for !q.Empty() {
		if !writeQueue(db, q, name, size, log) {
			return
		}
	}
}

// writeQueue writes up to size items from a queue in a transaction.
// A failed batch goes back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, size int, log *slog.Logger) bool {
	items := q.Take(size)
	if len(items) == 0 {
		return true
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Match").Create(&items).Error
	})
	if err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		q.Requeue(items...)
		return false
	}
	return true
}

// writerLoop periodically drains queues into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
