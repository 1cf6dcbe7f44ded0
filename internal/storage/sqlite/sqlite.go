// Package sqlitestorage records matches to an in-memory SQLite database and
// snapshots it to disk on an interval and on Close.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/database"
	gormstorage "github.com/TheFortz/combat/internal/storage/gorm"
	"github.com/rs/zerolog"
)

type Backend struct {
	*gormstorage.Backend
	cfg config.SQLiteConfig
	log *slog.Logger

	stop      chan struct{}
	snapshots sync.WaitGroup
	closeOnce sync.Once
}

func New(cfg config.SQLiteConfig, logger *slog.Logger, dbLogger zerolog.Logger, settings any) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:       db,
			Logger:   logger,
			DBLogger: dbLogger,
			Settings: settings,
		}),
		cfg:  cfg,
		log:  logger,
		stop: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts periodic snapshots when both a path
// and an interval are configured.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.snapshots.Add(1)
		go b.snapshotLoop()
	}
	return nil
}

// Close stops periodic snapshots, drains the writer and takes a final
// snapshot so nothing recorded is lost.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stop)
		b.snapshots.Wait()
		if err = b.Backend.Close(); err == nil {
			err = b.Dump()
		}
	})
	return err
}

// Dump snapshots the database to the configured path; a no-op without one.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" || b.DB() == nil {
		return nil
	}
	start := time.Now()
	if err := database.Snapshot(b.DB(), b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("SQLite snapshot written", "path", b.cfg.DumpPath, "took", time.Since(start))
	return nil
}

func (b *Backend) snapshotLoop() {
	defer b.snapshots.Done()
	t := time.NewTicker(b.cfg.DumpInterval)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			b.Flush()
			if err := b.Dump(); err != nil {
				b.log.Error("SQLite snapshot failed", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}
