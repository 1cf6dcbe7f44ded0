// Package postgres implements the storage.Backend interface on PostgreSQL.
// When the server is unreachable it records to an in-memory SQLite database
// instead and snapshots it to disk on Close.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/database"
	gormstorage "github.com/TheFortz/combat/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Backend struct {
	*gormstorage.Backend
	cfg          config.PostgresConfig
	fallbackPath string
	dbLog        zerolog.Logger
	log          *slog.Logger
	conn         *database.Conn
}

// New creates the backend. fallbackPath is where the SQLite fallback is
// written on Close; empty skips the snapshot.
func New(cfg config.PostgresConfig, logger *slog.Logger, dbLogger zerolog.Logger, settings any, fallbackPath string) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		cfg:          cfg,
		fallbackPath: fallbackPath,
		dbLog:        dbLogger,
		log:          logger,
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		Open:       b.open,
		Logger:     logger,
		DBLogger:   dbLogger,
		Settings:   settings,
		ServerName: cfg.ServerName,
	})
	return b
}

func (b *Backend) open() (*gorm.DB, error) {
	conn, err := database.Open(b.cfg, b.dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.conn = conn
	if conn.Fallback {
		b.log.Warn("Postgres unavailable, recording to in-memory SQLite", "snapshot", b.fallbackPath)
	}
	return conn.DB, nil
}

// Fallback reports whether the backend is writing to the SQLite fallback.
func (b *Backend) Fallback() bool {
	return b.conn != nil && b.conn.Fallback
}

// Close stops the writer after a final flush, then snapshots the fallback
// database if one is in use.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if !b.Fallback() || b.fallbackPath == "" {
		return nil
	}
	if err := database.Snapshot(b.conn.DB, b.fallbackPath); err != nil {
		return fmt.Errorf("failed to snapshot fallback database: %w", err)
	}
	b.log.Info("Fallback database written", "path", b.fallbackPath)
	return nil
}
