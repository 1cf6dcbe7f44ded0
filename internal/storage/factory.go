// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/storage/memory"
	"github.com/TheFortz/combat/internal/storage/postgres"
	sqlitestorage "github.com/TheFortz/combat/internal/storage/sqlite"
	"github.com/TheFortz/combat/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// Options carries what the SQL and streaming backends need beyond their config.
type Options struct {
	Logger   *slog.Logger
	DBLogger zerolog.Logger
	// Settings is stored with every match (combat tuning, seed, tick rate).
	Settings any
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, opts.Logger, opts.DBLogger, opts.Settings, cfg.SQLite.DumpPath), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, opts.Logger, opts.DBLogger, opts.Settings)
	case "websocket":
		if cfg.WebSocket.URL == "" {
			return nil, fmt.Errorf("websocket storage requires storage.websocket.url")
		}
		return websocket.New(cfg.WebSocket, opts.Logger, opts.Settings), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
