// Package database opens the gorm connections behind the SQL storage
// backends and owns schema migration.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultServerName seeds server_infos when none is configured.
const DefaultServerName = "Fortz"

const inMemory = "file::memory:"

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// Conn is an open database. Fallback is set when Postgres was unreachable
// and the connection is an in-memory SQLite database instead.
type Conn struct {
	DB       *gorm.DB
	Fallback bool
}

// PostgresDSN builds a libpq keyword/value connection string.
func PostgresDSN(cfg config.PostgresConfig) string {
	ssl := cfg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, ssl)
}

// OpenPostgres connects and pings the server.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// OpenSQLite opens the database at path, or a private in-memory database
// when path is empty.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = inMemory
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// an in-memory database lives and dies with its connection
	if path == "" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// Open connects to Postgres, falling back to in-memory SQLite when the
// server cannot be reached.
func Open(cfg config.PostgresConfig, log zerolog.Logger) (*Conn, error) {
	db, pgErr := OpenPostgres(cfg)
	if pgErr == nil {
		log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to Postgres")
		return &Conn{DB: db}, nil
	}

	log.Error().Err(pgErr).Msg("Failed to connect to Postgres, falling back to in-memory SQLite")
	db, err := OpenSQLite("")
	if err != nil {
		return nil, errors.Join(pgErr, fmt.Errorf("sqlite fallback: %w", err))
	}
	return &Conn{DB: db, Fallback: true}, nil
}

// Migrate creates or updates every table and seeds the server_infos row
// once.
func Migrate(db *gorm.DB, log zerolog.Logger, serverName string) error {
	if serverName == "" {
		serverName = DefaultServerName
	}
	if !db.Migrator().HasTable(&model.ServerInfo{}) {
		if err := db.AutoMigrate(&model.ServerInfo{}); err != nil {
			return fmt.Errorf("failed to create server_infos table: %w", err)
		}
		if err := db.Create(&model.ServerInfo{
			ServerName:  serverName,
			Description: "Fortz combat server",
		}).Error; err != nil {
			return fmt.Errorf("failed to seed server_infos: %w", err)
		}
	}

	log.Info().Str("dialect", db.Name()).Int("tables", len(model.DatabaseModels)).Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Snapshot writes a point-in-time copy of a SQLite database to path with
// VACUUM INTO, replacing any existing file. Writers need not pause.
func Snapshot(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("snapshot path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous snapshot: %w", err)
	}

	quoted := strings.ReplaceAll(path, "'", "''")
	if err := db.Exec("VACUUM INTO '" + quoted + "';").Error; err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}
