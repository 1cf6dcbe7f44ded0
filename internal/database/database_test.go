package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachablePostgres() config.PostgresConfig {
	return config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "nobody",
		Password: "nothing",
		Database: "none",
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "db.internal",
		Port:     "6543",
		Username: "fortz",
		Password: "pw",
		Database: "combat",
	}
	assert.Equal(t, "host=db.internal port=6543 user=fortz password=pw dbname=combat sslmode=disable", PostgresDSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestOpenFallsBackToSQLite(t *testing.T) {
	conn, err := Open(unreachablePostgres(), zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, conn.Fallback)
	assert.Equal(t, "sqlite", conn.DB.Name())
}

func TestMigrate(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(db, zerolog.Nop(), ""))
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	var info model.ServerInfo
	require.NoError(t, db.First(&info).Error)
	assert.Equal(t, DefaultServerName, info.ServerName)

	// second run neither fails nor seeds again
	require.NoError(t, Migrate(db, zerolog.Nop(), "Other"))
	var count int64
	require.NoError(t, db.Model(&model.ServerInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSnapshot(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop(), "Arena 1"))
	require.NoError(t, db.Create(&model.Match{MatchName: "dump", StartTime: time.Now()}).Error)

	path := filepath.Join(t.TempDir(), "nested", "combat.db")
	require.NoError(t, Snapshot(db, path))
	require.NoError(t, Snapshot(db, path), "existing snapshot is replaced")

	disk, err := OpenSQLite(path)
	require.NoError(t, err)
	var m model.Match
	require.NoError(t, disk.First(&m).Error)
	assert.Equal(t, "dump", m.MatchName)
}

func TestSnapshotNoPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	assert.Error(t, Snapshot(db, ""))
}
