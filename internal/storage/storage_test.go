// internal/storage/storage_test.go
package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/storage"
	gormstorage "github.com/TheFortz/combat/internal/storage/gorm"
	"github.com/TheFortz/combat/internal/storage/memory"
	"github.com/TheFortz/combat/internal/storage/postgres"
	sqlitestorage "github.com/TheFortz/combat/internal/storage/sqlite"
	"github.com/TheFortz/combat/internal/storage/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks.
var (
	_ storage.Backend       = (*memory.Backend)(nil)
	_ storage.Uploadable    = (*memory.Backend)(nil)
	_ storage.Backend       = (*gormstorage.Backend)(nil)
	_ storage.QueueReporter = (*gormstorage.Backend)(nil)
	_ storage.PerformanceRecorder = (*gormstorage.Backend)(nil)
	_ storage.Backend       = (*sqlitestorage.Backend)(nil)
	_ storage.QueueReporter = (*sqlitestorage.Backend)(nil)
	_ storage.Backend       = (*postgres.Backend)(nil)
	_ storage.QueueReporter = (*postgres.Backend)(nil)
	_ storage.Backend       = (*websocket.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    any
		wantErr bool
	}{
		{name: "default", cfg: config.StorageConfig{}, want: &memory.Backend{}},
		{name: "memory", cfg: config.StorageConfig{Type: "memory"}, want: &memory.Backend{}},
		{name: "sqlite", cfg: config.StorageConfig{Type: "sqlite"}, want: &sqlitestorage.Backend{}},
		{name: "postgres", cfg: config.StorageConfig{Type: "postgres"}, want: &postgres.Backend{}},
		{
			name: "websocket",
			cfg:  config.StorageConfig{Type: "websocket", WebSocket: config.WebSocketConfig{URL: "ws://localhost:1/ws"}},
			want: &websocket.Backend{},
		},
		{name: "websocket without url", cfg: config.StorageConfig{Type: "websocket"}, wantErr: true},
		{name: "unknown", cfg: config.StorageConfig{Type: "mongo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, storage.Options{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestMemoryBackendIsUploadable(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: filepath.Join(t.TempDir(), "out")},
	}, storage.Options{})
	require.NoError(t, err)

	_, ok := b.(storage.Uploadable)
	assert.True(t, ok)
	_, ok = b.(storage.QueueReporter)
	assert.False(t, ok)
}
