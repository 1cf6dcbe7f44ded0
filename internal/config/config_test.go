package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// load writes body as the config file in a fresh directory and loads it.
func load(t *testing.T, body string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	require.NoError(t, Load(dir))
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	err := Load(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorContains(t, err, "error reading config file")
	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, 60, GetInt("sim.tickRate"))
}

func TestDefaults(t *testing.T) {
	load(t, `{}`)

	assert.Equal(t, "Arena", GetString("defaultTag"))
	assert.Equal(t, "./fortzlogs", GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000/api", GetString("api.serverUrl"))
	assert.Empty(t, GetString("api.apiKey"))
	assert.False(t, GetBool("graylog.enabled"))

	sc := GetSimConfig()
	assert.Equal(t, SimConfig{
		TickRate:       60,
		MaxProjectiles: 2048,
		HomingRange:    400,
		HomingTurnRate: 0.05,
	}, sc)

	st := GetStorageConfig()
	assert.Equal(t, "memory", st.Type)
	assert.Equal(t, MemoryConfig{OutputDir: "./recordings", CompressOutput: true}, st.Memory)
	assert.Equal(t, 3*time.Minute, st.SQLite.DumpInterval)
	assert.Equal(t, "ws://localhost:5000/ws/combat", st.WebSocket.URL)
	assert.Equal(t, PostgresConfig{
		Host:         "localhost",
		Port:         "5432",
		Username:     "postgres",
		Password:     "postgres",
		Database:     "fortz",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		ServerName:   "Fortz",
	}, st.Postgres)

	assert.Equal(t, OTelConfig{
		ServiceName:  "fortz-combat",
		BatchTimeout: 5 * time.Second,
		Insecure:     true,
	}, GetOTelConfig())

	ic := GetInfluxConfig()
	assert.False(t, ic.Enabled)
	assert.Equal(t, "fortz-metrics", ic.Org)
	assert.Equal(t, "http://localhost:8086", ic.URL())

	assert.Equal(t, GraylogConfig{Address: "localhost:12201"}, GetGraylogConfig())
}

func TestOverrides(t *testing.T) {
	load(t, `{
		"logLevel": "debug",
		"serverName": "Arena 2",
		"db": { "host": "10.0.0.1", "port": "5433", "sslMode": "require" },
		"sim": { "tickRate": 30, "seed": 1234, "maxProjectiles": 64 },
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/c.db" }
		},
		"otel": { "enabled": true, "batchTimeout": "30s", "endpoint": "collector:4318", "insecure": false },
		"influx": { "enabled": true, "host": "metrics", "protocol": "https" },
		"graylog": { "enabled": true, "address": "graylog:12201" }
	}`)

	assert.Equal(t, "debug", GetString("logLevel"))

	sc := GetSimConfig()
	assert.Equal(t, 30, sc.TickRate)
	assert.Equal(t, int64(1234), sc.Seed)
	assert.Equal(t, 64, sc.MaxProjectiles)
	assert.Equal(t, 400.0, sc.HomingRange, "unset keys keep their default")

	st := GetStorageConfig()
	assert.Equal(t, "sqlite", st.Type)
	assert.Equal(t, MemoryConfig{OutputDir: "/tmp/out"}, st.Memory)
	assert.Equal(t, SQLiteConfig{DumpInterval: 10 * time.Minute, DumpPath: "/tmp/c.db"}, st.SQLite)
	assert.Equal(t, "10.0.0.1", st.Postgres.Host)
	assert.Equal(t, "5433", st.Postgres.Port)
	assert.Equal(t, "require", st.Postgres.SSLMode)
	assert.Equal(t, "Arena 2", st.Postgres.ServerName)

	oc := GetOTelConfig()
	assert.True(t, oc.Enabled)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "collector:4318", oc.Endpoint)
	assert.False(t, oc.Insecure)

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "https://metrics:8086", ic.URL())
	assert.Equal(t, "supersecrettoken", ic.Token)

	assert.Equal(t, GraylogConfig{Enabled: true, Address: "graylog:12201"}, GetGraylogConfig())
}

func TestTickInterval(t *testing.T) {
	assert.Equal(t, time.Second/30, SimConfig{TickRate: 30}.TickInterval())
	assert.Equal(t, time.Second/60, SimConfig{}.TickInterval())
	assert.Equal(t, time.Second/60, SimConfig{TickRate: -5}.TickInterval())
}
