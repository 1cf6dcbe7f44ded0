package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	assert.Equal(t,
		filepath.Join("fortzlogs", "fortz_combat.20260212_213836.log"),
		LogFilePath("fortzlogs", "fortz_combat", start))
	assert.Equal(t,
		filepath.Join("/var", "log", "fortz", "fortz_combat.20260212_213836.log"),
		LogFilePath(filepath.Join("/var", "log", "fortz"), "fortz_combat", start))
}

func TestOpenLogFile_RotatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0644))

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("current\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(old))

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "current\n", string(cur))
}

func TestOpenLogFile_MissingDir(t *testing.T) {
	_, err := OpenLogFile(filepath.Join(t.TempDir(), "nope", "session.log"))
	assert.Error(t, err)
}
