// Package logging builds the process loggers: slog for application logs,
// zerolog for the dispatcher, storage and metrics layers, and the sinks
// both share (session file, OTel, Graylog).
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath is <logsDir>/<process>.<session start>.log.
func LogFilePath(logsDir, processName string, sessionStart time.Time) string {
	name := fmt.Sprintf("%s.%s.log", processName, sessionStart.Format("20060102_150405"))
	return filepath.Join(logsDir, name)
}

// OpenLogFile opens path for appending. A file left over from a session
// with the same start second is moved aside to path.old first.
func OpenLogFile(path string) (*os.File, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("rotate %s: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
