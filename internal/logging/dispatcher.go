package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// DispatcherLogger lets the command dispatcher log through zerolog.
// Debug output is per-command and goes through Sampled so a busy match
// does not flood the session log.
type DispatcherLogger struct {
	logger  zerolog.Logger
	sampled zerolog.Logger
}

func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger, sampled: Sampled(logger)}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	withPairs(l.sampled.Debug(), keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	withPairs(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	withPairs(l.logger.Error(), keysAndValues).Msg(msg)
}

// withPairs appends alternating key/value pairs. Non-string keys and a
// trailing key without a value are skipped.
func withPairs(e *zerolog.Event, kv []any) *zerolog.Event {
	if e == nil {
		return e
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		case string:
			e = e.Str(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}
