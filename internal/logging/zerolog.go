package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLevel converts a config log level to a zerolog level.
func ZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ZerologHook adds runtime fields (current match, tick) to every event.
type ZerologHook func(e *zerolog.Event)

// NewZerolog builds the structured logger used by the dispatcher, database
// and metrics managers. Console output is written without colours to out;
// raw JSON goes to every sink (e.g. a Graylog writer).
func NewZerolog(out io.Writer, level string, hook ZerologHook, sinks ...io.Writer) zerolog.Logger {
	writers := make([]io.Writer, 0, len(sinks)+1)
	if out != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	for _, s := range sinks {
		if s != nil {
			writers = append(writers, s)
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ZerologLevel(level)).
		With().Timestamp().Logger()

	if hook != nil {
		logger = logger.Hook(zerolog.HookFunc(
			func(e *zerolog.Event, _ zerolog.Level, _ string) {
				hook(e)
			}))
	}
	return logger
}

// Sampled returns a logger for per-tick chatter: bursts of 5 entries per
// 10 seconds, then 1 in 100.
func Sampled(logger zerolog.Logger) zerolog.Logger {
	return logger.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
