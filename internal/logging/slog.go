package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName tags records sent through the OTel bridge.
const ServiceName = "fortz-combat"

// fallback output when no file is given; stdout is reserved for host
// responses. Replaced in tests.
var osStderr io.Writer = os.Stderr

// SlogManager owns the process logger: a text handler for the session log,
// the OTel bridge and any extra sinks, all behind one Fanout.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
	context     ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// SetContextProvider makes every record carry the attributes returned by p.
// It takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.context = p
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// utcTime renders record times as RFC3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup (re)builds the logger. Records go to file, or stderr when file is
// nil, plus the OTel bridge when provider is set and every extra handler
// (e.g. Graylog).
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	if file == nil {
		file = osStderr
	}
	m.logProvider = provider

	handlers := []slog.Handler{
		slog.NewTextHandler(file, &slog.HandlerOptions{
			Level:       parseLevel(level),
			ReplaceAttr: utcTime,
		}),
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}
	handlers = append(handlers, extra...)

	m.logger = slog.New(NewFanout(m.context, handlers...))
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush exports buffered OTel records, if any.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}
