// Command fortz_combat runs the combat simulation for a game host. The host
// writes commands to stdin, one per line, and reads JSON responses from
// stdout. Logs never go to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/logging"
	"github.com/TheFortz/combat/internal/match"
	intOtel "github.com/TheFortz/combat/internal/otel"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate and Version can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// ProcessName prefixes the log file and the Graylog facility.
const ProcessName = "fortz_combat"

var (
	SessionStartTime = time.Now()

	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider
	LogFilePath  string
)

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	// stdout belongs to the host protocol
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(os.Stderr, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", *configDir)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "path", logsDir, "error", err)
	}

	matchCtx := match.NewContext()
	logFile, dbLogger := setupLogging(logsDir, matchCtx)
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, options{
		Logger:       Logger,
		DBLogger:     dbLogger,
		Storage:      config.GetStorageConfig(),
		Sim:          config.GetSimConfig(),
		Influx:       config.GetInfluxConfig(),
		LogsDir:      logsDir,
		Tag:          config.GetString("defaultTag"),
		MatchContext: matchCtx,
		APIURL:       config.GetString("api.serverUrl"),
		APIKey:       config.GetString("api.apiKey"),
		FlushLogs:    flushLogs,
	})
	if err != nil {
		Logger.Error("Failed to start", "error", err)
		shutdownTelemetry()
		os.Exit(1)
	}
	Logger.Info("Ready", "version", Version, "tickRate", config.GetSimConfig().TickRate)

	if err := a.run(ctx, os.Stdin, os.Stdout); err != nil {
		Logger.Error("Command loop stopped", "error", err)
	}

	Logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a.shutdown(shutdownCtx)
	cancel()

	shutdownTelemetry()
}

// setupLogging opens the session log file, starts OTel if enabled and
// re-initialises slog with the match context. The returned zerolog logger
// feeds the dispatcher, database and influx managers, and Graylog if enabled.
func setupLogging(logsDir string, matchCtx *match.Context) (*os.File, zerolog.Logger) {
	level := config.GetString("logLevel")

	LogFilePath = logging.LogFilePath(logsDir, ProcessName, SessionStartTime)
	var logOut io.Writer = os.Stderr
	logFile, err := logging.OpenLogFile(LogFilePath)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	} else {
		logOut = logFile
		Logger.Info("Begin logging in logs directory", "path", LogFilePath)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: Version,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logOut,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var sinks []io.Writer
	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		gw, err := logging.NewGelfWriter(gl.Address, ProcessName)
		if err != nil {
			Logger.Error("Failed to set up Graylog", "error", err)
		} else {
			sinks = append(sinks, gw)
			extra = append(extra, slog.NewJSONHandler(gw, nil))
			Logger.Info("Sending logs to Graylog", "address", gl.Address)
		}
	}

	var provider *sdklog.LoggerProvider
	if OTelProvider != nil {
		provider = OTelProvider.LoggerProvider()
	}
	SlogManager.SetContextProvider(matchLogContext(matchCtx))
	SlogManager.Setup(logOut, level, provider, extra...)
	Logger = SlogManager.Logger()

	dbLogger := logging.NewZerolog(logOut, level, matchLogHook(matchCtx), sinks...)
	return logFile, dbLogger
}

// matchLogContext adds the running match to every slog record.
func matchLogContext(ctx *match.Context) logging.ContextProvider {
	return func() []slog.Attr {
		if !ctx.Active() {
			return nil
		}
		m := ctx.GetMatch()
		return []slog.Attr{
			slog.String("match", m.Name),
			slog.Uint64("matchId", uint64(m.ID)),
		}
	}
}

// matchLogHook is the zerolog counterpart of matchLogContext.
func matchLogHook(ctx *match.Context) logging.ZerologHook {
	return func(e *zerolog.Event) {
		if !ctx.Active() {
			return
		}
		m := ctx.GetMatch()
		e.Str("match", m.Name).Uint("matchId", m.ID)
	}
}

func flushLogs(ctx context.Context) error {
	if OTelProvider == nil {
		return nil
	}
	return OTelProvider.Flush(ctx)
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shut down OTel: %v\n", err)
		}
	}
}
