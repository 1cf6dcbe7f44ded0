package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/api"
	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/dispatcher"
	"github.com/TheFortz/combat/internal/influx"
	"github.com/TheFortz/combat/internal/logging"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/monitor"
	"github.com/TheFortz/combat/internal/parser"
	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/internal/sim"
	"github.com/TheFortz/combat/internal/storage"
	"github.com/TheFortz/combat/internal/worker"
	"github.com/TheFortz/combat/pkg/core"
	"github.com/TheFortz/combat/pkg/hostio"
	"github.com/rs/zerolog"
)

// Commands handled by the process itself rather than the worker.
const (
	CmdVersion = ":VERSION:"
	CmdStatus  = ":STATUS:"
	CmdMetric  = ":METRIC:"
)

// options is everything newApp needs, resolved from config by main.
type options struct {
	Logger   *slog.Logger
	DBLogger zerolog.Logger

	Storage config.StorageConfig
	Sim     config.SimConfig
	Influx  config.InfluxConfig

	LogsDir string
	Tag     string

	// MatchContext is shared with the log context provider; nil creates one.
	MatchContext *match.Context

	// APIURL is the match archive; empty disables uploads.
	APIURL string
	APIKey string

	// MonitorInterval overrides monitor.DefaultInterval.
	MonitorInterval time.Duration
	// Source overrides the seeded random source.
	Source rng.Source
	// FlushLogs runs after every match so its logs are exported with it.
	FlushLogs func(context.Context) error
}

// app wires the simulation to its input layer, storage and metrics.
type app struct {
	log  *slog.Logger
	zlog zerolog.Logger

	matchCtx   *match.Context
	backend    storage.Backend
	influx     *influx.Manager
	worker     *worker.Manager
	sim        *sim.Simulation
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service
	api        *api.Client

	tickRate     int
	tickInterval time.Duration
	flushLogs    func(context.Context) error

	uploads      sync.WaitGroup
	shutdownOnce sync.Once
}

func newApp(ctx context.Context, opts options) (*app, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MatchContext == nil {
		opts.MatchContext = match.NewContext()
	}
	a := &app{
		log:          opts.Logger,
		zlog:         opts.DBLogger,
		matchCtx:     opts.MatchContext,
		tickRate:     max(opts.Sim.TickRate, 1),
		tickInterval: opts.Sim.TickInterval(),
		flushLogs:    opts.FlushLogs,
	}
	if opts.APIURL != "" {
		a.api = api.New(opts.APIURL, opts.APIKey)
	}

	backend, err := storage.NewBackend(opts.Storage, storage.Options{
		Logger:   opts.Logger,
		DBLogger: opts.DBLogger,
		Settings: opts.Sim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", opts.Storage.Type, err)
	}
	a.backend = backend
	a.log.Info("Storage backend initialized", "type", opts.Storage.Type)

	a.connectInflux(ctx, opts)

	a.worker = worker.NewManager(worker.Dependencies{
		MatchContext:  a.matchCtx,
		ParserService: parser.NewParser(opts.Logger),
		Logger:        opts.Logger,
		TickRate:      a.tickRate,
		Tag:           opts.Tag,
		OnMatchEnd:    a.onMatchEnd,
	}, backend)

	var recorder sim.Recorder = a.worker
	if a.influx != nil {
		recorder = sim.Tee{a.worker, influx.NewRecorder(a.influx, a.matchName)}
	}
	src := opts.Source
	if src == nil {
		src = rng.New(opts.Sim.Seed)
	}
	a.sim, err = sim.New(sim.Config{
		MaxProjectiles: opts.Sim.MaxProjectiles,
		HomingRange:    opts.Sim.HomingRange,
		HomingTurnRate: opts.Sim.HomingTurnRate,
	}, sim.WithRecorder(recorder), sim.WithSource(src), sim.WithLogger(opts.Logger))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	a.worker.SetSimulation(a.sim)
	a.worker.Start()

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(opts.DBLogger))
	if err != nil {
		a.worker.Stop()
		backend.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.worker.RegisterHandlers(a.dispatcher)

	monDeps := monitor.Dependencies{
		Logger:       opts.Logger,
		MatchContext: a.matchCtx,
		Source:       a.worker,
		Entities:     a.sim.EntityCount,
		StatusDir:    opts.LogsDir,
		Interval:     opts.MonitorInterval,
	}
	if a.influx != nil {
		monDeps.Influx = a.influx
	}
	a.monitor = monitor.NewService(monDeps)
	a.registerProcessHandlers()

	return a, nil
}

func (a *app) connectInflux(ctx context.Context, opts options) {
	backup := filepath.Join(opts.LogsDir, fmt.Sprintf("influx_backup_%s.log.gz", time.Now().Format("20060102_150405")))
	m := influx.NewManager(opts.DBLogger, backup)
	err := m.Connect(ctx, opts.Influx)
	switch {
	case errors.Is(err, influx.ErrDisabled):
		return
	case err != nil:
		a.log.Error("Failed to set up InfluxDB, metrics disabled", "error", err)
		return
	}
	a.influx = m
}

func (a *app) registerProcessHandlers() {
	a.dispatcher.Register(CmdVersion, func(dispatcher.Event) (any, error) {
		return []string{Version, BuildDate}, nil
	})
	a.dispatcher.Register(CmdStatus, func(dispatcher.Event) (any, error) {
		return a.monitor.GetStatus(), nil
	})
	if a.influx != nil {
		a.dispatcher.Register(CmdMetric, func(e dispatcher.Event) (any, error) {
			bucket, point, err := influx.ParseMetric(e.Args)
			if err != nil {
				return nil, err
			}
			return nil, a.influx.WritePoint(bucket, point)
		}, dispatcher.Buffered(1000))
	}
}

// matchName labels metrics and logs; empty outside a match.
func (a *app) matchName() string {
	if !a.matchCtx.Active() {
		return ""
	}
	return a.matchCtx.GetMatch().Name
}

// run serves commands from in until EOF or ctx is cancelled, ticking the
// simulation in the background.
func (a *app) run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.monitor.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.tickLoop(ctx)
	}()

	err := hostio.New(a.dispatcher, out).Serve(ctx, in)
	cancel()
	wg.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(a.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.step(now.Sub(last))
			last = now
		}
	}
}

// step advances the simulation by dt and forwards the report.
func (a *app) step(dt time.Duration) sim.TickReport {
	report := a.sim.Tick(dt)
	a.worker.OnTick(report)

	if a.influx != nil && a.matchCtx.Active() && report.Tick%uint64(a.tickRate) == 0 {
		p := influx.TickPoint(report, a.matchName(), time.Now())
		if err := a.influx.WritePoint(influx.BucketSimPerformance, p); err != nil {
			a.zlog.Warn().Err(err).Msg("Failed to write tick point")
		}
	}
	return report
}

// onMatchEnd flushes logs and uploads the exported recording when the
// backend produces one.
func (a *app) onMatchEnd(*core.Match, time.Duration) {
	if a.flushLogs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.flushLogs(ctx); err != nil {
			a.log.Warn("Failed to flush logs", "error", err)
		}
		cancel()
	}

	up, ok := a.backend.(storage.Uploadable)
	if !ok || a.api == nil {
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return
	}
	meta := up.GetExportMetadata()

	a.uploads.Add(1)
	go func() {
		defer a.uploads.Done()
		a.upload(path, meta)
	}()
}

func (a *app) upload(path string, meta core.UploadMetadata) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := a.api.Healthcheck(ctx); err != nil {
		a.log.Warn("Match archive unreachable, keeping recording on disk", "path", path, "error", err)
		return
	}
	if err := a.api.Upload(ctx, path, meta); err != nil {
		a.log.Error("Failed to upload recording", "path", path, "match", meta.MatchName, "error", err)
		return
	}
	a.log.Info("Recording uploaded", "path", path, "match", meta.MatchName)
}

// shutdown ends any running match and releases everything in dependency
// order. Storage is closed only after the worker has drained into it.
func (a *app) shutdown(ctx context.Context) {
	a.shutdownOnce.Do(func() {
		if a.matchCtx.Active() {
			if m, dur, err := a.worker.EndMatch(time.Now()); err != nil {
				a.log.Error("Failed to end match on shutdown", "error", err)
			} else {
				a.log.Info("Match ended on shutdown", "match", m.Name, "duration", dur)
			}
		}

		a.dispatcher.Close()
		a.monitor.Stop()
		a.worker.Stop()
		if err := a.backend.Close(); err != nil {
			a.log.Error("Failed to close storage backend", "error", err)
		}

		done := make(chan struct{})
		go func() {
			a.uploads.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.log.Warn("Gave up waiting for uploads", "error", ctx.Err())
		}

		if a.influx != nil {
			if err := a.influx.Close(); err != nil {
				a.log.Error("Failed to close InfluxDB", "error", err)
			}
		}
	})
}
