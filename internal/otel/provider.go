// Package otel owns the OpenTelemetry log pipeline. Metrics instruments are
// taken from the global meter provider, so they stay no-ops until one is
// installed.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is used when Config.ServiceName is empty.
const DefaultServiceName = "fortz-combat"

// ErrNoSinks is returned when OTel is enabled with nowhere to send records.
var ErrNoSinks = errors.New("otel enabled but no log writer or endpoint configured")

// Config holds OTel configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	// LogWriter receives every record as JSON, usually the session log file.
	LogWriter io.Writer
	// Endpoint is an OTLP/HTTP collector; empty disables export.
	Endpoint string
	Insecure bool
}

// Provider is the process-wide OTel log provider. The zero value (and a
// disabled Provider) is a no-op.
type Provider struct {
	enabled     bool
	serviceName string
	logProvider *sdklog.LoggerProvider
}

// New creates a Provider. A disabled config yields a no-op Provider.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	ctx := context.Background()
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	processors, err := logProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := make([]sdklog.LoggerProviderOption, 0, len(processors)+1)
	opts = append(opts, sdklog.WithResource(res))
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}

	return &Provider{
		enabled:     true,
		serviceName: cfg.ServiceName,
		logProvider: sdklog.NewLoggerProvider(opts...),
	}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := resource.WithAttributes(semconv.ServiceName(cfg.ServiceName))
	if cfg.ServiceVersion != "" {
		attrs = resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		)
	}
	res, err := resource.New(ctx, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// logProcessors builds one batch processor per configured sink.
func logProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var exporters []sdklog.Exporter

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter))
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if len(exporters) == 0 {
		return nil, ErrNoSinks
	}

	processors := make([]sdklog.Processor, len(exporters))
	for i, exp := range exporters {
		processors[i] = sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout))
	}
	return processors, nil
}

// LoggerProvider returns the provider for the otelslog bridge, nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a meter from the global meter provider.
func (p *Provider) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Flush exports every buffered record. The host calls it when a match ends
// so the recording and its logs line up.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the log pipeline. The Provider is a no-op afterwards.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	lp := p.logProvider
	p.logProvider = nil
	if err := lp.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.enabled
}

// ServiceName is the name records are exported under.
func (p *Provider) ServiceName() string {
	return p.serviceName
}
