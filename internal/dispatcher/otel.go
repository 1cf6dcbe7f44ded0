package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/TheFortz/combat/internal/dispatcher"

type metrics struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	latency   metric.Float64Histogram
}

func newMetrics(depths func(func(string, int))) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)

	if out.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if out.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Events whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if out.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events dropped on a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if out.latency, err = m.Float64Histogram("dispatcher.handler.duration",
		metric.WithDescription("Handler run time"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	queue, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered queue"))
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		depths(func(cmd string, n int) {
			o.ObserveInt64(queue, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		})
		return nil
	}, queue)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	return &out, nil
}

// observe runs fn and records its outcome for command.
func (m *metrics) observe(command string, fn func() (any, error)) (any, error) {
	start := time.Now()
	result, err := fn()

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("command", command))
	m.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	m.processed.Add(ctx, 1, attrs)
	if err != nil {
		m.failed.Add(ctx, 1, attrs)
	}
	return result, err
}

func (m *metrics) drop(command string) {
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}
