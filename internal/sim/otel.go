package sim

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/TheFortz/combat/internal/sim"

type metrics struct {
	tickDuration metric.Float64Histogram
	active       metric.Int64ObservableGauge
	damage       metric.Float64Counter
	hits         metric.Int64Counter

	activeCount atomic.Int64
}

// newMetrics registers the simulation instruments on the global meter
// (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	s := &metrics{}

	var err error
	s.tickDuration, err = m.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time spent in one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	s.active, err = m.Int64ObservableGauge(
		"sim.projectiles.active",
		metric.WithDescription("Projectiles currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active projectiles gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(s.active, s.activeCount.Load())
			return nil
		},
		s.active,
	)
	if err != nil {
		return nil, fmt.Errorf("registering projectiles callback: %w", err)
	}

	s.damage, err = m.Float64Counter(
		"combat.damage.dealt",
		metric.WithDescription("Total damage applied to entities"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating damage counter: %w", err)
	}

	s.hits, err = m.Int64Counter(
		"combat.hits",
		metric.WithDescription("Resolved projectile hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hits counter: %w", err)
	}

	return s, nil
}

func (s *metrics) recordHit(side string, weapon string, damage float64) {
	attrs := metric.WithAttributes(
		attribute.String("side", side),
		attribute.String("weapon", weapon),
	)
	s.hits.Add(context.Background(), 1, attrs)
	s.damage.Add(context.Background(), damage, attrs)
}
