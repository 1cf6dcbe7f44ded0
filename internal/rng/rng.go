// Package rng provides the random sources used by combat rolls, component
// routing and projectile spread.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded wraps math/rand behind a mutex so one source can be shared by the
// simulation and concurrent hit workers.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a seeded source. A zero seed uses the current time.
func New(seed int64) *Seeded {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a value in [0, 1).
func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Fixed always returns the same value.
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }

// Sequence replays values in order and then repeats the last one.
// An empty sequence yields 0.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence creates a Sequence over values.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}

// Uniform draws from [lo, hi) using src.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}
