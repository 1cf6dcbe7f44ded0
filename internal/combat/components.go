package combat

import (
	"math"
	"sync"

	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/pkg/core"
)

// ComponentAbsorption is the share of a hit's damage taken by the routed component.
const ComponentAbsorption = 0.3

// Degradation floors: a destroyed component leaves this fraction of the stat.
const (
	turretRotationFloor = 0.3
	movementFloor       = 0.4
	accelerationFloor   = 0.3
)

type componentRecord struct {
	mu     sync.Mutex
	health core.ComponentHealth
}

// ComponentStore owns every entity's turret/tracks/engine health.
// Records are created on first damage and serialised per entity, so hit
// workers for different entities never contend.
type ComponentStore struct {
	mu      sync.RWMutex
	records map[core.EntityID]*componentRecord
	src     rng.Source
}

// NewComponentStore creates an empty store routing hits with src.
func NewComponentStore(src rng.Source) *ComponentStore {
	return &ComponentStore{
		records: make(map[core.EntityID]*componentRecord),
		src:     src,
	}
}

func (s *ComponentStore) record(id core.EntityID, create bool) *componentRecord {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if ok || !create {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok = s.records[id]; ok {
		return rec
	}
	rec = &componentRecord{health: core.FullComponentHealth()}
	s.records[id] = rec
	return rec
}

// routeComponent picks the component a hit lands on from a uniform roll.
func routeComponent(side core.HitSide, roll float64) (core.Component, bool) {
	switch side {
	case core.HitRear:
		if roll < 0.6 {
			return core.ComponentEngine, true
		}
		if roll < 0.9 {
			return core.ComponentTracks, true
		}
	case core.HitSideOn:
		if roll < 0.7 {
			return core.ComponentTracks, true
		}
		if roll < 0.9 {
			return core.ComponentTurret, true
		}
	default:
		if roll < 0.5 {
			return core.ComponentTurret, true
		}
	}
	return 0, false
}

// Apply routes part of a hit to one component. It returns nil when the roll
// selects no component or the selected component is already destroyed.
func (s *ComponentStore) Apply(id core.EntityID, damage float64, side core.HitSide) *core.ComponentHit {
	rec := s.record(id, true)

	comp, ok := routeComponent(side, s.src.Float64())
	if !ok {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	current := rec.health.Get(comp)
	if current <= 0 {
		return nil
	}
	next := math.Max(0, current-damage*ComponentAbsorption)
	rec.health.Set(comp, next)

	if next == 0 {
		return &core.ComponentHit{Component: comp, Destroyed: true}
	}
	return &core.ComponentHit{Component: comp, Health: next}
}

// Effects derives movement multipliers from component health.
// Entities without a record are undamaged.
func (s *ComponentStore) Effects(id core.EntityID) core.ComponentEffects {
	rec := s.record(id, false)
	if rec == nil {
		return core.NeutralEffects
	}

	rec.mu.Lock()
	h := rec.health
	rec.mu.Unlock()

	return core.ComponentEffects{
		TurretRotationSpeed: degrade(turretRotationFloor, h.Turret/core.ComponentTurret.Max()),
		MovementSpeed:       degrade(movementFloor, h.Tracks/core.ComponentTracks.Max()),
		Acceleration:        degrade(accelerationFloor, h.Engine/core.ComponentEngine.Max()),
	}
}

func degrade(floor, fraction float64) float64 {
	return floor + (1-floor)*fraction
}

// Repair adds health to one component, clamped to its maximum.
// It reports false for an entity without a record.
func (s *ComponentStore) Repair(id core.EntityID, comp core.Component, amount float64) (float64, bool) {
	rec := s.record(id, false)
	if rec == nil {
		return 0, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := math.Min(comp.Max(), math.Max(0, rec.health.Get(comp)+amount))
	rec.health.Set(comp, next)
	return next, true
}

// Get returns a copy of an entity's record.
func (s *ComponentStore) Get(id core.EntityID) (core.ComponentHealth, bool) {
	rec := s.record(id, false)
	if rec == nil {
		return core.ComponentHealth{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.health, true
}

// Reset restores every component of an entity to full health (respawn).
func (s *ComponentStore) Reset(id core.EntityID) {
	rec := s.record(id, true)
	rec.mu.Lock()
	rec.health = core.FullComponentHealth()
	rec.mu.Unlock()
}

// Remove forgets an entity.
func (s *ComponentStore) Remove(id core.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Len returns the number of tracked entities.
func (s *ComponentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
