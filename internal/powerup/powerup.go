// Package powerup tracks timed buffs granted to entities.
package powerup

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/weapon"
	"github.com/TheFortz/combat/pkg/core"
)

// Kind is a power-up type.
type Kind uint8

const (
	DamageBoost Kind = iota
	RapidFire
	Shield
	Speed
)

var kinds = []Kind{DamageBoost, RapidFire, Shield, Speed}

type spec struct {
	name     string
	duration time.Duration
}

var specs = map[Kind]spec{
	DamageBoost: {"damage", 10 * time.Second},
	RapidFire:   {"rapidfire", 8 * time.Second},
	Shield:      {"shield", 12 * time.Second},
	Speed:       {"speed", 10 * time.Second},
}

func (k Kind) String() string {
	if s, ok := specs[k]; ok {
		return s.name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Duration returns how long a grant of k lasts.
func (k Kind) Duration() time.Duration {
	return specs[k].duration
}

// Parse resolves a power-up by name.
func Parse(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if specs[k].name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown power-up %q", s)
}

// Modifiers are the combined multipliers of an entity's active power-ups.
type Modifiers struct {
	DamageScale   float64
	FireRateScale float64
	IncomingScale float64
	SpeedScale    float64
}

// None is the modifier set with no active power-up.
var None = Modifiers{DamageScale: 1, FireRateScale: 1, IncomingScale: 1, SpeedScale: 1}

// Weapon returns the subset of m that applies to firing.
func (m Modifiers) Weapon() weapon.Modifiers {
	return weapon.Modifiers{DamageScale: m.DamageScale, FireRateScale: m.FireRateScale}
}

// Store holds expiry times per entity. Expired grants are pruned on read.
type Store struct {
	mu     sync.Mutex
	grants map[core.EntityID]map[Kind]time.Time
}

func NewStore() *Store {
	return &Store{grants: make(map[core.EntityID]map[Kind]time.Time)}
}

// Grant activates kind for id from now. Granting an active kind refreshes
// its expiry rather than stacking.
func (s *Store) Grant(id core.EntityID, kind Kind, now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[id]
	if !ok {
		g = make(map[Kind]time.Time)
		s.grants[id] = g
	}
	expiry := now.Add(kind.Duration())
	g[kind] = expiry
	return expiry
}

func (s *Store) prune(id core.EntityID, now time.Time) map[Kind]time.Time {
	g := s.grants[id]
	for k, exp := range g {
		if !now.Before(exp) {
			delete(g, k)
		}
	}
	if g != nil && len(g) == 0 {
		delete(s.grants, id)
		return nil
	}
	return g
}

// Active lists the kinds active for id at now in stable order.
func (s *Store) Active(id core.EntityID, now time.Time) []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.prune(id, now)
	var out []Kind
	for _, k := range kinds {
		if _, ok := g[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Modifiers combines id's active power-ups at now.
func (s *Store) Modifiers(id core.EntityID, now time.Time) Modifiers {
	m := None
	for _, k := range s.Active(id, now) {
		switch k {
		case DamageBoost:
			m.DamageScale = 1.5
		case RapidFire:
			m.FireRateScale = 0.5
		case Shield:
			m.IncomingScale = 0.5
		case Speed:
			m.SpeedScale = 1.3
		}
	}
	return m
}

// Clear drops every grant for id.
func (s *Store) Clear(id core.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, id)
}
