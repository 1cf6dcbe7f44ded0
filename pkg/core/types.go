// pkg/core/types.go
package core

import (
	"fmt"
	"math"
	"strings"
)

// EntityID identifies a combatant for its whole lifetime, across respawns.
type EntityID uint32

// ProjectileID identifies a projectile within one simulation.
type ProjectileID uint64

// Vec2 is a planar arena position or velocity in pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Scale returns v*s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Len returns the euclidean length of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// HitSide classifies an impact relative to the target's facing.
type HitSide uint8

const (
	HitFront HitSide = iota
	HitSideOn
	HitRear
)

func (s HitSide) String() string {
	switch s {
	case HitFront:
		return "FRONT"
	case HitSideOn:
		return "SIDE"
	case HitRear:
		return "REAR"
	default:
		return fmt.Sprintf("HitSide(%d)", uint8(s))
	}
}

// Component is one of a tank's damageable sub-systems.
type Component uint8

const (
	ComponentTurret Component = iota
	ComponentTracks
	ComponentEngine
)

// Components lists every component in a stable order.
var Components = []Component{ComponentTurret, ComponentTracks, ComponentEngine}

func (c Component) String() string {
	switch c {
	case ComponentTurret:
		return "turret"
	case ComponentTracks:
		return "tracks"
	case ComponentEngine:
		return "engine"
	default:
		return fmt.Sprintf("Component(%d)", uint8(c))
	}
}

// Max returns the full health of the component type.
func (c Component) Max() float64 {
	switch c {
	case ComponentTurret:
		return 100
	case ComponentTracks:
		return 80
	case ComponentEngine:
		return 120
	default:
		return 0
	}
}

// ParseComponent resolves a component by its lowercase name.
func ParseComponent(s string) (Component, error) {
	for _, c := range Components {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown component %q", s)
}
