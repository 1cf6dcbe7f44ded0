// pkg/core/events.go
package core

import "time"

// DamageResult is the outcome of a damage roll against one hit side.
type DamageResult struct {
	Damage     float64
	Multiplier float64
	Side       HitSide
	Critical   bool
}

// ComponentHit reports which component absorbed part of a hit.
// Health is only meaningful when Destroyed is false.
type ComponentHit struct {
	Component Component
	Destroyed bool
	Health    float64
}

// ComponentEffects are gameplay multipliers derived from component health.
type ComponentEffects struct {
	TurretRotationSpeed float64
	MovementSpeed       float64
	Acceleration        float64
}

// NeutralEffects is the multiplier set for an undamaged tank.
var NeutralEffects = ComponentEffects{TurretRotationSpeed: 1, MovementSpeed: 1, Acceleration: 1}

// EffectKind tags an Effect variant.
type EffectKind string

const (
	EffectExplosion EffectKind = "explosion"
	EffectDot       EffectKind = "dot"
)

// Effect is a follow-up handed to an external system (splash damage, status effects).
type Effect interface {
	Kind() EffectKind
}

// ExplosionEffect asks the splash system to damage everything within Radius.
type ExplosionEffect struct {
	Position Vec2
	Radius   float64
	Damage   float64
}

func (ExplosionEffect) Kind() EffectKind { return EffectExplosion }

// DotEffect asks the status-effect system to tick damage on a target.
type DotEffect struct {
	TargetID EntityID
	Damage   float64
	Duration time.Duration
	Interval time.Duration
}

func (DotEffect) Kind() EffectKind { return EffectDot }

// HitResolution is what happens to a projectile and its target on contact.
type HitResolution struct {
	Damage           float64
	Effects          []Effect
	RemoveProjectile bool
}

// ShotEvent records a successful trigger pull.
type ShotEvent struct {
	Time        time.Time
	Tick        uint64
	ShooterID   EntityID
	Weapon      WeaponID
	Origin      Vec2
	Angle       float64
	Projectiles int
}

// HitEvent records a resolved projectile impact.
type HitEvent struct {
	Time         time.Time
	Tick         uint64
	ProjectileID ProjectileID
	ShooterID    EntityID
	VictimID     EntityID
	Weapon       WeaponID
	Impact       Vec2
	Side         HitSide
	Critical     bool
	Multiplier   float64
	Damage       float64
	Removed      bool
	Path         []Vec2 // projectile positions from spawn to impact
}

// ComponentEvent records component damage caused by a hit.
type ComponentEvent struct {
	Time      time.Time
	Tick      uint64
	EntityID  EntityID
	Component Component
	Destroyed bool
	Health    float64
}

// EffectEvent records an effect emitted for an external system.
type EffectEvent struct {
	Time     time.Time
	Tick     uint64
	SourceID EntityID
	Effect   Effect
}

// KillEvent records an entity's health reaching zero.
type KillEvent struct {
	Time     time.Time
	Tick     uint64
	VictimID EntityID
	KillerID EntityID
	Weapon   WeaponID
}
