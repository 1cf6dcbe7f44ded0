package core

import "time"

// Projectile is a transient shot record. Behaviour flags are copied from the
// weapon definition at spawn time and never looked up again.
type Projectile struct {
	ID       ProjectileID
	OwnerID  EntityID
	Weapon   WeaponID
	Position Vec2
	Velocity Vec2
	Angle    float64
	Damage   float64
	Size     float64
	Color    string

	Piercing        bool
	Explosive       bool
	ExplosionRadius float64
	Homing          bool
	Bounces         int
	Gravity         float64
	DotDamage       float64
	DotDuration     time.Duration
	DotInterval     time.Duration

	Lifetime time.Duration
	Age      time.Duration
}

// AppliesDot reports whether a hit should hand off damage-over-time.
func (p *Projectile) AppliesDot() bool {
	return p.DotDamage > 0 && p.DotDuration > 0
}
