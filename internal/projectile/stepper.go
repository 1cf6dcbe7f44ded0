// Package projectile advances projectiles through time and decides what
// happens to them when they touch a target.
package projectile

import (
	"math"
	"time"

	"github.com/TheFortz/combat/pkg/core"
)

// referenceFrame is the frame duration that velocities are expressed in.
const referenceFrame = time.Second / 60

// BounceDamping is the speed kept by a projectile reflected off a target.
const BounceDamping = 0.8

// ExplosionDamageScale is the share of hit damage passed on as splash.
const ExplosionDamageScale = 0.5

// Step advances p by dt. Velocity is in pixels per reference frame, so a
// 60 fps tick moves the projectile by exactly its velocity.
func Step(p *core.Projectile, dt time.Duration) {
	scale := float64(dt) / float64(referenceFrame)

	p.Position = p.Position.Add(p.Velocity.Scale(scale))
	if p.Gravity != 0 {
		p.Velocity.Y += p.Gravity * scale
	}
	p.Angle = math.Atan2(p.Velocity.Y, p.Velocity.X)
	p.Age += dt
}

// Expired reports whether p has outlived its lifetime.
// A zero lifetime never expires.
func Expired(p *core.Projectile) bool {
	return p.Lifetime > 0 && p.Age >= p.Lifetime
}

// Steer turns a homing projectile towards target by at most maxTurn radians,
// keeping its speed.
func Steer(p *core.Projectile, target core.Vec2, maxTurn float64) {
	if !p.Homing || maxTurn <= 0 {
		return
	}
	speed := p.Velocity.Len()
	if speed == 0 {
		return
	}

	current := math.Atan2(p.Velocity.Y, p.Velocity.X)
	want := math.Atan2(target.Y-p.Position.Y, target.X-p.Position.X)
	diff := math.Remainder(want-current, 2*math.Pi)
	if diff > maxTurn {
		diff = maxTurn
	} else if diff < -maxTurn {
		diff = -maxTurn
	}

	heading := current + diff
	p.Velocity = core.Vec2{X: math.Cos(heading) * speed, Y: math.Sin(heading) * speed}
	p.Angle = heading
}

// Nearest returns the position of the closest candidate within maxRange of p.
func Nearest(p *core.Projectile, candidates []core.Vec2, maxRange float64) (core.Vec2, bool) {
	best := math.Inf(1)
	var found core.Vec2
	for _, c := range candidates {
		d := math.Hypot(c.X-p.Position.X, c.Y-p.Position.Y)
		if d <= maxRange && d < best {
			best = d
			found = c
		}
	}
	return found, !math.IsInf(best, 1)
}

// ResolveHit applies the projectile's on-hit behaviour. It mutates p when the
// projectile bounces.
//
// Order: explosion, then piercing, then bounce, then removal, then DOT.
func ResolveHit(p *core.Projectile, target core.Entity) core.HitResolution {
	res := core.HitResolution{Damage: p.Damage}

	if p.Explosive {
		res.Effects = append(res.Effects, core.ExplosionEffect{
			Position: p.Position,
			Radius:   p.ExplosionRadius,
			Damage:   p.Damage * ExplosionDamageScale,
		})
	}

	switch {
	case p.Piercing:
	case p.Bounces > 0:
		p.Bounces--
		p.Velocity = p.Velocity.Scale(-BounceDamping)
		p.Angle = math.Atan2(p.Velocity.Y, p.Velocity.X)
	default:
		res.RemoveProjectile = true
	}

	if p.AppliesDot() {
		res.Effects = append(res.Effects, core.DotEffect{
			TargetID: target.ID,
			Damage:   p.DotDamage,
			Duration: p.DotDuration,
			Interval: p.DotInterval,
		})
	}

	return res
}
