package projectile

import (
	"math"
	"testing"
	"time"

	"github.com/TheFortz/combat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = time.Second / 60

func TestStep_ReferenceFrame(t *testing.T) {
	p := &core.Projectile{Velocity: core.Vec2{X: 8, Y: 0}}

	Step(p, frame)

	assert.InDelta(t, 8, p.Position.X, 1e-9)
	assert.InDelta(t, 0, p.Position.Y, 1e-9)
	assert.Equal(t, frame, p.Age)
}

func TestStep_ScalesWithDt(t *testing.T) {
	p := &core.Projectile{Velocity: core.Vec2{X: 3, Y: 4}}

	Step(p, 2*frame)

	assert.InDelta(t, 6, p.Position.X, 1e-9)
	assert.InDelta(t, 8, p.Position.Y, 1e-9)
	assert.InDelta(t, math.Atan2(4, 3), p.Angle, 1e-12)
}

func TestStep_Gravity(t *testing.T) {
	p := &core.Projectile{Velocity: core.Vec2{X: 7, Y: 0}, Gravity: 0.15}

	Step(p, frame)
	assert.InDelta(t, 0, p.Position.Y, 1e-9, "gravity applies after the move")
	assert.InDelta(t, 0.15, p.Velocity.Y, 1e-9)

	Step(p, frame)
	assert.InDelta(t, 0.15, p.Position.Y, 1e-9)
	assert.InDelta(t, 0.30, p.Velocity.Y, 1e-9)
	assert.Greater(t, p.Angle, 0.0)
}

func TestExpired(t *testing.T) {
	p := &core.Projectile{Velocity: core.Vec2{X: 1}, Lifetime: 3 * frame}
	for i := 0; i < 2; i++ {
		Step(p, frame)
		assert.False(t, Expired(p))
	}
	Step(p, frame)
	assert.True(t, Expired(p))

	assert.False(t, Expired(&core.Projectile{Age: time.Hour}))
}

func TestResolveHit_PlainRemoves(t *testing.T) {
	p := &core.Projectile{Damage: 20, Velocity: core.Vec2{X: 8}}

	res := ResolveHit(p, core.Entity{ID: 2})

	assert.Equal(t, 20.0, res.Damage)
	assert.True(t, res.RemoveProjectile)
	assert.Empty(t, res.Effects)
}

func TestResolveHit_BounceExhaustion(t *testing.T) {
	p := &core.Projectile{Damage: 18, Bounces: 3, Velocity: core.Vec2{X: 10, Y: 0}}
	target := core.Entity{ID: 9}

	for i := 0; i < 3; i++ {
		res := ResolveHit(p, target)
		require.False(t, res.RemoveProjectile, "bounce %d", i+1)
		assert.GreaterOrEqual(t, p.Bounces, 0)
	}
	assert.Equal(t, 0, p.Bounces)
	assert.InDelta(t, -10*0.8*0.8*0.8, p.Velocity.X, 1e-9)

	res := ResolveHit(p, target)
	assert.True(t, res.RemoveProjectile)
	assert.Equal(t, 0, p.Bounces)
}

func TestResolveHit_BounceReversesVelocity(t *testing.T) {
	p := &core.Projectile{Bounces: 1, Velocity: core.Vec2{X: 10, Y: -5}}

	ResolveHit(p, core.Entity{})

	assert.InDelta(t, -8, p.Velocity.X, 1e-9)
	assert.InDelta(t, 4, p.Velocity.Y, 1e-9)
	assert.InDelta(t, math.Atan2(4, -8), p.Angle, 1e-12)
}

func TestResolveHit_Piercing(t *testing.T) {
	p := &core.Projectile{Damage: 60, Piercing: true, Bounces: 2, Velocity: core.Vec2{X: 20}}

	res := ResolveHit(p, core.Entity{ID: 1})

	assert.False(t, res.RemoveProjectile)
	assert.Equal(t, 2, p.Bounces, "piercing takes precedence over bouncing")
	assert.Equal(t, 20.0, p.Velocity.X)
}

func TestResolveHit_Explosive(t *testing.T) {
	p := &core.Projectile{
		Damage: 40, Explosive: true, ExplosionRadius: 80,
		Position: core.Vec2{X: 5, Y: 6},
	}

	res := ResolveHit(p, core.Entity{ID: 1})

	require.Len(t, res.Effects, 1)
	ex, ok := res.Effects[0].(core.ExplosionEffect)
	require.True(t, ok)
	assert.Equal(t, core.EffectExplosion, ex.Kind())
	assert.Equal(t, core.Vec2{X: 5, Y: 6}, ex.Position)
	assert.Equal(t, 80.0, ex.Radius)
	assert.Equal(t, 20.0, ex.Damage)
	assert.True(t, res.RemoveProjectile)
}

func TestResolveHit_Dot(t *testing.T) {
	p := &core.Projectile{
		Damage: 3, DotDamage: 2, DotDuration: time.Second, DotInterval: 250 * time.Millisecond,
	}

	res := ResolveHit(p, core.Entity{ID: 77})

	require.Len(t, res.Effects, 1)
	dot, ok := res.Effects[0].(core.DotEffect)
	require.True(t, ok)
	assert.Equal(t, core.EntityID(77), dot.TargetID)
	assert.Equal(t, 2.0, dot.Damage)
	assert.Equal(t, time.Second, dot.Duration)
	assert.Equal(t, 250*time.Millisecond, dot.Interval)
}

func TestResolveHit_ExplosionBeforeDot(t *testing.T) {
	p := &core.Projectile{Damage: 10, Explosive: true, DotDamage: 1, DotDuration: time.Second}

	res := ResolveHit(p, core.Entity{ID: 1})

	require.Len(t, res.Effects, 2)
	assert.Equal(t, core.EffectExplosion, res.Effects[0].Kind())
	assert.Equal(t, core.EffectDot, res.Effects[1].Kind())
}

func TestSteer(t *testing.T) {
	p := &core.Projectile{Homing: true, Velocity: core.Vec2{X: 6, Y: 0}}

	Steer(p, core.Vec2{X: 0, Y: 100}, 0.1)

	assert.InDelta(t, 0.1, p.Angle, 1e-9)
	assert.InDelta(t, 6, p.Velocity.Len(), 1e-9)

	// small corrections land exactly on target
	q := &core.Projectile{Homing: true, Velocity: core.Vec2{X: 6, Y: 0}}
	Steer(q, core.Vec2{X: 100, Y: 1}, 0.5)
	assert.InDelta(t, math.Atan2(1, 100), q.Angle, 1e-9)
}

func TestSteer_NonHomingUntouched(t *testing.T) {
	p := &core.Projectile{Velocity: core.Vec2{X: 6, Y: 0}}
	Steer(p, core.Vec2{X: 0, Y: 100}, 1)
	assert.Equal(t, core.Vec2{X: 6, Y: 0}, p.Velocity)
}

func TestNearest(t *testing.T) {
	p := &core.Projectile{Position: core.Vec2{X: 0, Y: 0}}

	got, ok := Nearest(p, []core.Vec2{{X: 50}, {X: 10, Y: 10}, {X: -300}}, 200)
	require.True(t, ok)
	assert.Equal(t, core.Vec2{X: 10, Y: 10}, got)

	_, ok = Nearest(p, []core.Vec2{{X: 500}}, 200)
	assert.False(t, ok)
}
