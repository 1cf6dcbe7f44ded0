package sim

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/TheFortz/combat/internal/powerup"
	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = time.Second / 60

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type captureRecorder struct {
	mu         sync.Mutex
	shots      []core.ShotEvent
	hits       []core.HitEvent
	components []core.ComponentEvent
	effects    []core.EffectEvent
	kills      []core.KillEvent
}

func (r *captureRecorder) RecordShot(e core.ShotEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shots = append(r.shots, e)
}

func (r *captureRecorder) RecordHit(e core.HitEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, e)
}

func (r *captureRecorder) RecordComponentDamage(e core.ComponentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, e)
}

func (r *captureRecorder) RecordEffect(e core.EffectEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, e)
}

func (r *captureRecorder) RecordKill(e core.KillEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kills = append(r.kills, e)
}

type fixture struct {
	sim   *Simulation
	clock *manualClock
	rec   *captureRecorder
}

// newFixture places a shooter (1) at the origin facing +X and a target (2)
// at (100, 0) with the given heading.
func newFixture(t *testing.T, src rng.Source, targetHeading float64) *fixture {
	t.Helper()
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rec := &captureRecorder{}

	s, err := New(DefaultConfig(), WithClock(clock), WithSource(src), WithRecorder(rec))
	require.NoError(t, err)

	s.Spawn(core.Entity{ID: 1, Health: 100})
	s.Spawn(core.Entity{ID: 2, Position: core.Vec2{X: 100}, Heading: targetHeading, Health: 100})
	return &fixture{sim: s, clock: clock, rec: rec}
}

func (f *fixture) fire(t *testing.T, angle float64) core.Projectile {
	t.Helper()
	shots, err := f.sim.Fire(1, angle)
	require.NoError(t, err)
	require.NotEmpty(t, shots)
	return shots[0]
}

func TestSpawn_Defaults(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), 0)

	e, ok := f.sim.Entity(2)
	require.True(t, ok)
	assert.True(t, e.Alive)
	assert.Equal(t, 100.0, e.MaxHealth)

	h, ok := f.sim.Components(2)
	require.True(t, ok)
	assert.Equal(t, core.FullComponentHealth(), h)

	w, ok := f.sim.Weapon(2)
	require.True(t, ok)
	assert.Equal(t, core.WeaponCannon, w.Weapon)
	assert.Equal(t, 2, f.sim.EntityCount())
}

func TestTick_StepsProjectiles(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), 0)
	p := f.fire(t, 0)

	report := f.sim.Tick(frame)

	assert.Equal(t, uint64(1), report.Tick)
	assert.Equal(t, 1, report.Active)
	got, ok := f.sim.Projectile(p.ID)
	require.True(t, ok)
	assert.InDelta(t, 8, got.Position.X, 1e-9)

	require.Len(t, f.rec.shots, 1)
	assert.Equal(t, core.WeaponCannon, f.rec.shots[0].Weapon)
	assert.Equal(t, 1, f.rec.shots[0].Projectiles)
}

func TestTick_FrontHitNoCrit(t *testing.T) {
	// target faces the shooter; 0.99 rolls no crit and no component
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	p := f.fire(t, 0)

	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report := f.sim.Tick(frame)

	require.Len(t, report.Hits, 1)
	hit := report.Hits[0]
	assert.Equal(t, core.HitFront, hit.Result.Side)
	assert.Equal(t, 20.0, hit.Result.Damage)
	assert.Equal(t, 1.0, hit.Result.Multiplier)
	assert.False(t, hit.Result.Critical)
	assert.Nil(t, hit.Component)

	e, _ := f.sim.Entity(2)
	assert.Equal(t, 80.0, e.Health)
	assert.Contains(t, report.Removed, p.ID)
	assert.Equal(t, 0, f.sim.ActiveProjectiles())

	require.Len(t, f.rec.hits, 1)
	assert.Equal(t, core.HitFront, f.rec.hits[0].Side)
	assert.True(t, f.rec.hits[0].Removed)
	assert.Equal(t, []core.Vec2{{X: 0}, {X: 8}, {X: 90}}, f.rec.hits[0].Path)
}

func TestTick_RearCritAndKill(t *testing.T) {
	// target faces away; 0 rolls a crit and routes rear hits to the engine
	f := newFixture(t, rng.Fixed(0), 0)

	p := f.fire(t, 0)
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report := f.sim.Tick(frame)

	require.Len(t, report.Hits, 1)
	hit := report.Hits[0]
	assert.Equal(t, core.HitRear, hit.Result.Side)
	assert.True(t, hit.Result.Critical)
	assert.InDelta(t, 3.0, hit.Result.Multiplier, 1e-9)
	assert.InDelta(t, 60.0, hit.Applied, 1e-9)
	require.NotNil(t, hit.Component)
	assert.Equal(t, core.ComponentEngine, hit.Component.Component)
	assert.InDelta(t, 102, hit.Component.Health, 1e-9)
	require.Len(t, f.rec.components, 1)

	f.clock.Advance(500 * time.Millisecond)
	p = f.fire(t, 0)
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report = f.sim.Tick(frame)

	require.Len(t, report.Kills, 1)
	assert.Equal(t, core.EntityID(2), report.Kills[0].VictimID)
	assert.Equal(t, core.EntityID(1), report.Kills[0].KillerID)
	assert.True(t, report.Hits[0].Killed)
	require.Len(t, f.rec.kills, 1)

	e, _ := f.sim.Entity(2)
	assert.False(t, e.Alive)
	assert.Equal(t, 0.0, e.Health)
}

func TestTick_StepsBeforeResolving(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	require.NoError(t, f.sim.Switch(1, core.WeaponGrenade))
	p := f.fire(t, 0)

	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report := f.sim.Tick(frame)

	require.Len(t, report.Effects, 1)
	ex, ok := report.Effects[0].(core.ExplosionEffect)
	require.True(t, ok)
	assert.InDelta(t, 7, ex.Position.X, 1e-9, "explosion at the stepped position")
	assert.Equal(t, 100.0, ex.Radius)
	assert.Equal(t, 17.5, ex.Damage)
	require.Len(t, f.rec.effects, 1)
	assert.Equal(t, core.EntityID(1), f.rec.effects[0].SourceID)
}

func TestTick_RicochetExhaustsBounces(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	require.NoError(t, f.sim.Switch(1, core.WeaponRicochet))
	p := f.fire(t, 0)

	for i := 0; i < 5; i++ {
		f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	}
	report := f.sim.Tick(frame)

	require.Len(t, report.Hits, 4, "three bounces then removal; the fifth contact is ignored")
	for i := 0; i < 3; i++ {
		assert.False(t, report.Hits[i].Resolution.RemoveProjectile)
	}
	assert.True(t, report.Hits[3].Resolution.RemoveProjectile)
	assert.Equal(t, []core.ProjectileID{p.ID}, report.Removed)

	e, _ := f.sim.Entity(2)
	assert.InDelta(t, 100-4*18, e.Health, 1e-9)
}

func TestTick_PiercingSurvives(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	require.NoError(t, f.sim.Switch(1, core.WeaponSniper))
	p := f.fire(t, 0)

	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report := f.sim.Tick(frame)

	require.Len(t, report.Hits, 1)
	assert.Empty(t, report.Removed)
	assert.Equal(t, 1, report.Active)
}

func TestTick_DotEffect(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	require.NoError(t, f.sim.Switch(1, core.WeaponFlamethrower))
	p := f.fire(t, 0)

	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report := f.sim.Tick(frame)

	require.Len(t, report.Effects, 1)
	dot, ok := report.Effects[0].(core.DotEffect)
	require.True(t, ok)
	assert.Equal(t, core.EntityID(2), dot.TargetID)
	assert.Equal(t, 2.0, dot.Damage)
}

func TestTick_IgnoresStaleCollisions(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	p := f.fire(t, 0)

	f.sim.SubmitCollision(Collision{ProjectileID: 9999, TargetID: 2})
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 1})
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 42})
	assert.Equal(t, 3, f.sim.PendingCollisions())

	report := f.sim.Tick(frame)

	assert.Empty(t, report.Hits)
	assert.Equal(t, 0, f.sim.PendingCollisions())
	assert.Equal(t, 1, report.Active)
}

func TestTick_Expiry(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.5), 0)
	require.NoError(t, f.sim.Switch(1, core.WeaponFlamethrower))
	p := f.fire(t, 0)

	report := f.sim.Tick(700 * time.Millisecond)

	assert.Equal(t, []core.ProjectileID{p.ID}, report.Removed)
	assert.Equal(t, 0, report.Active)
	_, ok := f.sim.Projectile(p.ID)
	assert.False(t, ok)
}

func TestTick_ShieldHalvesIncoming(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), math.Pi)
	_, err := f.sim.GrantPowerUp(2, powerup.Shield)
	require.NoError(t, err)

	p := f.fire(t, 0)
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	report := f.sim.Tick(frame)

	require.Len(t, report.Hits, 1)
	assert.Equal(t, 20.0, report.Hits[0].Result.Damage)
	assert.Equal(t, 10.0, report.Hits[0].Applied)
}

func TestFire_DamageBoost(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), 0)
	_, err := f.sim.GrantPowerUp(1, powerup.DamageBoost)
	require.NoError(t, err)

	p := f.fire(t, 0)
	assert.Equal(t, 30.0, p.Damage)
}

func TestFire_ProjectileCap(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	cfg := DefaultConfig()
	cfg.MaxProjectiles = 3
	s, err := New(cfg, WithClock(clock), WithSource(rng.Fixed(0.5)))
	require.NoError(t, err)
	s.Spawn(core.Entity{ID: 1, Health: 100})
	require.NoError(t, s.Switch(1, core.WeaponShotgun))

	shots, err := s.Fire(1, 0)
	require.NoError(t, err)
	assert.Len(t, shots, 3)

	clock.Advance(time.Second)
	shots, err = s.Fire(1, 0)
	require.NoError(t, err)
	assert.Empty(t, shots)
	assert.Equal(t, 3, s.ActiveProjectiles())
}

func TestFire_DeadEntity(t *testing.T) {
	f := newFixture(t, rng.Fixed(0), 0)
	for i := 0; i < 2; i++ {
		p := f.fire(t, 0)
		f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
		f.sim.Tick(frame)
		f.clock.Advance(time.Second)
	}

	e, _ := f.sim.Entity(2)
	require.False(t, e.Alive)
	shots, err := f.sim.Fire(2, 0)
	require.NoError(t, err)
	assert.Empty(t, shots)
}

func TestRespawn(t *testing.T) {
	f := newFixture(t, rng.Fixed(0), 0)
	p := f.fire(t, 0)
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	f.sim.Tick(frame)
	_, err := f.sim.GrantPowerUp(2, powerup.Speed)
	require.NoError(t, err)

	require.NoError(t, f.sim.Respawn(2, core.Vec2{X: 500, Y: 500}, 1))

	e, _ := f.sim.Entity(2)
	assert.Equal(t, 100.0, e.Health)
	assert.True(t, e.Alive)
	assert.Equal(t, core.Vec2{X: 500, Y: 500}, e.Position)
	h, _ := f.sim.Components(2)
	assert.Equal(t, core.FullComponentHealth(), h)
	assert.Equal(t, core.NeutralEffects, f.sim.Effects(2))
}

func TestEffects_SpeedPowerUp(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.5), 0)
	_, err := f.sim.GrantPowerUp(1, powerup.Speed)
	require.NoError(t, err)

	assert.InDelta(t, 1.3, f.sim.Effects(1).MovementSpeed, 1e-9)
}

func TestRepair(t *testing.T) {
	f := newFixture(t, rng.Fixed(0), 0)
	p := f.fire(t, 0)
	f.sim.SubmitCollision(Collision{ProjectileID: p.ID, TargetID: 2, Impact: core.Vec2{X: 90}})
	f.sim.Tick(frame)

	v, err := f.sim.Repair(2, core.ComponentEngine, 10)
	require.NoError(t, err)
	assert.InDelta(t, 112, v, 1e-9)
}

func TestUnknownEntity(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.5), 0)

	_, err := f.sim.Fire(99, 0)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.ErrorIs(t, f.sim.Move(99, core.Vec2{}, 0), ErrUnknownEntity)
	assert.ErrorIs(t, f.sim.Respawn(99, core.Vec2{}, 0), ErrUnknownEntity)
	assert.ErrorIs(t, f.sim.Remove(99), ErrUnknownEntity)
	assert.ErrorIs(t, f.sim.StartCharge(99), ErrUnknownEntity)
	assert.ErrorIs(t, f.sim.CancelCharge(99), ErrUnknownEntity)
	assert.ErrorIs(t, f.sim.Switch(99, core.WeaponLaser), ErrUnknownEntity)
	_, err = f.sim.Repair(99, core.ComponentTracks, 1)
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = f.sim.GrantPowerUp(99, powerup.Shield)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRemove(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.5), 0)
	p := f.fire(t, 0)

	require.NoError(t, f.sim.Remove(1))

	_, ok := f.sim.Entity(1)
	assert.False(t, ok)
	_, ok = f.sim.Weapon(1)
	assert.False(t, ok)
	_, ok = f.sim.Projectile(p.ID)
	assert.True(t, ok, "projectiles outlive their shooter")
}

func TestMove(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.5), 0)
	require.NoError(t, f.sim.Move(1, core.Vec2{X: 10, Y: 20}, math.Pi/2))

	p := f.fire(t, math.Pi/2)
	assert.Equal(t, core.Vec2{X: 10, Y: 20}, p.Position)
}

func TestTick_HomingTurnsTowardTarget(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.99), 0)
	require.NoError(t, f.sim.Move(2, core.Vec2{X: 0, Y: 100}, 0))
	require.NoError(t, f.sim.Switch(1, core.WeaponRocket))
	p := f.fire(t, 0)

	f.sim.Tick(frame)

	got, ok := f.sim.Projectile(p.ID)
	require.True(t, ok)
	assert.InDelta(t, DefaultConfig().HomingTurnRate, got.Angle, 1e-9)
	assert.InDelta(t, 6, got.Velocity.Len(), 1e-9)
}

func TestCharge(t *testing.T) {
	f := newFixture(t, rng.Fixed(0.5), 0)
	require.NoError(t, f.sim.Switch(1, core.WeaponRailgun))
	require.NoError(t, f.sim.StartCharge(1))

	f.clock.Advance(500 * time.Millisecond)
	shots, err := f.sim.Fire(1, 0)
	require.NoError(t, err)
	assert.Empty(t, shots)

	f.clock.Advance(500 * time.Millisecond)
	shots, err = f.sim.Fire(1, 0)
	require.NoError(t, err)
	assert.Len(t, shots, 1)

	require.NoError(t, f.sim.CancelCharge(1))
}
