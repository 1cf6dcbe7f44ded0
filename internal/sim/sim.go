// Package sim is the simulation context: it owns every entity, projectile and
// per-entity combat record, and advances them one tick at a time.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/cache"
	"github.com/TheFortz/combat/internal/combat"
	"github.com/TheFortz/combat/internal/powerup"
	"github.com/TheFortz/combat/internal/projectile"
	"github.com/TheFortz/combat/internal/queue"
	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/internal/weapon"
	"github.com/TheFortz/combat/pkg/core"
)

// ErrUnknownEntity is returned for operations on an entity that was never
// spawned or has been removed.
var ErrUnknownEntity = errors.New("unknown entity")

const referenceFrame = time.Second / 60

// Config tunes a Simulation.
type Config struct {
	// MaxProjectiles caps projectiles in flight; shots beyond it are dropped.
	MaxProjectiles int
	// HomingRange is how far a homing projectile looks for a target.
	HomingRange float64
	// HomingTurnRate is the max turn in radians per reference frame.
	HomingTurnRate float64
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxProjectiles: 2048,
		HomingRange:    400,
		HomingTurnRate: 0.05,
	}
}

// Collision is a contact reported by the external collision detector.
type Collision struct {
	ProjectileID core.ProjectileID
	TargetID     core.EntityID
	Impact       core.Vec2
}

// HitOutcome describes one resolved collision.
type HitOutcome struct {
	Collision  Collision
	ShooterID  core.EntityID
	Weapon     core.WeaponID
	Result     core.DamageResult
	Applied    float64 // damage after the target's shield
	Component  *core.ComponentHit
	Resolution core.HitResolution
	Killed     bool
}

// TickReport summarises one tick.
type TickReport struct {
	Tick     uint64
	Duration time.Duration
	Active   int
	Hits     []HitOutcome
	Effects  []core.Effect
	Kills    []core.KillEvent
	Removed  []core.ProjectileID
}

type inFlight struct {
	p    core.Projectile
	path []core.Vec2
	gone bool
}

// Simulation is the single owner of combat state. All methods are safe for
// concurrent use; they serialise on one mutex.
type Simulation struct {
	mu sync.Mutex

	cfg        Config
	clock      weapon.Clock
	src        rng.Source
	logger     *slog.Logger
	recorder   Recorder
	metrics    *metrics
	entities   *cache.EntityCache
	components *combat.ComponentStore
	damage     *combat.Calculator
	armory     *weapon.Armory
	powerups   *powerup.Store
	collisions *queue.Queue[Collision]

	projectiles []*inFlight
	index       map[core.ProjectileID]*inFlight
	tick        uint64
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithClock replaces the wall clock.
func WithClock(c weapon.Clock) Option {
	return func(s *Simulation) { s.clock = c }
}

// WithSource replaces the random source shared by every roll.
func WithSource(src rng.Source) Option {
	return func(s *Simulation) { s.src = src }
}

// WithRecorder sets the outcome sink.
func WithRecorder(r Recorder) Option {
	return func(s *Simulation) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// New creates an empty Simulation.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	s := &Simulation{
		cfg:        cfg,
		clock:      weapon.SystemClock{},
		logger:     slog.Default(),
		recorder:   NopRecorder{},
		entities:   cache.NewEntityCache(),
		powerups:   powerup.NewStore(),
		collisions: queue.New[Collision](),
		index:      make(map[core.ProjectileID]*inFlight),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = rng.New(0)
	}
	if s.cfg.MaxProjectiles <= 0 {
		s.cfg.MaxProjectiles = DefaultConfig().MaxProjectiles
	}

	s.components = combat.NewComponentStore(s.src)
	s.damage = combat.NewCalculator(s.src)
	s.armory = weapon.NewArmory(s.clock, s.src)

	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("sim metrics: %w", err)
	}
	s.metrics = m
	return s, nil
}

// Spawn registers a living entity with full component health and a cannon.
// A zero MaxHealth takes the entity's Health.
func (s *Simulation) Spawn(e core.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.MaxHealth <= 0 {
		e.MaxHealth = e.Health
	}
	if e.Health <= 0 {
		e.Health = e.MaxHealth
	}
	e.Alive = true
	s.entities.Put(e)
	s.components.Reset(e.ID)
	s.armory.Equip(e.ID, core.WeaponCannon)
	s.logger.Debug("entity spawned", "entity", e.ID, "health", e.Health)
}

// Respawn revives an entity at pos with full health, components restored and
// power-ups cleared. The equipped weapon is kept.
func (s *Simulation) Respawn(id core.EntityID, pos core.Vec2, heading float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.entities.Update(id, func(e *core.Entity) {
		e.Position = pos
		e.Heading = heading
		e.Health = e.MaxHealth
		e.Alive = true
	})
	if !ok {
		return fmt.Errorf("respawn %d: %w", id, ErrUnknownEntity)
	}
	s.components.Reset(id)
	s.powerups.Clear(id)
	s.armory.CancelCharge(id)
	return nil
}

// Remove forgets an entity and all its combat records. Its projectiles stay
// in flight.
func (s *Simulation) Remove(id core.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.entities.Delete(id) {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownEntity)
	}
	s.components.Remove(id)
	s.armory.Remove(id)
	s.powerups.Clear(id)
	return nil
}

// Move updates an entity's position and heading.
func (s *Simulation) Move(id core.EntityID, pos core.Vec2, heading float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.entities.Update(id, func(e *core.Entity) {
		e.Position = pos
		e.Heading = heading
	}) {
		return fmt.Errorf("move %d: %w", id, ErrUnknownEntity)
	}
	return nil
}

// Entity returns a copy of an entity.
func (s *Simulation) Entity(id core.EntityID) (core.Entity, bool) {
	return s.entities.Get(id)
}

// EntityCount returns the number of registered entities.
func (s *Simulation) EntityCount() int {
	return s.entities.Len()
}

// Effects returns the component-derived movement multipliers for an entity,
// including an active speed power-up.
func (s *Simulation) Effects(id core.EntityID) core.ComponentEffects {
	fx := s.components.Effects(id)
	fx.MovementSpeed *= s.powerups.Modifiers(id, s.clock.Now()).SpeedScale
	return fx
}

// Components returns an entity's component health.
func (s *Simulation) Components(id core.EntityID) (core.ComponentHealth, bool) {
	return s.components.Get(id)
}

// Projectile returns a copy of a projectile in flight.
func (s *Simulation) Projectile(id core.ProjectileID) (core.Projectile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.index[id]
	if !ok {
		return core.Projectile{}, false
	}
	return f.p, true
}

// ActiveProjectiles returns the number of projectiles in flight.
func (s *Simulation) ActiveProjectiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projectiles)
}

// PendingCollisions returns the number of collisions waiting for the next tick.
func (s *Simulation) PendingCollisions() int {
	return s.collisions.Len()
}

// Fire pulls the trigger of an entity's equipped weapon from its current
// position. Dead entities and weapons on cooldown yield no projectiles.
func (s *Simulation) Fire(id core.EntityID, angle float64) ([]core.Projectile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities.Get(id)
	if !ok {
		return nil, fmt.Errorf("fire %d: %w", id, ErrUnknownEntity)
	}
	if !e.Alive {
		return nil, nil
	}

	now := s.clock.Now()
	mods := s.powerups.Modifiers(id, now)
	shots := s.armory.FireWith(id, e.Position.X, e.Position.Y, angle, mods.Weapon())
	if len(shots) == 0 {
		return nil, nil
	}

	if room := s.cfg.MaxProjectiles - len(s.projectiles); len(shots) > room {
		s.logger.Warn("projectile cap reached, dropping shots",
			"entity", id, "dropped", len(shots)-max(room, 0))
		shots = shots[:max(room, 0)]
		if len(shots) == 0 {
			return nil, nil
		}
	}
	for _, p := range shots {
		f := &inFlight{p: p, path: []core.Vec2{p.Position}}
		s.projectiles = append(s.projectiles, f)
		s.index[p.ID] = f
	}
	s.metrics.activeCount.Store(int64(len(s.projectiles)))

	st, _ := s.armory.State(id)
	s.recorder.RecordShot(core.ShotEvent{
		Time:        now,
		Tick:        s.tick,
		ShooterID:   id,
		Weapon:      st.Weapon,
		Origin:      e.Position,
		Angle:       angle,
		Projectiles: len(shots),
	})
	return shots, nil
}

func (s *Simulation) requireEntity(op string, id core.EntityID) error {
	if _, ok := s.entities.Get(id); !ok {
		return fmt.Errorf("%s %d: %w", op, id, ErrUnknownEntity)
	}
	return nil
}

// StartCharge begins charging an entity's charge weapon.
func (s *Simulation) StartCharge(id core.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEntity("charge", id); err != nil {
		return err
	}
	s.armory.StartCharge(id)
	return nil
}

// CancelCharge drops an entity's charge.
func (s *Simulation) CancelCharge(id core.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEntity("cancel charge", id); err != nil {
		return err
	}
	s.armory.CancelCharge(id)
	return nil
}

// Switch equips another weapon.
func (s *Simulation) Switch(id core.EntityID, w core.WeaponID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEntity("switch", id); err != nil {
		return err
	}
	if !s.armory.Switch(id, w) {
		return fmt.Errorf("switch %d: invalid weapon %d", id, w)
	}
	return nil
}

// Weapon returns an entity's weapon state.
func (s *Simulation) Weapon(id core.EntityID) (weapon.State, bool) {
	return s.armory.State(id)
}

// Repair restores health to one component of an entity.
func (s *Simulation) Repair(id core.EntityID, c core.Component, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEntity("repair", id); err != nil {
		return 0, err
	}
	v, _ := s.components.Repair(id, c, amount)
	return v, nil
}

// GrantPowerUp activates a power-up and returns its expiry.
func (s *Simulation) GrantPowerUp(id core.EntityID, kind powerup.Kind) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEntity("power-up", id); err != nil {
		return time.Time{}, err
	}
	return s.powerups.Grant(id, kind, s.clock.Now()), nil
}

// SubmitCollision queues a contact for the next tick. It does not take the
// simulation lock.
func (s *Simulation) SubmitCollision(c Collision) {
	s.collisions.Push(c)
}

// Tick advances the simulation by dt. Every projectile is moved before any
// queued collision is resolved.
func (s *Simulation) Tick(dt time.Duration) TickReport {
	started := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	now := s.clock.Now()
	report := TickReport{Tick: s.tick}

	s.stepAll(dt, &report)

	for _, c := range s.collisions.Drain() {
		if out, ok := s.resolve(c, now, &report); ok {
			report.Hits = append(report.Hits, out)
		}
	}

	s.compact()
	report.Active = len(s.projectiles)
	report.Duration = time.Since(started)

	s.metrics.activeCount.Store(int64(report.Active))
	s.metrics.tickDuration.Record(context.Background(), float64(report.Duration.Microseconds())/1000)
	return report
}

func (s *Simulation) stepAll(dt time.Duration, report *TickReport) {
	scale := float64(dt) / float64(referenceFrame)

	for _, f := range s.projectiles {
		if f.p.Homing {
			s.steer(f, scale)
		}
		projectile.Step(&f.p, dt)
		f.path = append(f.path, f.p.Position)

		if projectile.Expired(&f.p) {
			s.drop(f, report)
		}
	}
}

func (s *Simulation) steer(f *inFlight, scale float64) {
	alive := s.entities.Alive(f.p.OwnerID)
	if len(alive) == 0 {
		return
	}
	positions := make([]core.Vec2, len(alive))
	for i, e := range alive {
		positions[i] = e.Position
	}
	if target, ok := projectile.Nearest(&f.p, positions, s.cfg.HomingRange); ok {
		projectile.Steer(&f.p, target, s.cfg.HomingTurnRate*scale)
	}
}

func (s *Simulation) drop(f *inFlight, report *TickReport) {
	if f.gone {
		return
	}
	f.gone = true
	delete(s.index, f.p.ID)
	report.Removed = append(report.Removed, f.p.ID)
}

func (s *Simulation) compact() {
	kept := s.projectiles[:0]
	for _, f := range s.projectiles {
		if !f.gone {
			kept = append(kept, f)
		}
	}
	for i := len(kept); i < len(s.projectiles); i++ {
		s.projectiles[i] = nil
	}
	s.projectiles = kept
}

// resolve applies one collision. Collisions against removed projectiles,
// unknown or dead targets, and the shooter itself are ignored.
func (s *Simulation) resolve(c Collision, now time.Time, report *TickReport) (HitOutcome, bool) {
	f, ok := s.index[c.ProjectileID]
	if !ok || f.gone {
		return HitOutcome{}, false
	}
	target, ok := s.entities.Get(c.TargetID)
	if !ok || !target.Alive || target.ID == f.p.OwnerID {
		return HitOutcome{}, false
	}

	p := &f.p
	side := combat.ClassifyHit(p.Angle, target.Heading, c.Impact.X, c.Impact.Y, target.Position.X, target.Position.Y)
	res := projectile.ResolveHit(p, target)
	dmg := s.damage.ResolveDamage(res.Damage, side)
	applied := dmg.Damage * s.powerups.Modifiers(target.ID, now).IncomingScale

	out := HitOutcome{
		Collision:  c,
		ShooterID:  p.OwnerID,
		Weapon:     p.Weapon,
		Result:     dmg,
		Applied:    applied,
		Resolution: res,
	}

	if hit := s.components.Apply(target.ID, applied, side); hit != nil {
		out.Component = hit
		s.recorder.RecordComponentDamage(core.ComponentEvent{
			Time:      now,
			Tick:      s.tick,
			EntityID:  target.ID,
			Component: hit.Component,
			Destroyed: hit.Destroyed,
			Health:    hit.Health,
		})
	}

	s.entities.Update(target.ID, func(e *core.Entity) {
		e.Health = math.Max(0, e.Health-applied)
		if e.Health == 0 && e.Alive {
			e.Alive = false
			out.Killed = true
		}
	})

	path := make([]core.Vec2, len(f.path), len(f.path)+1)
	copy(path, f.path)
	path = append(path, c.Impact)

	s.recorder.RecordHit(core.HitEvent{
		Time:         now,
		Tick:         s.tick,
		ProjectileID: p.ID,
		ShooterID:    p.OwnerID,
		VictimID:     target.ID,
		Weapon:       p.Weapon,
		Impact:       c.Impact,
		Side:         side,
		Critical:     dmg.Critical,
		Multiplier:   dmg.Multiplier,
		Damage:       applied,
		Removed:      res.RemoveProjectile,
		Path:         path,
	})
	s.metrics.recordHit(side.String(), p.Weapon.String(), applied)

	for _, eff := range res.Effects {
		report.Effects = append(report.Effects, eff)
		s.recorder.RecordEffect(core.EffectEvent{Time: now, Tick: s.tick, SourceID: p.OwnerID, Effect: eff})
	}

	if out.Killed {
		kill := core.KillEvent{Time: now, Tick: s.tick, VictimID: target.ID, KillerID: p.OwnerID, Weapon: p.Weapon}
		report.Kills = append(report.Kills, kill)
		s.recorder.RecordKill(kill)
		s.logger.Info("entity killed", "victim", target.ID, "killer", p.OwnerID, "weapon", p.Weapon.String())
	}

	if res.RemoveProjectile {
		s.drop(f, report)
	}
	return out, true
}
