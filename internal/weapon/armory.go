package weapon

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/pkg/core"
)

// State is an entity's weapon state.
type State struct {
	Weapon      core.WeaponID
	LastShot    time.Time
	ChargeStart time.Time
	Charging    bool
}

// Modifiers scale a single shot. Zero fields mean no change.
type Modifiers struct {
	DamageScale   float64
	FireRateScale float64
}

func scaleOrOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// Armory owns weapon state for every entity and spawns projectiles.
type Armory struct {
	mu     sync.Mutex
	states map[core.EntityID]*State
	clock  Clock
	src    rng.Source
	nextID atomic.Uint64
}

// NewArmory creates an Armory. A nil clock uses the system clock.
func NewArmory(clock Clock, src rng.Source) *Armory {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Armory{
		states: make(map[core.EntityID]*State),
		clock:  clock,
		src:    src,
	}
}

// state returns the entity's state, creating it with the cannon equipped.
// Caller holds a.mu.
func (a *Armory) state(id core.EntityID) *State {
	st, ok := a.states[id]
	if !ok {
		st = &State{Weapon: core.WeaponCannon}
		a.states[id] = st
	}
	return st
}

// Equip gives an entity a fresh state holding weapon.
func (a *Armory) Equip(id core.EntityID, weapon core.WeaponID) bool {
	if !weapon.Valid() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[id] = &State{Weapon: weapon}
	return true
}

// State returns a copy of an entity's weapon state.
func (a *Armory) State(id core.EntityID) (State, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[id]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Remove forgets an entity.
func (a *Armory) Remove(id core.EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.states, id)
}

func (a *Armory) ready(st *State, def Definition, now time.Time, mods Modifiers) bool {
	rate := time.Duration(float64(def.FireRate) * scaleOrOne(mods.FireRateScale))
	return now.Sub(st.LastShot) >= rate
}

// CanFire reports whether the equipped weapon is off cooldown.
func (a *Armory) CanFire(id core.EntityID) bool {
	return a.CanFireWith(id, Modifiers{})
}

// CanFireWith is CanFire with a scaled fire rate.
func (a *Armory) CanFireWith(id core.EntityID, mods Modifiers) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state(id)
	def, _ := Lookup(st.Weapon)
	return a.ready(st, def, a.clock.Now(), mods)
}

// StartCharge begins charging a charge weapon. Non-charge weapons and
// weapons already charging are left alone.
func (a *Armory) StartCharge(id core.EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state(id)
	def, _ := Lookup(st.Weapon)
	if !def.RequiresCharge() || st.Charging {
		return
	}
	st.Charging = true
	st.ChargeStart = a.clock.Now()
}

// CancelCharge drops any charge in progress.
func (a *Armory) CancelCharge(id core.EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.states[id]; ok {
		st.Charging = false
		st.ChargeStart = time.Time{}
	}
}

// Switch equips another weapon. The charge is reset; the last shot time
// carries over so switching cannot skip a cooldown.
func (a *Armory) Switch(id core.EntityID, weapon core.WeaponID) bool {
	if !weapon.Valid() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state(id)
	st.Weapon = weapon
	st.Charging = false
	st.ChargeStart = time.Time{}
	return true
}

// Fire pulls the trigger of the equipped weapon at (x, y) towards angle.
func (a *Armory) Fire(id core.EntityID, x, y, angle float64) []core.Projectile {
	return a.FireWith(id, x, y, angle, Modifiers{})
}

// FireWith is Fire with damage and fire rate scaled by mods.
//
// It yields nothing while the weapon is cooling down. A charge weapon yields
// nothing until its charge is complete; pulling the trigger on an idle charge
// weapon starts the charge.
func (a *Armory) FireWith(id core.EntityID, x, y, angle float64, mods Modifiers) []core.Projectile {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.state(id)
	def, ok := Lookup(st.Weapon)
	if !ok {
		return nil
	}

	now := a.clock.Now()
	if !a.ready(st, def, now, mods) {
		return nil
	}

	if def.RequiresCharge() {
		if !st.Charging {
			st.Charging = true
			st.ChargeStart = now
			return nil
		}
		if now.Sub(st.ChargeStart) < def.ChargeTime {
			return nil
		}
	}

	st.LastShot = now
	st.Charging = false
	st.ChargeStart = time.Time{}

	damage := def.Damage * scaleOrOne(mods.DamageScale)
	shots := make([]core.Projectile, 0, def.BulletCount)
	for i := 0; i < def.BulletCount; i++ {
		dir := angle
		if def.Spread > 0 {
			dir += rng.Uniform(a.src, -def.Spread/2, def.Spread/2)
		}
		shots = append(shots, a.spawn(id, def, x, y, dir, damage))
	}
	return shots
}

func (a *Armory) spawn(owner core.EntityID, def Definition, x, y, angle, damage float64) core.Projectile {
	return core.Projectile{
		ID:       core.ProjectileID(a.nextID.Add(1)),
		OwnerID:  owner,
		Weapon:   def.ID,
		Position: core.Vec2{X: x, Y: y},
		Velocity: core.Vec2{X: math.Cos(angle) * def.Speed, Y: math.Sin(angle) * def.Speed},
		Angle:    angle,
		Damage:   damage,
		Size:     def.Size,
		Color:    def.Color,

		Piercing:        def.Piercing,
		Explosive:       def.Explosive,
		ExplosionRadius: def.ExplosionRadius,
		Homing:          def.Homing,
		Bounces:         def.Bounces,
		Gravity:         def.Gravity,
		DotDamage:       def.DotDamage,
		DotDuration:     def.DotDuration,
		DotInterval:     def.DotInterval,

		Lifetime: def.ProjectileLifetime(),
	}
}
