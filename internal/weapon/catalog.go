// Package weapon holds the weapon catalog and the per-entity armory that gates
// firing and turns trigger pulls into projectiles.
package weapon

import (
	"math"
	"time"

	"github.com/TheFortz/combat/pkg/core"
)

// DefaultLifetime applies to projectiles whose definition sets none.
const DefaultLifetime = 3 * time.Second

// Definition is an immutable catalog entry.
type Definition struct {
	ID          core.WeaponID
	Name        string
	Damage      float64
	FireRate    time.Duration
	Speed       float64
	Size        float64
	Spread      float64 // radians, full cone width
	BulletCount int
	Color       string

	Piercing        bool
	Explosive       bool
	ExplosionRadius float64
	Homing          bool
	Bounces         int
	Gravity         float64
	DotDamage       float64
	DotDuration     time.Duration
	DotInterval     time.Duration
	ChargeTime      time.Duration
	Lifetime        time.Duration
}

// RequiresCharge reports whether the weapon must be charged before it fires.
func (d Definition) RequiresCharge() bool {
	return d.ChargeTime > 0
}

// ProjectileLifetime returns the lifetime given to spawned projectiles.
func (d Definition) ProjectileLifetime() time.Duration {
	if d.Lifetime > 0 {
		return d.Lifetime
	}
	return DefaultLifetime
}

func deg(d float64) float64 { return d * math.Pi / 180 }

var catalog = map[core.WeaponID]Definition{
	core.WeaponCannon: {
		Damage: 20, FireRate: 500 * time.Millisecond, Speed: 8, Size: 5,
		BulletCount: 1, Color: "#ffcc00",
	},
	core.WeaponMachineGun: {
		Damage: 8, FireRate: 100 * time.Millisecond, Speed: 12, Size: 3,
		Spread: deg(8), BulletCount: 1, Color: "#ffff66",
	},
	core.WeaponShotgun: {
		Damage: 12, FireRate: 800 * time.Millisecond, Speed: 9, Size: 4,
		Spread: deg(30), BulletCount: 6, Color: "#ff9933",
	},
	core.WeaponSniper: {
		Damage: 60, FireRate: 1500 * time.Millisecond, Speed: 20, Size: 3,
		BulletCount: 1, Color: "#66ccff", Piercing: true,
	},
	core.WeaponRocket: {
		Damage: 40, FireRate: 1200 * time.Millisecond, Speed: 6, Size: 7,
		BulletCount: 1, Color: "#ff3300", Explosive: true, ExplosionRadius: 80,
		Homing: true,
	},
	core.WeaponLaser: {
		Damage: 15, FireRate: 300 * time.Millisecond, Speed: 25, Size: 2,
		BulletCount: 1, Color: "#ff00ff", Piercing: true,
	},
	core.WeaponFlamethrower: {
		Damage: 3, FireRate: 50 * time.Millisecond, Speed: 5, Size: 6,
		Spread: deg(20), BulletCount: 1, Color: "#ff6600",
		DotDamage: 2, DotDuration: time.Second, DotInterval: 250 * time.Millisecond,
		Lifetime: 600 * time.Millisecond,
	},
	core.WeaponRailgun: {
		Damage: 90, FireRate: 2000 * time.Millisecond, Speed: 30, Size: 4,
		BulletCount: 1, Color: "#00ffcc", Piercing: true,
		ChargeTime: 1000 * time.Millisecond,
	},
	core.WeaponGrenade: {
		Damage: 35, FireRate: 1000 * time.Millisecond, Speed: 7, Size: 6,
		BulletCount: 1, Color: "#669900", Explosive: true, ExplosionRadius: 100,
		Gravity: 0.15,
	},
	core.WeaponRicochet: {
		Damage: 18, FireRate: 600 * time.Millisecond, Speed: 10, Size: 4,
		BulletCount: 1, Color: "#cccccc", Bounces: 3,
	},
}

func init() {
	for id, def := range catalog {
		def.ID = id
		def.Name = id.String()
		catalog[id] = def
	}
}

// Lookup returns a copy of the definition for id.
func Lookup(id core.WeaponID) (Definition, bool) {
	def, ok := catalog[id]
	return def, ok
}

// All returns every definition in catalog order.
func All() []Definition {
	ids := core.WeaponIDs()
	defs := make([]Definition, 0, len(ids))
	for _, id := range ids {
		defs = append(defs, catalog[id])
	}
	return defs
}
