package parser

import (
	"github.com/TheFortz/combat/internal/powerup"
	"github.com/TheFortz/combat/pkg/core"
)

// Spawn places a new entity in the arena.
type Spawn struct {
	Entity core.Entity
}

// Move reports an entity's new position and heading from the movement layer.
type Move struct {
	ID       core.EntityID
	Position core.Vec2
	Heading  float64
}

// Respawn revives an entity at a new position.
type Respawn Move

// Fire is a trigger pull in a world-space direction (radians).
type Fire struct {
	ID    core.EntityID
	Angle float64
}

// Switch changes an entity's equipped weapon.
type Switch struct {
	ID     core.EntityID
	Weapon core.WeaponID
}

// Hit is a collision reported by the physics layer.
type Hit struct {
	ProjectileID core.ProjectileID
	TargetID     core.EntityID
	Impact       core.Vec2
}

// Repair restores health to one component.
type Repair struct {
	ID        core.EntityID
	Component core.Component
	Amount    float64
}

// PowerUp grants a timed modifier.
type PowerUp struct {
	ID   core.EntityID
	Kind powerup.Kind
}

// MatchStart opens a new recorded match.
type MatchStart struct {
	Name    string
	MapName string
}
