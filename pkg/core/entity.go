// pkg/core/entity.go
package core

// Entity is a combatant as seen by the combat core.
// Position and heading are owned by the movement layer; the core only reads them.
type Entity struct {
	ID        EntityID
	Position  Vec2
	Heading   float64 // radians
	Health    float64
	MaxHealth float64
	Alive     bool
}

// ComponentHealth is the per-entity record owned by the component health model.
type ComponentHealth struct {
	Turret float64 `json:"turret"`
	Tracks float64 `json:"tracks"`
	Engine float64 `json:"engine"`
}

// FullComponentHealth returns a record with every component at its maximum.
func FullComponentHealth() ComponentHealth {
	return ComponentHealth{
		Turret: ComponentTurret.Max(),
		Tracks: ComponentTracks.Max(),
		Engine: ComponentEngine.Max(),
	}
}

// Get returns the health of a single component.
func (h ComponentHealth) Get(c Component) float64 {
	switch c {
	case ComponentTurret:
		return h.Turret
	case ComponentTracks:
		return h.Tracks
	case ComponentEngine:
		return h.Engine
	}
	return 0
}

// Set overwrites the health of a single component.
func (h *ComponentHealth) Set(c Component, v float64) {
	switch c {
	case ComponentTurret:
		h.Turret = v
	case ComponentTracks:
		h.Tracks = v
	case ComponentEngine:
		h.Engine = v
	}
}
