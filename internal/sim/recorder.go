package sim

import "github.com/TheFortz/combat/pkg/core"

// Recorder receives every outcome the simulation produces. Implementations
// must not call back into the Simulation.
type Recorder interface {
	RecordShot(core.ShotEvent)
	RecordHit(core.HitEvent)
	RecordComponentDamage(core.ComponentEvent)
	RecordEffect(core.EffectEvent)
	RecordKill(core.KillEvent)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordShot(core.ShotEvent)                 {}
func (NopRecorder) RecordHit(core.HitEvent)                   {}
func (NopRecorder) RecordComponentDamage(core.ComponentEvent) {}
func (NopRecorder) RecordEffect(core.EffectEvent)             {}
func (NopRecorder) RecordKill(core.KillEvent)                 {}

// Tee fans every outcome out to several recorders in order.
type Tee []Recorder

func (t Tee) RecordShot(e core.ShotEvent) {
	for _, r := range t {
		r.RecordShot(e)
	}
}

func (t Tee) RecordHit(e core.HitEvent) {
	for _, r := range t {
		r.RecordHit(e)
	}
}

func (t Tee) RecordComponentDamage(e core.ComponentEvent) {
	for _, r := range t {
		r.RecordComponentDamage(e)
	}
}

func (t Tee) RecordEffect(e core.EffectEvent) {
	for _, r := range t {
		r.RecordEffect(e)
	}
}

func (t Tee) RecordKill(e core.KillEvent) {
	for _, r := range t {
		r.RecordKill(e)
	}
}
