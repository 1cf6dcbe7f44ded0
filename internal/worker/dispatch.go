package worker

import (
	"fmt"
	"time"

	"github.com/TheFortz/combat/internal/dispatcher"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/internal/sim"
	"github.com/TheFortz/combat/internal/storage"
	"github.com/TheFortz/combat/pkg/core"
)

// Commands accepted from the input layer.
const (
	CmdSpawn        = ":SPAWN:"
	CmdMove         = ":MOVE:"
	CmdRemove       = ":REMOVE:"
	CmdRespawn      = ":RESPAWN:"
	CmdFire         = ":FIRE:"
	CmdCharge       = ":CHARGE:"
	CmdCancelCharge = ":CANCEL:CHARGE:"
	CmdSwitch       = ":SWITCH:"
	CmdHit          = ":HIT:"
	CmdRepair       = ":REPAIR:"
	CmdPowerUp      = ":POWERUP:"
	CmdMatchStart   = ":MATCH:START:"
	CmdMatchEnd     = ":MATCH:END:"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Entity lifecycle and movement - sync so later commands see the result
	d.Register(CmdSpawn, m.handleSpawn, dispatcher.Logged())
	d.Register(CmdRespawn, m.handleRespawn, dispatcher.Logged())
	d.Register(CmdRemove, m.handleRemove, dispatcher.Logged())
	d.Register(CmdMove, m.handleMove)

	// Weapons - sync, the caller needs the projectile IDs
	d.Register(CmdFire, m.handleFire, dispatcher.Logged())
	d.Register(CmdCharge, m.handleCharge, dispatcher.Logged())
	d.Register(CmdCancelCharge, m.handleCancelCharge, dispatcher.Logged())
	d.Register(CmdSwitch, m.handleSwitch, dispatcher.Logged())

	// Collisions only queue; they resolve on the next tick
	d.Register(CmdHit, m.handleHit, dispatcher.Logged())

	d.Register(CmdRepair, m.handleRepair, dispatcher.Logged())
	d.Register(CmdPowerUp, m.handlePowerUp, dispatcher.Logged())

	d.Register(CmdMatchStart, m.handleMatchStart, dispatcher.Logged())
	d.Register(CmdMatchEnd, m.handleMatchEnd, dispatcher.Logged())
}

func (m *Manager) handleSpawn(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseSpawn(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn: %w", err)
	}
	m.deps.Sim.Spawn(obj.Entity)
	return nil, nil
}

func (m *Manager) handleRespawn(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseRespawn(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to respawn: %w", err)
	}
	return nil, m.deps.Sim.Respawn(obj.ID, obj.Position, obj.Heading)
}

func (m *Manager) handleRemove(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseRemove(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to remove: %w", err)
	}
	return nil, m.deps.Sim.Remove(id)
}

func (m *Manager) handleMove(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseMove(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to move: %w", err)
	}
	return nil, m.deps.Sim.Move(obj.ID, obj.Position, obj.Heading)
}

// handleFire returns the IDs of the projectiles spawned, empty when the
// weapon is cooling down, charging or the shooter is dead.
func (m *Manager) handleFire(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseFire(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to fire: %w", err)
	}
	shots, err := m.deps.Sim.Fire(obj.ID, obj.Angle)
	if err != nil {
		return nil, err
	}
	ids := make([]core.ProjectileID, len(shots))
	for i, p := range shots {
		ids[i] = p.ID
	}
	return ids, nil
}

func (m *Manager) handleCharge(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseEntityID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to start charge: %w", err)
	}
	return nil, m.deps.Sim.StartCharge(id)
}

func (m *Manager) handleCancelCharge(e dispatcher.Event) (any, error) {
	id, err := m.deps.ParserService.ParseEntityID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel charge: %w", err)
	}
	return nil, m.deps.Sim.CancelCharge(id)
}

func (m *Manager) handleSwitch(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseSwitch(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to switch weapon: %w", err)
	}
	return nil, m.deps.Sim.Switch(obj.ID, obj.Weapon)
}

func (m *Manager) handleHit(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseHit(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log hit: %w", err)
	}
	m.deps.Sim.SubmitCollision(sim.Collision{
		ProjectileID: obj.ProjectileID,
		TargetID:     obj.TargetID,
		Impact:       obj.Impact,
	})
	return nil, nil
}

// handleRepair returns the component's health after the repair.
func (m *Manager) handleRepair(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseRepair(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to repair: %w", err)
	}
	return m.deps.Sim.Repair(obj.ID, obj.Component, obj.Amount)
}

// handlePowerUp returns when the granted power-up expires.
func (m *Manager) handlePowerUp(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParsePowerUp(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to grant power-up: %w", err)
	}
	return m.deps.Sim.GrantPowerUp(obj.ID, obj.Kind)
}

// handleMatchStart ends any running match and opens a new one. It returns
// the new match ID.
func (m *Manager) handleMatchStart(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseMatchStart(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}

	now := e.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if m.deps.MatchContext.Active() {
		if prev, _, err := m.EndMatch(now); err != nil && prev != nil {
			m.log.Warn("Failed to end previous match", "match", prev.Name, "error", err)
		}
	}

	mt, err := m.StartMatch(obj.Name, obj.MapName, now)
	if err != nil {
		return nil, err
	}
	return mt.ID, nil
}

func (m *Manager) handleMatchEnd(e dispatcher.Event) (any, error) {
	now := e.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	mt, dur, err := m.EndMatch(now)
	if err != nil {
		return nil, err
	}
	m.log.Info("Match ended", "match", mt.Name, "id", mt.ID, "duration", dur)
	return nil, nil
}

// StartMatch creates the match in storage and then makes it current, so
// no outcome is recorded before the backend knows the match.
func (m *Manager) StartMatch(name, mapName string, start time.Time) (*core.Match, error) {
	mt := &core.Match{
		Name:      name,
		MapName:   mapName,
		StartTime: start,
		TickRate:  m.deps.TickRate,
		Tag:       m.deps.Tag,
	}
	if err := m.call("start_match", func(b storage.Backend) error { return b.StartMatch(mt) }); err != nil {
		return nil, fmt.Errorf("failed to start match %q: %w", name, err)
	}
	m.deps.MatchContext.Start(mt)
	m.log.Info("Match started", "match", mt.Name, "map", mt.MapName, "id", mt.ID)
	return mt, nil
}

// EndMatch stops recording, then closes the match in storage after every
// outcome already queued. It returns the ended match and its duration.
func (m *Manager) EndMatch(end time.Time) (*core.Match, time.Duration, error) {
	mt, dur, ok := m.deps.MatchContext.End(end)
	if !ok {
		return mt, 0, match.ErrNoMatch
	}
	err := m.call("end_match", func(b storage.Backend) error { return b.EndMatch(end) })
	if err == nil && m.deps.OnMatchEnd != nil {
		m.deps.OnMatchEnd(mt, dur)
	}
	return mt, dur, err
}

// RecordShot implements sim.Recorder.
func (m *Manager) RecordShot(e core.ShotEvent) {
	m.enqueue("shot", func(b storage.Backend) error { return b.RecordShot(&e) })
}

// RecordHit implements sim.Recorder.
func (m *Manager) RecordHit(e core.HitEvent) {
	m.enqueue("hit", func(b storage.Backend) error { return b.RecordHit(&e) })
}

// RecordComponentDamage implements sim.Recorder.
func (m *Manager) RecordComponentDamage(e core.ComponentEvent) {
	m.enqueue("component", func(b storage.Backend) error { return b.RecordComponentDamage(&e) })
}

// RecordEffect implements sim.Recorder.
func (m *Manager) RecordEffect(e core.EffectEvent) {
	m.enqueue("effect", func(b storage.Backend) error { return b.RecordEffect(&e) })
}

// RecordKill implements sim.Recorder.
func (m *Manager) RecordKill(e core.KillEvent) {
	m.enqueue("kill", func(b storage.Backend) error { return b.RecordKill(&e) })
}

// OnTick takes the report of a finished tick. Once a second of ticks it
// stores a performance sample if the backend keeps them.
func (m *Manager) OnTick(report sim.TickReport) {
	m.lastTick.Store(&TickStats{
		Tick:     report.Tick,
		Duration: report.Duration,
		Active:   report.Active,
		Hits:     len(report.Hits),
		Kills:    len(report.Kills),
	})

	every := uint64(max(m.deps.TickRate, 1))
	if report.Tick%every != 0 {
		return
	}
	if _, ok := m.backend.(storage.PerformanceRecorder); !ok {
		return
	}

	sample := model.SimPerformance{
		Time:                time.Now(),
		Tick:                report.Tick,
		TickDurationMs:      float32(report.Duration.Microseconds()) / 1000,
		ActiveProjectiles:   report.Active,
		WriteQueueLengths:   m.GetWriteQueueLengths(),
		LastWriteDurationMs: float32(m.GetLastDBWriteDuration().Microseconds()) / 1000,
	}
	if m.deps.Sim != nil {
		sample.Entities = m.deps.Sim.EntityCount()
	}
	m.enqueue("performance", func(b storage.Backend) error {
		return b.(storage.PerformanceRecorder).RecordPerformance(sample)
	})
}
