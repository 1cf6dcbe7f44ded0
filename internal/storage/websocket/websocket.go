// Package websocket streams match events to a live server over a WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/model/convert"
	"github.com/TheFortz/combat/pkg/core"
	"github.com/TheFortz/combat/pkg/streaming"
)

// Backend streams match events over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn     *connection
	cfg      config.WebSocketConfig
	settings any
	active   atomic.Bool
}

// New creates a new WebSocket storage backend. settings is sent with
// start_match so the server can show the rules the match ran under.
func New(cfg config.WebSocketConfig, logger *slog.Logger, settings any) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn:     newConnection(logger),
		cfg:      cfg,
		settings: settings,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Pending returns the number of messages not yet written to the socket.
func (b *Backend) Pending() int {
	return b.conn.pending()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEvent pushes an event to the write loop (fire-and-forget).
// Events outside a match are rejected.
func (b *Backend) sendEvent(msgType string, payload any) error {
	if !b.active.Load() {
		return match.ErrNoMatch
	}
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch announces the match and waits for the server ack.
func (b *Backend) StartMatch(m *core.Match) error {
	var settings json.RawMessage
	if b.settings != nil {
		raw, err := json.Marshal(b.settings)
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		settings = raw
	}

	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{
		MatchName: m.Name,
		MapName:   m.MapName,
		Tag:       m.Tag,
		StartTime: m.StartTime,
		TickRate:  m.TickRate,
		Settings:  settings,
	})
	if err != nil {
		return err
	}

	b.conn.setReplay(data)
	b.active.Store(true)

	return b.conn.sendAndWait(data, streaming.TypeStartMatch, ackTimeout)
}

// EndMatch sends end_match and waits for the server ack.
func (b *Backend) EndMatch(end time.Time) error {
	if !b.active.Swap(false) {
		return match.ErrNoMatch
	}

	data, err := marshalEnvelope(streaming.TypeEndMatch, streaming.EndMatchPayload{EndTime: end})
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndMatch, ackTimeout)
	}

	b.conn.setReplay(nil)

	return err
}

func point(v core.Vec2) streaming.Point {
	return streaming.Point{X: v.X, Y: v.Y}
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	return b.sendEvent(streaming.TypeShot, streaming.ShotPayload{
		Time:        e.Time,
		Tick:        e.Tick,
		ShooterID:   uint32(e.ShooterID),
		Weapon:      e.Weapon.String(),
		Origin:      point(e.Origin),
		Angle:       e.Angle,
		Projectiles: e.Projectiles,
	})
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	var path []streaming.Point
	if len(e.Path) > 0 {
		path = make([]streaming.Point, len(e.Path))
		for i, p := range e.Path {
			path[i] = point(p)
		}
	}
	return b.sendEvent(streaming.TypeHit, streaming.HitPayload{
		Time:         e.Time,
		Tick:         e.Tick,
		ProjectileID: uint64(e.ProjectileID),
		ShooterID:    uint32(e.ShooterID),
		VictimID:     uint32(e.VictimID),
		Weapon:       e.Weapon.String(),
		Impact:       point(e.Impact),
		Side:         e.Side.String(),
		Critical:     e.Critical,
		Multiplier:   e.Multiplier,
		Damage:       e.Damage,
		Removed:      e.Removed,
		Path:         path,
	})
}

func (b *Backend) RecordComponentDamage(e *core.ComponentEvent) error {
	return b.sendEvent(streaming.TypeComponentDamage, streaming.ComponentDamagePayload{
		Time:      e.Time,
		Tick:      e.Tick,
		EntityID:  uint32(e.EntityID),
		Component: e.Component.String(),
		Destroyed: e.Destroyed,
		Health:    e.Health,
	})
}

func (b *Backend) RecordEffect(e *core.EffectEvent) error {
	if !b.active.Load() {
		return match.ErrNoMatch
	}
	data, err := convert.EffectPayload(e.Effect)
	if err != nil {
		return err
	}
	return b.sendEvent(streaming.TypeEffect, streaming.EffectPayload{
		Time:     e.Time,
		Tick:     e.Tick,
		SourceID: uint32(e.SourceID),
		Kind:     string(e.Effect.Kind()),
		Data:     json.RawMessage(data),
	})
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	return b.sendEvent(streaming.TypeKill, streaming.KillPayload{
		Time:     e.Time,
		Tick:     e.Tick,
		VictimID: uint32(e.VictimID),
		KillerID: uint32(e.KillerID),
		Weapon:   e.Weapon.String(),
	})
}
