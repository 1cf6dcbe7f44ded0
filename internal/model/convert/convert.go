// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/TheFortz/combat/internal/geo"
	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/pkg/core"
	"gorm.io/datatypes"
)

// CoreToMatch converts a core.Match to a GORM model.Match.
// settings is stored verbatim in the JSON column; nil becomes an empty object.
func CoreToMatch(m core.Match, settings any) (model.Match, error) {
	raw := datatypes.JSON("{}")
	if settings != nil {
		data, err := json.Marshal(settings)
		if err != nil {
			return model.Match{}, fmt.Errorf("error marshalling match settings: %w", err)
		}
		raw = datatypes.JSON(data)
	}
	gm := model.Match{
		MatchName: m.Name,
		MapName:   m.MapName,
		StartTime: m.StartTime,
		TickRate:  m.TickRate,
		Tag:       m.Tag,
		Settings:  raw,
	}
	gm.ID = m.ID
	return gm, nil
}

// MatchToCore converts a GORM model.Match to a core.Match.
func MatchToCore(m model.Match) core.Match {
	return core.Match{
		ID:        m.ID,
		Name:      m.MatchName,
		MapName:   m.MapName,
		StartTime: m.StartTime,
		TickRate:  m.TickRate,
		Tag:       m.Tag,
	}
}

// EndMatch stamps the end time on a stored match.
func EndMatch(m *model.Match, end time.Time) {
	m.EndTime = &end
}

// CoreToShot converts a core.ShotEvent to a GORM model.Shot.
func CoreToShot(e core.ShotEvent, matchID uint) model.Shot {
	return model.Shot{
		Time:        e.Time,
		MatchID:     matchID,
		Tick:        e.Tick,
		ShooterID:   uint32(e.ShooterID),
		Weapon:      e.Weapon.String(),
		Origin:      geo.Point(e.Origin),
		Angle:       e.Angle,
		Projectiles: e.Projectiles,
	}
}

// CoreToHit converts a core.HitEvent to a GORM model.Hit.
// The recorded path becomes a LineString and its length the travel distance.
func CoreToHit(e core.HitEvent, matchID uint) model.Hit {
	return model.Hit{
		Time:         e.Time,
		MatchID:      matchID,
		Tick:         e.Tick,
		ProjectileID: uint64(e.ProjectileID),
		ShooterID:    uint32(e.ShooterID),
		VictimID:     uint32(e.VictimID),
		Weapon:       e.Weapon.String(),
		Impact:       geo.Point(e.Impact),
		Path:         geo.Path(e.Path),
		Distance:     geo.PathLength(e.Path),
		Side:         e.Side.String(),
		Critical:     e.Critical,
		Multiplier:   e.Multiplier,
		Damage:       e.Damage,
		Removed:      e.Removed,
	}
}

// CoreToComponentDamage converts a core.ComponentEvent to a GORM model.ComponentDamage.
func CoreToComponentDamage(e core.ComponentEvent, matchID uint) model.ComponentDamage {
	return model.ComponentDamage{
		Time:      e.Time,
		MatchID:   matchID,
		Tick:      e.Tick,
		EntityID:  uint32(e.EntityID),
		Component: e.Component.String(),
		Destroyed: e.Destroyed,
		Health:    e.Health,
	}
}

// CoreToEffect converts a core.EffectEvent to a GORM model.Effect.
func CoreToEffect(e core.EffectEvent, matchID uint) (model.Effect, error) {
	payload, err := EffectPayload(e.Effect)
	if err != nil {
		return model.Effect{}, err
	}
	return model.Effect{
		Time:     e.Time,
		MatchID:  matchID,
		Tick:     e.Tick,
		SourceID: uint32(e.SourceID),
		Kind:     string(e.Effect.Kind()),
		Payload:  payload,
	}, nil
}

// CoreToKill converts a core.KillEvent to a GORM model.Kill.
func CoreToKill(e core.KillEvent, matchID uint) model.Kill {
	return model.Kill{
		Time:     e.Time,
		MatchID:  matchID,
		Tick:     e.Tick,
		VictimID: uint32(e.VictimID),
		KillerID: uint32(e.KillerID),
		Weapon:   e.Weapon.String(),
	}
}

type explosionJSON struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Damage float64 `json:"damage"`
}

type dotJSON struct {
	TargetID   uint32  `json:"targetId"`
	Damage     float64 `json:"damage"`
	DurationMs int64   `json:"durationMs"`
	IntervalMs int64   `json:"intervalMs"`
}

// EffectPayload encodes the variant-specific fields of an effect.
func EffectPayload(eff core.Effect) (datatypes.JSON, error) {
	var v any
	switch e := eff.(type) {
	case core.ExplosionEffect:
		v = explosionJSON{X: e.Position.X, Y: e.Position.Y, Radius: e.Radius, Damage: e.Damage}
	case core.DotEffect:
		v = dotJSON{
			TargetID:   uint32(e.TargetID),
			Damage:     e.Damage,
			DurationMs: e.Duration.Milliseconds(),
			IntervalMs: e.Interval.Milliseconds(),
		}
	case nil:
		return nil, fmt.Errorf("error encoding effect: nil effect")
	default:
		return nil, fmt.Errorf("error encoding effect: unsupported kind %q", eff.Kind())
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error encoding effect: %w", err)
	}
	return datatypes.JSON(data), nil
}

// PayloadToEffect decodes a stored effect payload.
func PayloadToEffect(kind string, payload datatypes.JSON) (core.Effect, error) {
	switch core.EffectKind(kind) {
	case core.EffectExplosion:
		var v explosionJSON
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("error decoding explosion effect: %w", err)
		}
		return core.ExplosionEffect{Position: core.Vec2{X: v.X, Y: v.Y}, Radius: v.Radius, Damage: v.Damage}, nil
	case core.EffectDot:
		var v dotJSON
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("error decoding dot effect: %w", err)
		}
		return core.DotEffect{
			TargetID: core.EntityID(v.TargetID),
			Damage:   v.Damage,
			Duration: time.Duration(v.DurationMs) * time.Millisecond,
			Interval: time.Duration(v.IntervalMs) * time.Millisecond,
		}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", kind)
	}
}
