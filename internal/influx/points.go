package influx

import (
	"time"

	"github.com/TheFortz/combat/internal/sim"
	"github.com/TheFortz/combat/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// TickPoint summarises one tick for the sim_performance bucket.
func TickPoint(report sim.TickReport, matchName string, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"tick",
		map[string]string{"match": matchName},
		map[string]any{
			"tick":               int64(report.Tick),
			"duration_ms":        float64(report.Duration.Microseconds()) / 1000,
			"active_projectiles": report.Active,
			"hits":               len(report.Hits),
			"kills":              len(report.Kills),
			"effects":            len(report.Effects),
			"removed":            len(report.Removed),
		},
		at,
	)
}

// ShotPoint records a trigger pull.
func ShotPoint(e core.ShotEvent, matchName string) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"shot",
		map[string]string{"match": matchName, "weapon": e.Weapon.String()},
		map[string]any{
			"shooter":     int64(e.ShooterID),
			"projectiles": e.Projectiles,
		},
		e.Time,
	)
}

// HitPoint records a resolved hit.
func HitPoint(e core.HitEvent, matchName string) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"hit",
		map[string]string{
			"match":  matchName,
			"weapon": e.Weapon.String(),
			"side":   e.Side.String(),
		},
		map[string]any{
			"shooter":    int64(e.ShooterID),
			"victim":     int64(e.VictimID),
			"damage":     e.Damage,
			"multiplier": e.Multiplier,
			"critical":   e.Critical,
		},
		e.Time,
	)
}

// KillPoint records a kill.
func KillPoint(e core.KillEvent, matchName string) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"kill",
		map[string]string{"match": matchName, "weapon": e.Weapon.String()},
		map[string]any{
			"killer": int64(e.KillerID),
			"victim": int64(e.VictimID),
		},
		e.Time,
	)
}

// Recorder writes shots, hits and kills to the combat_events bucket.
// Component damage and effects are left to storage.
type Recorder struct {
	m         *Manager
	matchName func() string
	log       zerolog.Logger
}

var _ sim.Recorder = (*Recorder)(nil)

// NewRecorder creates a Recorder; matchName labels every point.
func NewRecorder(m *Manager, matchName func() string) *Recorder {
	return &Recorder{m: m, matchName: matchName, log: m.Logger}
}

func (r *Recorder) write(p *influxdb2_write.Point) {
	if err := r.m.WritePoint(BucketCombatEvents, p); err != nil {
		r.log.Warn().Err(err).Str("measurement", p.Name()).Msg("Failed to write combat point")
	}
}

func (r *Recorder) RecordShot(e core.ShotEvent) { r.write(ShotPoint(e, r.matchName())) }
func (r *Recorder) RecordHit(e core.HitEvent)   { r.write(HitPoint(e, r.matchName())) }
func (r *Recorder) RecordKill(e core.KillEvent) { r.write(KillPoint(e, r.matchName())) }

func (r *Recorder) RecordComponentDamage(core.ComponentEvent) {}
func (r *Recorder) RecordEffect(core.EffectEvent)             {}
