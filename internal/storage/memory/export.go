// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/TheFortz/combat/internal/model/convert"
)

// ExportVersion is bumped whenever the event tuple layout changes.
const ExportVersion = 1

// Event tuple tags. Every event is encoded as [tag, tick, ...fields].
const (
	EventShot      = "shot"
	EventHit       = "hit"
	EventComponent = "component"
	EventEffect    = "effect"
	EventKill      = "kill"
)

// MatchExport is the root JSON structure
type MatchExport struct {
	ExportVersion int         `json:"exportVersion"`
	MatchName     string      `json:"matchName"`
	MapName       string      `json:"mapName"`
	Tag           string      `json:"tag"`
	StartTime     time.Time   `json:"startTime"`
	Duration      float64     `json:"duration"` // seconds
	TickRate      int         `json:"tickRate"`
	EndTick       uint64      `json:"endTick"`
	Scoreboard    []ScoreJSON `json:"scoreboard"`
	Events        [][]any     `json:"events"`
}

// ScoreJSON summarises one entity's match
type ScoreJSON struct {
	ID          uint32  `json:"id"`
	Shots       int     `json:"shots"`
	Projectiles int     `json:"projectiles"`
	Hits        int     `json:"hits"`
	Criticals   int     `json:"criticals"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	DamageDealt float64 `json:"damageDealt"`
	DamageTaken float64 `json:"damageTaken"`
}

type tickedEvent struct {
	tick uint64
	data []any
}

// exportJSON writes the match data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export, err := b.buildExport()
	if err != nil {
		return err
	}

	// Build filename
	matchName := strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_").Replace(b.match.Name)
	timestamp := b.match.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", matchName, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMeta.MatchName = export.MatchName
	b.lastExportMeta.MapName = export.MapName
	b.lastExportMeta.MatchDuration = export.Duration
	b.lastExportMeta.Tag = export.Tag
	return nil
}

func (b *Backend) buildExport() (MatchExport, error) {
	export := MatchExport{
		ExportVersion: ExportVersion,
		MatchName:     b.match.Name,
		MapName:       b.match.MapName,
		Tag:           b.match.Tag,
		StartTime:     b.match.StartTime,
		TickRate:      b.match.TickRate,
		Scoreboard:    make([]ScoreJSON, 0),
		Events:        make([][]any, 0),
	}
	if !b.end.IsZero() && b.end.After(b.match.StartTime) {
		export.Duration = b.end.Sub(b.match.StartTime).Seconds()
	}

	scores := map[uint32]*ScoreJSON{}
	score := func(id uint32) *ScoreJSON {
		s, ok := scores[id]
		if !ok {
			s = &ScoreJSON{ID: id}
			scores[id] = s
		}
		return s
	}

	events := make([]tickedEvent, 0, len(b.shots)+len(b.hits)+len(b.components)+len(b.effects)+len(b.kills))

	for _, e := range b.shots {
		s := score(uint32(e.ShooterID))
		s.Shots++
		s.Projectiles += e.Projectiles
		events = append(events, tickedEvent{e.Tick, []any{
			EventShot, e.Tick, uint32(e.ShooterID), e.Weapon.String(),
			e.Origin.X, e.Origin.Y, e.Angle, e.Projectiles,
		}})
	}

	for _, e := range b.hits {
		shooter := score(uint32(e.ShooterID))
		shooter.Hits++
		shooter.DamageDealt += e.Damage
		if e.Critical {
			shooter.Criticals++
		}
		score(uint32(e.VictimID)).DamageTaken += e.Damage
		events = append(events, tickedEvent{e.Tick, []any{
			EventHit, e.Tick, uint64(e.ProjectileID), uint32(e.ShooterID), uint32(e.VictimID),
			e.Weapon.String(), e.Side.String(), e.Damage, e.Multiplier, e.Critical,
			e.Impact.X, e.Impact.Y,
		}})
	}

	for _, e := range b.components {
		events = append(events, tickedEvent{e.Tick, []any{
			EventComponent, e.Tick, uint32(e.EntityID), e.Component.String(), e.Health, e.Destroyed,
		}})
	}

	for _, e := range b.effects {
		payload, err := convert.EffectPayload(e.Effect)
		if err != nil {
			return export, err
		}
		events = append(events, tickedEvent{e.Tick, []any{
			EventEffect, e.Tick, uint32(e.SourceID), string(e.Effect.Kind()), json.RawMessage(payload),
		}})
	}

	for _, e := range b.kills {
		score(uint32(e.KillerID)).Kills++
		score(uint32(e.VictimID)).Deaths++
		events = append(events, tickedEvent{e.Tick, []any{
			EventKill, e.Tick, uint32(e.VictimID), uint32(e.KillerID), e.Weapon.String(),
		}})
	}

	// Stable keeps shot < hit < component < effect < kill within a tick.
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })
	for _, e := range events {
		export.Events = append(export.Events, e.data)
		if e.tick > export.EndTick {
			export.EndTick = e.tick
		}
	}

	for _, s := range scores {
		export.Scoreboard = append(export.Scoreboard, *s)
	}
	sort.Slice(export.Scoreboard, func(i, j int) bool { return export.Scoreboard[i].ID < export.Scoreboard[j].ID })

	return export, nil
}

func writeJSON(path string, data MatchExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data MatchExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
