// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/config"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/pkg/core"
)

// ErrNoMatch is returned when events arrive outside a match.
var ErrNoMatch = match.ErrNoMatch

// Backend stores match data in memory and exports to JSON
type Backend struct {
	cfg   config.MemoryConfig
	match *core.Match
	end   time.Time

	shots      []core.ShotEvent
	hits       []core.HitEvent
	components []core.ComponentEvent
	effects    []core.EffectEvent
	kills      []core.KillEvent

	idCounter      uint
	lastExportPath string
	lastExportMeta core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match, discarding anything recorded before.
func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	m.ID = b.idCounter

	cp := *m
	b.match = &cp
	b.end = time.Time{}

	b.shots = nil
	b.hits = nil
	b.components = nil
	b.effects = nil
	b.kills = nil

	return nil
}

// EndMatch finalizes and exports the match data
func (b *Backend) EndMatch(end time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return ErrNoMatch
	}
	b.end = end
	err := b.exportJSON()
	b.match = nil
	return err
}

func (b *Backend) active() error {
	if b.match == nil {
		return ErrNoMatch
	}
	return nil
}

// RecordShot records a shot
func (b *Backend) RecordShot(e *core.ShotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.active(); err != nil {
		return err
	}
	b.shots = append(b.shots, *e)
	return nil
}

// RecordHit records a hit
func (b *Backend) RecordHit(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.active(); err != nil {
		return err
	}
	b.hits = append(b.hits, *e)
	return nil
}

// RecordComponentDamage records component damage
func (b *Backend) RecordComponentDamage(e *core.ComponentEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.active(); err != nil {
		return err
	}
	b.components = append(b.components, *e)
	return nil
}

// RecordEffect records an emitted effect
func (b *Backend) RecordEffect(e *core.EffectEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.active(); err != nil {
		return err
	}
	b.effects = append(b.effects, *e)
	return nil
}

// RecordKill records a kill
func (b *Backend) RecordKill(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.active(); err != nil {
		return err
	}
	b.kills = append(b.kills, *e)
	return nil
}

// Counts returns how many shots, hits and kills are recorded for the current match.
func (b *Backend) Counts() (shots, hits, kills int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.shots), len(b.hits), len(b.kills)
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns the metadata of the last export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
