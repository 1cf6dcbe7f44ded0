// internal/storage/storage.go
package storage

import (
	"time"

	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management (StartMatch assigns ID to the passed pointer)
	StartMatch(m *core.Match) error
	EndMatch(end time.Time) error

	// Event recording
	RecordShot(e *core.ShotEvent) error
	RecordHit(e *core.HitEvent) error
	RecordComponentDamage(e *core.ComponentEvent) error
	RecordEffect(e *core.EffectEvent) error
	RecordKill(e *core.KillEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the match archive.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// QueueReporter is an optional interface for backends that buffer writes.
type QueueReporter interface {
	GetWriteQueueLengths() model.WriteQueueLengths
	GetLastDBWriteDuration() time.Duration
}

// PerformanceRecorder is an optional interface for backends that keep
// periodic simulation health samples alongside the match.
type PerformanceRecorder interface {
	RecordPerformance(p model.SimPerformance) error
}
