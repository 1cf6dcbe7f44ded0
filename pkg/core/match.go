// pkg/core/match.go
package core

import "time"

// Match is one recorded arena session.
type Match struct {
	ID        uint
	Name      string
	MapName   string
	StartTime time.Time
	TickRate  int
	Tag       string
}

// UploadMetadata carries the form fields sent alongside an exported recording.
type UploadMetadata struct {
	MatchName     string
	MapName       string
	MatchDuration float64
	Tag           string
}
