// Package streaming defines the wire protocol spoken by the websocket backend.
package streaming

import (
	"encoding/json"
	"time"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch      = "start_match"
	TypeEndMatch        = "end_match"
	TypeShot            = "shot"
	TypeHit             = "hit"
	TypeComponentDamage = "component_damage"
	TypeEffect          = "effect"
	TypeKill            = "kill"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// Point is a 2D position on the arena.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StartMatchPayload announces a new match.
type StartMatchPayload struct {
	MatchName string          `json:"matchName"`
	MapName   string          `json:"mapName"`
	Tag       string          `json:"tag,omitempty"`
	StartTime time.Time       `json:"startTime"`
	TickRate  int             `json:"tickRate"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// EndMatchPayload closes the match started by the last start_match.
type EndMatchPayload struct {
	EndTime time.Time `json:"endTime"`
}

type ShotPayload struct {
	Time        time.Time `json:"time"`
	Tick        uint64    `json:"tick"`
	ShooterID   uint32    `json:"shooterId"`
	Weapon      string    `json:"weapon"`
	Origin      Point     `json:"origin"`
	Angle       float64   `json:"angle"`
	Projectiles int       `json:"projectiles"`
}

type HitPayload struct {
	Time         time.Time `json:"time"`
	Tick         uint64    `json:"tick"`
	ProjectileID uint64    `json:"projectileId"`
	ShooterID    uint32    `json:"shooterId"`
	VictimID     uint32    `json:"victimId"`
	Weapon       string    `json:"weapon"`
	Impact       Point     `json:"impact"`
	Side         string    `json:"side"`
	Critical     bool      `json:"critical"`
	Multiplier   float64   `json:"multiplier"`
	Damage       float64   `json:"damage"`
	Removed      bool      `json:"removed"`
	Path         []Point   `json:"path,omitempty"`
}

type ComponentDamagePayload struct {
	Time      time.Time `json:"time"`
	Tick      uint64    `json:"tick"`
	EntityID  uint32    `json:"entityId"`
	Component string    `json:"component"`
	Destroyed bool      `json:"destroyed"`
	Health    float64   `json:"health"`
}

// EffectPayload carries an effect for an external system. Data is the
// kind-specific body, the same document stored by the SQL backends.
type EffectPayload struct {
	Time     time.Time       `json:"time"`
	Tick     uint64          `json:"tick"`
	SourceID uint32          `json:"sourceId"`
	Kind     string          `json:"kind"`
	Data     json.RawMessage `json:"data"`
}

type KillPayload struct {
	Time     time.Time `json:"time"`
	Tick     uint64    `json:"tick"`
	VictimID uint32    `json:"victimId"`
	KillerID uint32    `json:"killerId"`
	Weapon   string    `json:"weapon"`
}
