package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&ServerInfo{},
	&Match{},
	&Shot{},
	&Hit{},
	&ComponentDamage{},
	&Effect{},
	&Kill{},
	&SimPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo identifies the arena server that wrote the recordings
type ServerInfo struct {
	gorm.Model
	ServerName  string `json:"serverName" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"website" gorm:"size:255"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

// SimPerformance is the model for per-interval simulation health
type SimPerformance struct {
	Time                time.Time         `json:"time" gorm:"index:idx_simperf_time"`
	MatchID             uint              `json:"matchId" gorm:"index:idx_simperf_match_id"`
	Match               Match             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick                uint64            `json:"tick"`
	TickDurationMs      float32           `json:"tickDurationMs"`
	ActiveProjectiles   int               `json:"activeProjectiles"`
	Entities            int               `json:"entities"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}

// WriteQueueLengths is the model for the storage write queue lengths
type WriteQueueLengths struct {
	Shots      int `json:"shots"`
	Hits       int `json:"hits"`
	Components int `json:"components"`
	Effects    int `json:"effects"`
	Kills      int `json:"kills"`
}

// Total sums every queue.
func (w WriteQueueLengths) Total() int {
	return w.Shots + w.Hits + w.Components + w.Effects + w.Kills
}

////////////////////////
// MATCH
////////////////////////

// Match is one recorded arena session
type Match struct {
	gorm.Model
	MatchName string         `json:"matchName" gorm:"size:200"`
	MapName   string         `json:"mapName" gorm:"size:100"`
	StartTime time.Time      `json:"matchStart" gorm:"index:idx_match_start"`
	EndTime   *time.Time     `json:"matchEnd"`
	TickRate  int            `json:"tickRate" gorm:"default:60"`
	Tag       string         `json:"tag" gorm:"size:127"`
	Settings  datatypes.JSON `json:"settings" gorm:"type:jsonb;default:'{}'"` // simulation config at match start

	Shots            []Shot
	Hits             []Hit
	ComponentDamages []ComponentDamage
	Effects          []Effect
	Kills            []Kill
}

func (*Match) TableName() string {
	return "matches"
}

////////////////////////
// EVENT DATA
////////////////////////

// Shot is a successful trigger pull
type Shot struct {
	ID          uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time  `json:"time"`
	MatchID     uint       `json:"matchId" gorm:"index:idx_shot_match_id"`
	Match       Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick        uint64     `json:"tick" gorm:"index:idx_shot_tick"`
	ShooterID   uint32     `json:"shooterId" gorm:"index:idx_shot_shooter_id"`
	Weapon      string     `json:"weapon" gorm:"size:32"`
	Origin      geom.Point `json:"origin"`
	Angle       float64    `json:"angle"` // radians
	Projectiles int        `json:"projectiles"`
}

func (*Shot) TableName() string {
	return "shots"
}

// Hit is a resolved projectile impact
type Hit struct {
	ID           uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time       `json:"time"`
	MatchID      uint            `json:"matchId" gorm:"index:idx_hit_match_id"`
	Match        Match           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint64          `json:"tick" gorm:"index:idx_hit_tick"`
	ProjectileID uint64          `json:"projectileId"`
	ShooterID    uint32          `json:"shooterId" gorm:"index:idx_hit_shooter_id"`
	VictimID     uint32          `json:"victimId" gorm:"index:idx_hit_victim_id"`
	Weapon       string          `json:"weapon" gorm:"size:32"`
	Impact       geom.Point      `json:"impact"`
	Path         geom.LineString `json:"-"` // projectile positions from spawn to impact
	Distance     float64         `json:"distance"`
	Side         string          `json:"side" gorm:"size:8"`
	Critical     bool            `json:"critical"`
	Multiplier   float64         `json:"multiplier"`
	Damage       float64         `json:"damage"`
	Removed      bool            `json:"removed"`
}

func (*Hit) TableName() string {
	return "hits"
}

// ComponentDamage records a component absorbing part of a hit
type ComponentDamage struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	MatchID   uint      `json:"matchId" gorm:"index:idx_component_match_id"`
	Match     Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick      uint64    `json:"tick"`
	EntityID  uint32    `json:"entityId" gorm:"index:idx_component_entity_id"`
	Component string    `json:"component" gorm:"size:16"`
	Destroyed bool      `json:"destroyed"`
	Health    float64   `json:"health"`
}

func (*ComponentDamage) TableName() string {
	return "component_damages"
}

// Effect is a follow-up handed to an external system (splash, status effects)
type Effect struct {
	ID       uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time      `json:"time"`
	MatchID  uint           `json:"matchId" gorm:"index:idx_effect_match_id"`
	Match    Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick     uint64         `json:"tick"`
	SourceID uint32         `json:"sourceId"`
	Kind     string         `json:"kind" gorm:"size:16;index:idx_effect_kind"`
	Payload  datatypes.JSON `json:"payload" gorm:"type:jsonb;default:'{}'"`
}

func (*Effect) TableName() string {
	return "effects"
}

// Kill records an entity's health reaching zero
type Kill struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time"`
	MatchID  uint      `json:"matchId" gorm:"index:idx_kill_match_id"`
	Match    Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick     uint64    `json:"tick"`
	VictimID uint32    `json:"victimId" gorm:"index:idx_kill_victim_id"`
	KillerID uint32    `json:"killerId" gorm:"index:idx_kill_killer_id"`
	Weapon   string    `json:"weapon" gorm:"size:32"`
}

func (*Kill) TableName() string {
	return "kills"
}
