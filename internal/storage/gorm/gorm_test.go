package gormstorage

import (
	"errors"
	"testing"
	"time"

	"github.com/TheFortz/combat/internal/database"
	"github.com/TheFortz/combat/internal/geo"
	"github.com/TheFortz/combat/internal/match"
	"github.com/TheFortz/combat/internal/model"
	"github.com/TheFortz/combat/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var start = time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite("")
	require.NoError(t, err)
	return db
}

func newTestBackend(t *testing.T) (*Backend, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	b := New(Dependencies{
		DB:            db,
		DBLogger:      zerolog.Nop(),
		Settings:      map[string]any{"tickRate": 60},
		FlushInterval: time.Hour,
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b, db
}

func count(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestInitRequiresDatabase(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())

	b = New(Dependencies{Open: func() (*gorm.DB, error) { return nil, errors.New("refused") }})
	assert.ErrorContains(t, b.Init(), "refused")
}

func TestInitUsesOpen(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{Open: func() (*gorm.DB, error) { return db, nil }, DBLogger: zerolog.Nop()})
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Same(t, db, b.DB())
	assert.True(t, db.Migrator().HasTable(&model.Hit{}))
}

func TestRecordBeforeMatch(t *testing.T) {
	b, _ := newTestBackend(t)
	assert.ErrorIs(t, b.RecordShot(&core.ShotEvent{}), match.ErrNoMatch)
	assert.ErrorIs(t, b.RecordKill(&core.KillEvent{}), match.ErrNoMatch)
	assert.ErrorIs(t, b.EndMatch(start), match.ErrNoMatch)
}

func TestMatchLifecycle(t *testing.T) {
	b, db := newTestBackend(t)

	m := &core.Match{Name: "Scrim", MapName: "dunes", StartTime: start, TickRate: 60}
	require.NoError(t, b.StartMatch(m))
	require.NotZero(t, m.ID)

	require.NoError(t, b.RecordShot(&core.ShotEvent{Time: start, Tick: 1, ShooterID: 1, Weapon: core.WeaponCannon, Origin: core.Vec2{X: 1, Y: 2}, Projectiles: 1}))
	require.NoError(t, b.RecordHit(&core.HitEvent{
		Time: start, Tick: 9, ProjectileID: 1, ShooterID: 1, VictimID: 2,
		Impact: core.Vec2{X: 100, Y: 0}, Side: core.HitFront, Multiplier: 1, Damage: 20,
		Path: []core.Vec2{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}))
	require.NoError(t, b.RecordComponentDamage(&core.ComponentEvent{Time: start, Tick: 9, EntityID: 2, Component: core.ComponentTurret, Health: 94}))
	require.NoError(t, b.RecordEffect(&core.EffectEvent{Time: start, Tick: 9, SourceID: 1, Effect: core.ExplosionEffect{Radius: 60, Damage: 10}}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Time: start, Tick: 9, VictimID: 2, KillerID: 1}))

	lengths := b.GetWriteQueueLengths()
	assert.Equal(t, 5, lengths.Total())

	require.NoError(t, b.EndMatch(start.Add(time.Minute)))
	assert.Zero(t, b.GetWriteQueueLengths().Total())

	assert.Equal(t, int64(1), count(t, db, &model.Shot{}))
	assert.Equal(t, int64(1), count(t, db, &model.Hit{}))
	assert.Equal(t, int64(1), count(t, db, &model.ComponentDamage{}))
	assert.Equal(t, int64(1), count(t, db, &model.Effect{}))
	assert.Equal(t, int64(1), count(t, db, &model.Kill{}))

	var hit model.Hit
	require.NoError(t, db.First(&hit).Error)
	assert.Equal(t, m.ID, hit.MatchID)
	assert.Equal(t, "FRONT", hit.Side)
	assert.InDelta(t, 100.0, hit.Distance, 1e-9)
	impact, err := geo.Vec(hit.Impact)
	require.NoError(t, err)
	assert.Equal(t, core.Vec2{X: 100, Y: 0}, impact)

	var row model.Match
	require.NoError(t, db.First(&row, m.ID).Error)
	require.NotNil(t, row.EndTime)
	assert.JSONEq(t, `{"tickRate":60}`, string(row.Settings))

	// closed
	assert.ErrorIs(t, b.RecordShot(&core.ShotEvent{}), match.ErrNoMatch)
}

func TestFlushBatches(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, DBLogger: zerolog.Nop(), BatchSize: 3, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{Name: "batch", StartTime: start}))
	for i := 0; i < 10; i++ {
		require.NoError(t, b.RecordShot(&core.ShotEvent{Time: start, Tick: uint64(i), ShooterID: 1}))
	}
	b.Flush()

	assert.Equal(t, int64(10), count(t, db, &model.Shot{}))
	assert.Zero(t, b.GetWriteQueueLengths().Shots)
	assert.Greater(t, b.GetLastDBWriteDuration(), time.Duration(0))
}

func TestFailedWriteRequeues(t *testing.T) {
	b, db := newTestBackend(t)
	require.NoError(t, b.StartMatch(&core.Match{Name: "fail", StartTime: start}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Time: start, VictimID: 2, KillerID: 1}))

	require.NoError(t, db.Migrator().DropTable(&model.Kill{}))
	b.Flush()
	assert.Equal(t, 1, b.GetWriteQueueLengths().Kills)

	require.NoError(t, db.AutoMigrate(&model.Kill{}))
	b.Flush()
	assert.Zero(t, b.GetWriteQueueLengths().Kills)
	assert.Equal(t, int64(1), count(t, db, &model.Kill{}))
}

func TestCloseFlushes(t *testing.T) {
	db := newTestDB(t)
	b := New(Dependencies{DB: db, DBLogger: zerolog.Nop(), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartMatch(&core.Match{Name: "close", StartTime: start}))
	require.NoError(t, b.RecordShot(&core.ShotEvent{Time: start}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, int64(1), count(t, db, &model.Shot{}))
}

func TestStartMatchFlushesPrevious(t *testing.T) {
	b, db := newTestBackend(t)
	first := &core.Match{Name: "one", StartTime: start}
	require.NoError(t, b.StartMatch(first))
	require.NoError(t, b.RecordShot(&core.ShotEvent{Time: start}))

	second := &core.Match{Name: "two", StartTime: start}
	require.NoError(t, b.StartMatch(second))
	assert.NotEqual(t, first.ID, second.ID)

	var shot model.Shot
	require.NoError(t, db.First(&shot).Error)
	assert.Equal(t, first.ID, shot.MatchID)
}

func TestRecordPerformance(t *testing.T) {
	b, db := newTestBackend(t)

	sample := model.SimPerformance{Time: start, Tick: 60, TickDurationMs: 0.4, ActiveProjectiles: 3, Entities: 2}
	assert.ErrorIs(t, b.RecordPerformance(sample), match.ErrNoMatch)

	m := &core.Match{Name: "perf", StartTime: start}
	require.NoError(t, b.StartMatch(m))
	sample.WriteQueueLengths = model.WriteQueueLengths{Shots: 4}
	require.NoError(t, b.RecordPerformance(sample))
	b.Flush()

	var row model.SimPerformance
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, m.ID, row.MatchID)
	assert.Equal(t, uint64(60), row.Tick)
	assert.Equal(t, 4, row.WriteQueueLengths.Shots)
}
