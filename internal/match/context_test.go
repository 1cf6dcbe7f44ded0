package match

import (
	"testing"
	"time"

	"github.com/TheFortz/combat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	m := ctx.GetMatch()
	assert.Equal(t, "No match loaded", m.Name)
	assert.Equal(t, "No map loaded", m.MapName)
	assert.False(t, ctx.Active())
}

func TestContext_StartEnd(t *testing.T) {
	ctx := NewContext()
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	ctx.Start(&core.Match{ID: 3, Name: "duel", MapName: "canyon", StartTime: start})
	require.True(t, ctx.Active())
	assert.Equal(t, "duel", ctx.GetMatch().Name)

	m, d, ok := ctx.End(start.Add(90 * time.Second))
	require.True(t, ok)
	assert.Equal(t, uint(3), m.ID)
	assert.Equal(t, 90*time.Second, d)
	assert.False(t, ctx.Active())

	_, _, ok = ctx.End(start.Add(time.Hour))
	assert.False(t, ok, "ending twice is a no-op")
}
