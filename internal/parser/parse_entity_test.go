package parser

import (
	"testing"

	"github.com/TheFortz/combat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpawn(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseSpawn([]string{"7", "100.5", "-20", "1.5708", "150"})
	require.NoError(t, err)
	assert.Equal(t, core.Entity{
		ID:        7,
		Position:  core.Vec2{X: 100.5, Y: -20},
		Heading:   1.5708,
		Health:    150,
		MaxHealth: 150,
		Alive:     true,
	}, got.Entity)
}

func TestParseSpawnErrors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		data []string
	}{
		{"bad id", []string{"x", "0", "0", "0", "100"}},
		{"bad x", []string{"1", "a", "0", "0", "100"}},
		{"bad heading", []string{"1", "0", "0", "NaN", "100"}},
		{"zero health", []string{"1", "0", "0", "0", "0"}},
		{"negative health", []string{"1", "0", "0", "0", "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseSpawn(tt.data)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrArgCount)
		})
	}

	_, err := p.ParseSpawn([]string{"1", "0", "0", "0"})
	assert.ErrorIs(t, err, ErrArgCount)
}

func TestParseMoveAndRespawn(t *testing.T) {
	p := newTestParser()

	m, err := p.ParseMove([]string{"3.00", "10", "20", "-3.1"})
	require.NoError(t, err)
	assert.Equal(t, Move{ID: 3, Position: core.Vec2{X: 10, Y: 20}, Heading: -3.1}, m)

	r, err := p.ParseRespawn([]string{"3", "1", "2", "0"})
	require.NoError(t, err)
	assert.Equal(t, Respawn{ID: 3, Position: core.Vec2{X: 1, Y: 2}}, r)

	_, err = p.ParseRespawn([]string{"3"})
	assert.ErrorIs(t, err, ErrArgCount)
	assert.Contains(t, err.Error(), ":RESPAWN:")
}

func TestParseSingleID(t *testing.T) {
	p := newTestParser()

	id, err := p.ParseRemove([]string{"42"})
	require.NoError(t, err)
	assert.Equal(t, core.EntityID(42), id)

	id, err = p.ParseEntityID([]string{`"9"`})
	require.NoError(t, err)
	assert.Equal(t, core.EntityID(9), id)

	_, err = p.ParseEntityID(nil)
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = p.ParseRemove([]string{"-1"})
	assert.Error(t, err)
}
