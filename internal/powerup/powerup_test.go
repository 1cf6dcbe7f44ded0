package powerup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestGrantAndExpire(t *testing.T) {
	s := NewStore()
	exp := s.Grant(1, Shield, t0)
	assert.Equal(t, t0.Add(12*time.Second), exp)

	assert.Equal(t, []Kind{Shield}, s.Active(1, t0.Add(11*time.Second)))
	assert.Empty(t, s.Active(1, t0.Add(12*time.Second)))
}

func TestModifiers(t *testing.T) {
	s := NewStore()
	assert.Equal(t, None, s.Modifiers(1, t0))

	s.Grant(1, DamageBoost, t0)
	s.Grant(1, RapidFire, t0)
	s.Grant(1, Speed, t0)

	m := s.Modifiers(1, t0.Add(time.Second))
	assert.Equal(t, 1.5, m.DamageScale)
	assert.Equal(t, 0.5, m.FireRateScale)
	assert.Equal(t, 1.0, m.IncomingScale)
	assert.Equal(t, 1.3, m.SpeedScale)

	w := m.Weapon()
	assert.Equal(t, 1.5, w.DamageScale)
	assert.Equal(t, 0.5, w.FireRateScale)

	// rapid fire ends first
	m = s.Modifiers(1, t0.Add(9*time.Second))
	assert.Equal(t, 1.0, m.FireRateScale)
	assert.Equal(t, 1.5, m.DamageScale)
}

func TestGrant_Refreshes(t *testing.T) {
	s := NewStore()
	s.Grant(1, Speed, t0)
	s.Grant(1, Speed, t0.Add(5*time.Second))

	assert.Equal(t, []Kind{Speed}, s.Active(1, t0.Add(14*time.Second)))
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Grant(1, Shield, t0)
	s.Grant(2, Shield, t0)
	s.Clear(1)

	assert.Empty(t, s.Active(1, t0))
	assert.Len(t, s.Active(2, t0), 1)
}

func TestParse(t *testing.T) {
	for _, k := range kinds {
		got, err := Parse(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := Parse(" Shield ")
	require.NoError(t, err)
	assert.Equal(t, Shield, got)

	_, err = Parse("invisibility")
	assert.Error(t, err)
}
