package combat

import (
	"testing"

	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestResolveDamage_FrontNoCrit(t *testing.T) {
	c := NewCalculator(rng.Fixed(0.99))

	res := c.ResolveDamage(10, core.HitFront)

	assert.Equal(t, 10.0, res.Damage)
	assert.Equal(t, 1.0, res.Multiplier)
	assert.False(t, res.Critical)
	assert.Equal(t, core.HitFront, res.Side)
}

func TestResolveDamage_RearCrit(t *testing.T) {
	c := NewCalculator(rng.Fixed(0))

	res := c.ResolveDamage(10, core.HitRear)

	assert.Equal(t, 30.0, res.Damage)
	assert.Equal(t, 3.0, res.Multiplier)
	assert.True(t, res.Critical)
}

func TestResolveDamage_CritThreshold(t *testing.T) {
	assert.True(t, NewCalculator(rng.Fixed(0.0999)).ResolveDamage(1, core.HitFront).Critical)
	assert.False(t, NewCalculator(rng.Fixed(0.1)).ResolveDamage(1, core.HitFront).Critical)
}

func TestResolveDamage_Monotonic(t *testing.T) {
	for _, base := range []float64{1, 10, 37.5, 200} {
		front := ResolveDamageWithCrit(base, core.HitFront, false).Damage
		side := ResolveDamageWithCrit(base, core.HitSideOn, false).Damage
		rear := ResolveDamageWithCrit(base, core.HitRear, false).Damage
		assert.Greater(t, rear, side)
		assert.Greater(t, side, front)
	}
}

func TestResolveDamage_SideCrit(t *testing.T) {
	res := ResolveDamageWithCrit(20, core.HitSideOn, true)
	assert.InDelta(t, 45.0, res.Damage, 1e-9)
	assert.InDelta(t, 2.25, res.Multiplier, 1e-9)
}

func TestResolveDamage_CritRate(t *testing.T) {
	c := NewCalculator(rng.New(1234))
	crits := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if c.ResolveDamage(1, core.HitFront).Critical {
			crits++
		}
	}
	assert.InDelta(t, 0.10, float64(crits)/n, 0.01)
}
