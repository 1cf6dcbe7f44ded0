package combat

import (
	"github.com/TheFortz/combat/internal/rng"
	"github.com/TheFortz/combat/pkg/core"
)

// Critical hits are a flat roll with no tier or level scaling.
const (
	CriticalChance     = 0.10
	CriticalMultiplier = 1.5
)

// SideMultiplier returns the damage multiplier for a hit side.
func SideMultiplier(side core.HitSide) float64 {
	switch side {
	case core.HitSideOn:
		return 1.5
	case core.HitRear:
		return 2.0
	default:
		return 1.0
	}
}

// Calculator rolls hit damage. The critical roll is its only randomness.
type Calculator struct {
	src rng.Source
}

// NewCalculator creates a Calculator drawing critical rolls from src.
func NewCalculator(src rng.Source) *Calculator {
	return &Calculator{src: src}
}

// ResolveDamage applies the side multiplier and a critical roll to base damage.
func (c *Calculator) ResolveDamage(base float64, side core.HitSide) core.DamageResult {
	return ResolveDamageWithCrit(base, side, c.src.Float64() < CriticalChance)
}

// ResolveDamageWithCrit is ResolveDamage with the critical roll decided by the caller.
func ResolveDamageWithCrit(base float64, side core.HitSide, critical bool) core.DamageResult {
	mult := SideMultiplier(side)
	if critical {
		mult *= CriticalMultiplier
	}
	return core.DamageResult{
		Damage:     base * mult,
		Multiplier: mult,
		Side:       side,
		Critical:   critical,
	}
}
