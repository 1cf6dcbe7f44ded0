// Package combat resolves hits: which side of a tank was struck, how much
// damage the strike deals, and which sub-system absorbs part of it.
package combat

import (
	"math"

	"github.com/TheFortz/combat/pkg/core"
)

const (
	frontHalfArc = 45.0
	rearHalfArc  = 135.0
)

// ClassifyHit reports which side of the target an impact landed on.
//
// The bearing from the target centre to the impact point is measured against
// the target heading. impactAngle is the projectile's travel angle; it does not
// influence the result and is accepted so callers can pass a full hit record.
// Every input maps to exactly one side; non-finite input maps to SIDE.
func ClassifyHit(impactAngle, targetHeading, impactX, impactY, targetX, targetY float64) core.HitSide {
	_ = impactAngle
	bearing := math.Atan2(impactY-targetY, impactX-targetX)
	rel := normalizeAngle(bearing - targetHeading)
	return classifyDegrees(rel * 180 / math.Pi)
}

// normalizeAngle maps any angle into (-π, π].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func classifyDegrees(deg float64) core.HitSide {
	switch {
	case deg >= -frontHalfArc && deg <= frontHalfArc:
		return core.HitFront
	case deg > rearHalfArc || deg < -rearHalfArc:
		return core.HitRear
	default:
		return core.HitSideOn
	}
}
