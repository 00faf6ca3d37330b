package game

import "math"

// FinalDamage applies the diminishing-returns armor reduction formula:
//
//	finalDamage = max(1, round(raw × (1 − armor/(armor+100))))
//
// armorPen is the fraction of armor ignored by the attack (partial armor
// penetration). Any positive raw damage deals at least 1.
func FinalDamage(raw int, armor, armorPen float64) int {
	if raw <= 0 {
		return 0
	}
	effective := armor * (1 - armorPen)
	if effective < 0 {
		effective = 0
	}
	reduced := math.Round(float64(raw) * (1 - effective/(effective+100)))
	if reduced < 1 {
		reduced = 1
	}
	return int(reduced)
}

// InMeleeArc tests whether a target point lies inside an attacker's melee
// sweep: within attackRange of the attacker and within arc/2 radians of the
// facing direction. An arc of 0 degenerates to a full circle check.
func InMeleeArc(ax, ay, tx, ty, facing, attackRange, arc float64) bool {
	dx := tx - ax
	dy := ty - ay
	dist := math.Hypot(dx, dy)
	if dist > attackRange {
		return false
	}
	// Minimum distance guards against self-collision.
	if dist < 1.0 {
		return false
	}
	if arc <= 0 || arc >= 2*math.Pi {
		return true
	}
	diff := normalizeAngle(math.Atan2(dy, dx) - facing)
	half := arc / 2
	return diff >= -half && diff <= half
}

// normalizeAngle maps an angle into [-π, π].
func normalizeAngle(angle float64) float64 {
	const twoPi = 2 * math.Pi
	angle = math.Mod(angle, twoPi)
	if angle < 0 {
		angle += twoPi
	}
	if angle > math.Pi {
		angle -= twoPi
	}
	return angle
}
