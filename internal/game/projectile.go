package game

import (
	"fmt"
	"math"
)

// ProjectileRadius is the collision radius shared by all projectile types.
const ProjectileRadius = 8.0

// ProjectileSpec is the static definition of a projectile type.
type ProjectileSpec struct {
	Type     string
	Speed    float64 // units per second
	Range    float64 // maximum travel in units
	Piercing bool    // continues after a player hit
	Homing   bool    // steers toward a target
	TurnRate float64 // radians per second, homing only
	ArmorPen float64
}

// ProjectileSpecs is the catalog of projectile types, keyed by type name.
var ProjectileSpecs = map[string]ProjectileSpec{
	"arrow": {
		Type:  "arrow",
		Speed: 900,
		Range: 700,
	},
	"bolt": {
		Type:     "bolt",
		Speed:    520,
		Range:    600,
		Homing:   true,
		TurnRate: 2.5,
		ArmorPen: 0.3,
	},
	"javelin": {
		Type:     "javelin",
		Speed:    760,
		Range:    550,
		Piercing: true,
	},
}

// Projectile is a live attack entity advanced once per tick by its owning
// match.
type Projectile struct {
	ID      string
	OwnerID string
	Type    string

	X, Y   float64
	VX, VY float64
	Angle  float64

	RemainingRange float64
	Damage         int
	Piercing       bool
	Homing         bool
	TargetID       string // homing only
	TurnRate       float64
	ArmorPen       float64

	CreatedTick uint64

	hit map[string]bool // players already damaged, piercing passes once each
}

// newProjectile spawns a projectile from the owner toward an aim point.
func newProjectile(owner *Player, spec ProjectileSpec, aimX, aimY float64, targetID string, tick, seq uint64) *Projectile {
	dx := aimX - owner.X
	dy := aimY - owner.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	dirX := dx / dist
	dirY := dy / dist

	// Spawn at the owner's edge, not center, so the owner is never hit by
	// its own fresh projectile.
	startX := owner.X + dirX*(PlayerRadius+ProjectileRadius+2)
	startY := owner.Y + dirY*(PlayerRadius+ProjectileRadius+2)

	rng := spec.Range
	if owner.class.AttackRange > 0 && owner.class.AttackRange < rng {
		rng = owner.class.AttackRange
	}

	p := &Projectile{
		ID:             fmt.Sprintf("proj_%d_%d", tick, seq),
		OwnerID:        owner.ID,
		Type:           spec.Type,
		X:              startX,
		Y:              startY,
		VX:             dirX * spec.Speed,
		VY:             dirY * spec.Speed,
		Angle:          math.Atan2(dy, dx),
		RemainingRange: rng,
		Damage:         owner.class.Damage,
		Piercing:       spec.Piercing,
		Homing:         spec.Homing,
		TurnRate:       spec.TurnRate,
		ArmorPen:       spec.ArmorPen,
		CreatedTick:    tick,
	}
	if spec.Homing {
		p.TargetID = targetID
	}
	if spec.Piercing {
		p.hit = make(map[string]bool, 2)
	}
	return p
}

// advance steers (homing) and integrates the projectile for one tick.
// Returns false when remaining range is exhausted.
func (p *Projectile) advance(dt float64, target *Player) bool {
	if p.Homing && target != nil && target.Alive {
		desired := math.Atan2(target.Y-p.Y, target.X-p.X)
		diff := normalizeAngle(desired - p.Angle)
		maxTurn := p.TurnRate * dt
		if diff > maxTurn {
			diff = maxTurn
		}
		if diff < -maxTurn {
			diff = -maxTurn
		}
		p.Angle = normalizeAngle(p.Angle + diff)
		speed := math.Hypot(p.VX, p.VY)
		p.VX = math.Cos(p.Angle) * speed
		p.VY = math.Sin(p.Angle) * speed
	}

	stepX := p.VX * dt
	stepY := p.VY * dt
	p.X += stepX
	p.Y += stepY
	p.RemainingRange -= math.Hypot(stepX, stepY)

	return p.RemainingRange > 0
}

// checkHit tests collision against a player. The owner and already-pierced
// targets are never hit.
func (p *Projectile) checkHit(target *Player) bool {
	if !target.Alive || target.ID == p.OwnerID {
		return false
	}
	if p.hit != nil && p.hit[target.ID] {
		return false
	}
	return math.Hypot(target.X-p.X, target.Y-p.Y) < ProjectileRadius+PlayerRadius
}

// markHit records a pierced target so it cannot be damaged twice.
func (p *Projectile) markHit(targetID string) {
	if p.hit != nil {
		p.hit[targetID] = true
	}
}
