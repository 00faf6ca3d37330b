package game

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// BuffType identifies a timed buff.
type BuffType string

const (
	// BuffHaste multiplies movement speed by (1 + magnitude).
	BuffHaste BuffType = "haste"
	// BuffBarrier adds magnitude bonus armor.
	BuffBarrier BuffType = "barrier"
)

// Buff is a timed stat modifier.
type Buff struct {
	Type      BuffType  `json:"type"`
	Magnitude float64   `json:"magnitude"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Player is the authoritative simulation state for one participant.
// Mutated only by the owning match's tick; transport handlers never touch
// it directly, they only enqueue intents.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"classId"`

	X      float64 `json:"x"` // position
	Y      float64 `json:"y"`
	VX, VY float64 `json:"-"` // last applied velocity, for reconciliation
	Angle  float64 `json:"angle"`

	Health    int  `json:"health"`
	MaxHealth int  `json:"maxHealth"`
	Armor     int  `json:"armor"`
	Alive     bool `json:"alive"`

	AttackCooldown  float64 `json:"-"` // seconds remaining
	AbilityCooldown float64 `json:"-"`

	Buffs []Buff `json:"buffs,omitempty"`

	class   Class
	lastSeq uint64 // highest movement sequence applied
	limiter *rate.Limiter
}

// NewPlayer creates a simulation player from a class selection.
func NewPlayer(id, name, classID string, intentsPerSec float64, burst int) (*Player, error) {
	class, ok := GetClass(classID)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", classID)
	}
	return &Player{
		ID:        id,
		Name:      name,
		ClassID:   classID,
		Health:    class.MaxHealth,
		MaxHealth: class.MaxHealth,
		Armor:     class.Armor,
		Alive:     true,
		class:     class,
		limiter:   rate.NewLimiter(rate.Limit(intentsPerSec), burst),
	}, nil
}

// Class returns the player's class definition.
func (p *Player) Class() Class {
	return p.class
}

// ResetForRound restores health, position and cooldowns at round start.
func (p *Player) ResetForRound(spawn Vec2) {
	p.X = spawn.X
	p.Y = spawn.Y
	p.VX = 0
	p.VY = 0
	p.Health = p.MaxHealth
	p.Armor = p.class.Armor
	p.Alive = true
	p.AttackCooldown = 0
	p.AbilityCooldown = 0
	p.Buffs = p.Buffs[:0]
	p.lastSeq = 0
}

// EffectiveArmor returns base armor plus any active barrier buff.
func (p *Player) EffectiveArmor(now time.Time) float64 {
	armor := float64(p.Armor)
	for _, bf := range p.Buffs {
		if bf.Type == BuffBarrier && now.Before(bf.ExpiresAt) {
			armor += bf.Magnitude
		}
	}
	return armor
}

// MoveSpeed returns base speed scaled by any active haste buff.
func (p *Player) MoveSpeed(now time.Time) float64 {
	speed := p.class.Speed
	for _, bf := range p.Buffs {
		if bf.Type == BuffHaste && now.Before(bf.ExpiresAt) {
			speed *= 1 + bf.Magnitude
		}
	}
	return speed
}

// TakeDamage applies raw damage through armor reduction and returns the
// final amount dealt. Sets Alive to false on a killing blow.
func (p *Player) TakeDamage(raw int, armorPen float64, now time.Time) int {
	if !p.Alive {
		return 0
	}
	dmg := FinalDamage(raw, p.EffectiveArmor(now), armorPen)
	p.Health -= dmg
	if p.Health <= 0 {
		p.Health = 0
		p.Alive = false
	}
	return dmg
}

// Heal restores health up to the class maximum.
func (p *Player) Heal(amount int) {
	if !p.Alive {
		return
	}
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// AddBuff applies a timed buff, replacing any existing buff of the same
// type so magnitudes never stack.
func (p *Player) AddBuff(buff Buff) {
	for idx := range p.Buffs {
		if p.Buffs[idx].Type == buff.Type {
			p.Buffs[idx] = buff
			return
		}
	}
	p.Buffs = append(p.Buffs, buff)
}

// ExpireBuffs drops buffs whose expiry has passed. In-place filtering to
// avoid allocation each tick.
func (p *Player) ExpireBuffs(now time.Time) {
	n := 0
	for _, bf := range p.Buffs {
		if now.Before(bf.ExpiresAt) {
			p.Buffs[n] = bf
			n++
		}
	}
	p.Buffs = p.Buffs[:n]
}

// CoolDown advances the attack and ability cooldown timers by dt seconds.
func (p *Player) CoolDown(dt float64) {
	p.AttackCooldown -= dt
	if p.AttackCooldown < 0 {
		p.AttackCooldown = 0
	}
	p.AbilityCooldown -= dt
	if p.AbilityCooldown < 0 {
		p.AbilityCooldown = 0
	}
}
