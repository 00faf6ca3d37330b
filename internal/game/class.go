package game

// Class defines the base stats a player inherits from class selection.
// These are server-authoritative and cannot be modified by clients.
type Class struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MaxHealth      int     `json:"maxHealth"`
	Armor          int     `json:"armor"`
	Speed          float64 `json:"speed"` // units per second
	Damage         int     `json:"damage"`
	AttackRange    float64 `json:"attackRange"`
	AttackArc      float64 `json:"attackArc"` // radians, melee sweep width
	AttackCooldown float64 `json:"attackCooldown"` // seconds
	ArmorPen       float64 `json:"armorPen"`       // fraction of armor ignored
	ProjectileType string  `json:"projectileType,omitempty"` // empty = melee
	AbilityID      string  `json:"abilityId"`
}

// Ranged reports whether attacks spawn projectiles instead of resolving
// instantly.
func (c Class) Ranged() bool {
	return c.ProjectileType != ""
}

// Classes is the catalog of playable classes.
// NOTE: AttackRange must exceed two player radii (56) or melee can never
// connect.
var Classes = map[string]Class{
	"warrior": {
		ID:             "warrior",
		Name:           "Warrior",
		MaxHealth:      140,
		Armor:          60,
		Speed:          220,
		Damage:         26,
		AttackRange:    95,
		AttackArc:      2.0943951023931953, // 120 degrees
		AttackCooldown: 0.6,
		AbilityID:      "barrier",
	},
	"ranger": {
		ID:             "ranger",
		Name:           "Ranger",
		MaxHealth:      100,
		Armor:          25,
		Speed:          260,
		Damage:         22,
		AttackRange:    700,
		AttackCooldown: 0.9,
		ProjectileType: "arrow",
		AbilityID:      "haste",
	},
	"mage": {
		ID:             "mage",
		Name:           "Mage",
		MaxHealth:      90,
		Armor:          10,
		Speed:          230,
		Damage:         30,
		AttackRange:    600,
		AttackCooldown: 1.1,
		ArmorPen:       0.3,
		ProjectileType: "bolt",
		AbilityID:      "mend",
	},
	"rogue": {
		ID:             "rogue",
		Name:           "Rogue",
		MaxHealth:      95,
		Armor:          20,
		Speed:          290,
		Damage:         18,
		AttackRange:    80,
		AttackArc:      1.5707963267948966, // 90 degrees
		AttackCooldown: 0.35,
		ArmorPen:       0.5,
		AbilityID:      "dash",
	},
	"lancer": {
		ID:             "lancer",
		Name:           "Lancer",
		MaxHealth:      110,
		Armor:          35,
		Speed:          240,
		Damage:         24,
		AttackRange:    550,
		AttackCooldown: 1.0,
		ProjectileType: "javelin",
		AbilityID:      "dash",
	},
	"warden": {
		ID:             "warden",
		Name:           "Warden",
		MaxHealth:      170,
		Armor:          85,
		Speed:          190,
		Damage:         32,
		AttackRange:    90,
		AttackArc:      3.141592653589793, // 180 degrees
		AttackCooldown: 1.0,
		AbilityID:      "barrier",
	},
}

// GetClass looks up a class by id.
func GetClass(id string) (Class, bool) {
	c, ok := Classes[id]
	return c, ok
}

// AbilityKind discriminates ability resolution.
type AbilityKind int

const (
	// AbilityDash instantly displaces the player along its facing.
	AbilityDash AbilityKind = iota
	// AbilityHeal restores health instantly.
	AbilityHeal
	// AbilityBuff applies a timed buff (haste, barrier).
	AbilityBuff
)

// Ability defines one class ability.
type Ability struct {
	ID        string
	Name      string
	Kind      AbilityKind
	Cooldown  float64 // seconds
	Magnitude float64 // meaning depends on Kind
	Buff      BuffType
	Duration  float64 // buff duration in seconds, 0 for instant
}

// Abilities is the catalog of class abilities.
var Abilities = map[string]Ability{
	"dash": {
		ID:        "dash",
		Name:      "Dash",
		Kind:      AbilityDash,
		Cooldown:  4,
		Magnitude: 140, // displacement in units
	},
	"mend": {
		ID:        "mend",
		Name:      "Mend",
		Kind:      AbilityHeal,
		Cooldown:  9,
		Magnitude: 30,
	},
	"haste": {
		ID:        "haste",
		Name:      "Haste",
		Kind:      AbilityBuff,
		Buff:      BuffHaste,
		Cooldown:  7,
		Magnitude: 0.4, // +40% move speed
		Duration:  3,
	},
	"barrier": {
		ID:        "barrier",
		Name:      "Barrier",
		Kind:      AbilityBuff,
		Buff:      BuffBarrier,
		Cooldown:  8,
		Magnitude: 50, // bonus armor
		Duration:  4,
	},
}

// GetAbility looks up an ability by id.
func GetAbility(id string) (Ability, bool) {
	a, ok := Abilities[id]
	return a, ok
}
