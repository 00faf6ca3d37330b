package delta

// Type distinguishes full snapshots from incremental diffs.
type Type string

const (
	// TypeFull carries the entire player/projectile/round payload.
	TypeFull Type = "full"
	// TypeIncremental carries only fields that changed since the last
	// broadcast. Absence of a field means "unchanged", never "zero".
	TypeIncremental Type = "incremental"
)

// Header prefixes every delta on the wire.
type Header struct {
	DeltaType  Type   `json:"deltaType"`
	Tick       uint64 `json:"tick"`
	ServerTime uint64 `json:"serverTime"`
}

// PlayerDelta reports changed fields for one player. All fields besides ID
// are pointers so the wire encoding distinguishes "unchanged" from a real
// zero value.
type PlayerDelta struct {
	ID              string   `json:"id"`
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	VX              *float64 `json:"vx,omitempty"`
	VY              *float64 `json:"vy,omitempty"`
	Angle           *float64 `json:"angle,omitempty"`
	Health          *int     `json:"health,omitempty"`
	Armor           *int     `json:"armor,omitempty"`
	WeaponCooldown  *float64 `json:"weaponCooldown,omitempty"`
	AbilityCooldown *float64 `json:"abilityCooldown,omitempty"`
	IsAlive         *bool    `json:"isAlive,omitempty"`
}

// ProjectileDelta reports changed fields for one projectile, or its removal.
// A projectile that expired this tick is reported once with Removed set,
// not by silent absence.
type ProjectileDelta struct {
	ID         string   `json:"id"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	VX         *float64 `json:"vx,omitempty"`
	VY         *float64 `json:"vy,omitempty"`
	Angle      *float64 `json:"angle,omitempty"`
	TimeToLive *float64 `json:"timeToLive,omitempty"`
	Type       *string  `json:"type,omitempty"`
	OwnerID    *string  `json:"ownerId,omitempty"`
	Damage     *int     `json:"damage,omitempty"`
	Removed    bool     `json:"removed,omitempty"`
}

// RoundDelta reports changed round fields.
type RoundDelta struct {
	CurrentRound *int           `json:"currentRound,omitempty"`
	TimeLeft     *float64       `json:"timeLeft,omitempty"`
	Status       *string        `json:"status,omitempty"`
	Score        map[string]int `json:"score,omitempty"`
}

// Delta is one broadcast payload.
type Delta struct {
	Header      Header            `json:"header"`
	Players     []PlayerDelta     `json:"players,omitempty"`
	Projectiles []ProjectileDelta `json:"projectiles,omitempty"`
	RoundInfo   *RoundDelta       `json:"roundInfo,omitempty"`
}

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func b(v bool) *bool         { return &v }
func str(v string) *string   { return &v }
