package game

// IntentType identifies a client action request.
type IntentType string

const (
	// IntentMove requests movement along a direction vector.
	IntentMove IntentType = "move"
	// IntentAttack requests an attack toward an aim point.
	IntentAttack IntentType = "attack"
	// IntentUseAbility requests activation of the class ability.
	IntentUseAbility IntentType = "use_ability"
)

// Intent is one client-submitted action for one tick. Transport handlers
// enqueue intents; the owning match drains and applies them at the start of
// its next tick.
type Intent struct {
	PlayerID string     `json:"playerId"`
	Type     IntentType `json:"type"`

	// Movement payload: direction vector (normalized server-side) and
	// facing angle.
	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	Angle float64 `json:"angle,omitempty"`

	// Attack payload: aim point in arena space.
	TargetX float64 `json:"targetX,omitempty"`
	TargetY float64 `json:"targetY,omitempty"`

	// Ability payload.
	AbilityID string `json:"abilityId,omitempty"`

	// ClientTimestamp is unix milliseconds at submission; intents older
	// than the stale window are discarded.
	ClientTimestamp int64 `json:"clientTimestamp"`

	// SequenceID increases monotonically per player for movement intents;
	// used for client-side reconciliation and replay suppression.
	SequenceID uint64 `json:"sequenceId,omitempty"`
}

// Intent rejection reasons, surfaced to the sender and counted as metrics.
const (
	RejectUnknownPlayer  = "unknown_player"
	RejectStale          = "stale_timestamp"
	RejectRateLimited    = "rate_limited"
	RejectDead           = "player_dead"
	RejectRoundInactive  = "round_inactive"
	RejectUnknownAbility = "unknown_ability"
	RejectOnCooldown     = "on_cooldown"
	RejectOutOfSequence  = "out_of_sequence"
	RejectMalformed      = "malformed"
)
