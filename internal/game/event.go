package game

// EventType identifies a domain event emitted by the simulation core.
type EventType string

const (
	EventDamageDealt        EventType = "damage_dealt"
	EventPlayerDeath        EventType = "player_death"
	EventRoundStart         EventType = "round_start"
	EventRoundEnd           EventType = "round_end"
	EventMatchEnd           EventType = "match_end"
	EventIntentRejected     EventType = "intent_rejected"
	EventPlayerDisconnected EventType = "player_temporarily_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
)

// Event is one domain event. Events are consumed by the persistence
// collaborator (replay logging, match summaries) and by observability;
// they are fire-and-forget and never block the tick.
type Event struct {
	Type      EventType `json:"type"`
	MatchID   string    `json:"matchId"`
	Tick      uint64    `json:"tick"`
	Timestamp int64     `json:"timestamp"` // unix milliseconds
	ActorID   string    `json:"actorId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// DamagePayload accompanies EventDamageDealt.
type DamagePayload struct {
	AttackerID   string `json:"attackerId"`
	VictimID     string `json:"victimId"`
	Damage       int    `json:"damage"`
	VictimHealth int    `json:"victimHealth"`
	Source       string `json:"source"` // "melee" or a projectile type
}

// DeathPayload accompanies EventPlayerDeath.
type DeathPayload struct {
	VictimID string `json:"victimId"`
	KillerID string `json:"killerId"`
	Round    int    `json:"round"`
}

// RoundStartPayload accompanies EventRoundStart.
type RoundStartPayload struct {
	Round     int    `json:"round"`
	Countdown bool   `json:"countdown"`
	ArenaID   string `json:"arenaId"`
}

// RoundEndPayload accompanies EventRoundEnd.
type RoundEndPayload struct {
	Result RoundResult    `json:"result"`
	Score  map[string]int `json:"score"`
}

// RejectPayload accompanies EventIntentRejected.
type RejectPayload struct {
	Reason     string     `json:"reason"`
	IntentType IntentType `json:"intentType"`
}

// EventSink consumes domain events.
type EventSink interface {
	Emit(Event)
}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

// Emit delivers the event to every sink in order.
func (s MultiSink) Emit(ev Event) {
	for _, sink := range s {
		sink.Emit(ev)
	}
}

// NopSink discards all events. Used in tests that don't observe events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
