// Package delta implements incremental state synchronization for match
// broadcasts. The simulation hands the synchronizer a full post-tick state;
// the synchronizer diffs it against the last broadcast snapshot and emits
// either a full payload (first tick, resync) or a minimal incremental one.
package delta

// State is a complete post-tick view of a match, the input to diffing.
// Values are plain data so the cached snapshot cannot alias live simulation
// state.
type State struct {
	Tick        uint64
	ServerTime  uint64 // unix milliseconds
	Players     []PlayerState
	Projectiles []ProjectileState
	Round       RoundInfo
}

// PlayerState carries every player field tracked by the synchronizer.
type PlayerState struct {
	ID              string
	X, Y            float64
	VX, VY          float64
	Angle           float64
	Health          int
	Armor           int
	Alive           bool
	WeaponCooldown  float64
	AbilityCooldown float64
}

// ProjectileState carries every projectile field tracked by the synchronizer.
type ProjectileState struct {
	ID         string
	OwnerID    string
	Type       string
	X, Y       float64
	VX, VY     float64
	Angle      float64
	TimeToLive float64 // remaining range in world units
	Damage     int
}

// RoundInfo carries the round fields tracked by the synchronizer.
type RoundInfo struct {
	CurrentRound int
	TimeLeft     float64 // seconds
	Status       string
	Score        map[string]int
}

// Clone deep-copies a state so the snapshot cache never shares memory with
// the caller.
func (s State) Clone() State {
	out := State{
		Tick:       s.Tick,
		ServerTime: s.ServerTime,
		Round: RoundInfo{
			CurrentRound: s.Round.CurrentRound,
			TimeLeft:     s.Round.TimeLeft,
			Status:       s.Round.Status,
		},
	}
	if s.Players != nil {
		out.Players = make([]PlayerState, len(s.Players))
		copy(out.Players, s.Players)
	}
	if s.Projectiles != nil {
		out.Projectiles = make([]ProjectileState, len(s.Projectiles))
		copy(out.Projectiles, s.Projectiles)
	}
	if s.Round.Score != nil {
		out.Round.Score = make(map[string]int, len(s.Round.Score))
		for k, v := range s.Round.Score {
			out.Round.Score[k] = v
		}
	}
	return out
}

func (s State) player(id string) (PlayerState, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

func (s State) projectile(id string) (ProjectileState, bool) {
	for _, p := range s.Projectiles {
		if p.ID == id {
			return p, true
		}
	}
	return ProjectileState{}, false
}
