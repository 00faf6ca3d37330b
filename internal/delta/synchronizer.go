package delta

import "math"

// Quantum is the grid continuous fields are snapped to before diffing.
// Sub-quantum floating point jitter must not generate spurious diffs.
const Quantum = 0.1

// Synchronizer owns the last-broadcast snapshot for one match and produces
// the next delta. It is match-scoped and only touched by the tick that owns
// the match, so it needs no internal locking.
type Synchronizer struct {
	last     *State
	fullNext bool
}

// NewSynchronizer creates a synchronizer with an empty snapshot cache.
// The first Generate call always emits a full delta.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Reset forces the next Generate call to emit a full snapshot. Used when a
// client explicitly requests a resync.
func (s *Synchronizer) Reset() {
	s.fullNext = true
}

// Generate diffs the current state against the cached snapshot and returns
// the minimal payload. The cache is then replaced with the full quantized
// current state (never the delta itself), so every future diff runs against
// exactly what clients hold.
func (s *Synchronizer) Generate(current State) *Delta {
	q := quantizeState(current)

	if s.last == nil || s.fullNext {
		s.fullNext = false
		cached := q.Clone()
		s.last = &cached
		return fullDelta(q)
	}

	d := &Delta{
		Header: Header{
			DeltaType:  TypeIncremental,
			Tick:       q.Tick,
			ServerTime: q.ServerTime,
		},
	}

	for _, p := range q.Players {
		prev, ok := s.last.player(p.ID)
		if !ok {
			d.Players = append(d.Players, fullPlayerDelta(p))
			continue
		}
		if pd, changed := diffPlayer(prev, p); changed {
			d.Players = append(d.Players, pd)
		}
	}

	for _, pr := range q.Projectiles {
		prev, ok := s.last.projectile(pr.ID)
		if !ok {
			d.Projectiles = append(d.Projectiles, fullProjectileDelta(pr))
			continue
		}
		if pd, changed := diffProjectile(prev, pr); changed {
			d.Projectiles = append(d.Projectiles, pd)
		}
	}

	// Projectiles present in the snapshot but gone now are reported once
	// as removals.
	for _, prev := range s.last.Projectiles {
		if _, ok := q.projectile(prev.ID); !ok {
			d.Projectiles = append(d.Projectiles, ProjectileDelta{ID: prev.ID, Removed: true})
		}
	}

	if rd, changed := diffRound(s.last.Round, q.Round); changed {
		d.RoundInfo = rd
	}

	cached := q.Clone()
	s.last = &cached
	return d
}

// Snapshot returns the cached last-broadcast state, or nil before the first
// Generate call. Exposed for diagnostics only.
func (s *Synchronizer) Snapshot() *State {
	return s.last
}

func fullDelta(q State) *Delta {
	d := &Delta{
		Header: Header{
			DeltaType:  TypeFull,
			Tick:       q.Tick,
			ServerTime: q.ServerTime,
		},
	}
	for _, p := range q.Players {
		d.Players = append(d.Players, fullPlayerDelta(p))
	}
	for _, pr := range q.Projectiles {
		d.Projectiles = append(d.Projectiles, fullProjectileDelta(pr))
	}
	status := q.Round.Status
	d.RoundInfo = &RoundDelta{
		CurrentRound: i(q.Round.CurrentRound),
		TimeLeft:     f64(q.Round.TimeLeft),
		Status:       &status,
		Score:        copyScore(q.Round.Score),
	}
	return d
}

func fullPlayerDelta(p PlayerState) PlayerDelta {
	return PlayerDelta{
		ID:              p.ID,
		X:               f64(p.X),
		Y:               f64(p.Y),
		VX:              f64(p.VX),
		VY:              f64(p.VY),
		Angle:           f64(p.Angle),
		Health:          i(p.Health),
		Armor:           i(p.Armor),
		WeaponCooldown:  f64(p.WeaponCooldown),
		AbilityCooldown: f64(p.AbilityCooldown),
		IsAlive:         b(p.Alive),
	}
}

func fullProjectileDelta(p ProjectileState) ProjectileDelta {
	return ProjectileDelta{
		ID:         p.ID,
		X:          f64(p.X),
		Y:          f64(p.Y),
		VX:         f64(p.VX),
		VY:         f64(p.VY),
		Angle:      f64(p.Angle),
		TimeToLive: f64(p.TimeToLive),
		Type:       str(p.Type),
		OwnerID:    str(p.OwnerID),
		Damage:     i(p.Damage),
	}
}

func diffPlayer(prev, cur PlayerState) (PlayerDelta, bool) {
	pd := PlayerDelta{ID: cur.ID}
	changed := false

	if cur.X != prev.X {
		pd.X = f64(cur.X)
		changed = true
	}
	if cur.Y != prev.Y {
		pd.Y = f64(cur.Y)
		changed = true
	}
	if cur.VX != prev.VX {
		pd.VX = f64(cur.VX)
		changed = true
	}
	if cur.VY != prev.VY {
		pd.VY = f64(cur.VY)
		changed = true
	}
	if cur.Angle != prev.Angle {
		pd.Angle = f64(cur.Angle)
		changed = true
	}
	if cur.Health != prev.Health {
		pd.Health = i(cur.Health)
		changed = true
	}
	if cur.Armor != prev.Armor {
		pd.Armor = i(cur.Armor)
		changed = true
	}
	if cur.WeaponCooldown != prev.WeaponCooldown {
		pd.WeaponCooldown = f64(cur.WeaponCooldown)
		changed = true
	}
	if cur.AbilityCooldown != prev.AbilityCooldown {
		pd.AbilityCooldown = f64(cur.AbilityCooldown)
		changed = true
	}
	if cur.Alive != prev.Alive {
		pd.IsAlive = b(cur.Alive)
		changed = true
	}

	return pd, changed
}

func diffProjectile(prev, cur ProjectileState) (ProjectileDelta, bool) {
	pd := ProjectileDelta{ID: cur.ID}
	changed := false

	if cur.X != prev.X {
		pd.X = f64(cur.X)
		changed = true
	}
	if cur.Y != prev.Y {
		pd.Y = f64(cur.Y)
		changed = true
	}
	if cur.VX != prev.VX {
		pd.VX = f64(cur.VX)
		changed = true
	}
	if cur.VY != prev.VY {
		pd.VY = f64(cur.VY)
		changed = true
	}
	if cur.Angle != prev.Angle {
		pd.Angle = f64(cur.Angle)
		changed = true
	}
	if cur.TimeToLive != prev.TimeToLive {
		pd.TimeToLive = f64(cur.TimeToLive)
		changed = true
	}
	if cur.Type != prev.Type {
		pd.Type = str(cur.Type)
		changed = true
	}
	if cur.OwnerID != prev.OwnerID {
		pd.OwnerID = str(cur.OwnerID)
		changed = true
	}
	if cur.Damage != prev.Damage {
		pd.Damage = i(cur.Damage)
		changed = true
	}

	return pd, changed
}

func diffRound(prev, cur RoundInfo) (*RoundDelta, bool) {
	rd := &RoundDelta{}
	changed := false

	if cur.CurrentRound != prev.CurrentRound {
		rd.CurrentRound = i(cur.CurrentRound)
		changed = true
	}
	if cur.TimeLeft != prev.TimeLeft {
		rd.TimeLeft = f64(cur.TimeLeft)
		changed = true
	}
	if cur.Status != prev.Status {
		status := cur.Status
		rd.Status = &status
		changed = true
	}
	if !scoresEqual(prev.Score, cur.Score) {
		rd.Score = copyScore(cur.Score)
		changed = true
	}

	if !changed {
		return nil, false
	}
	return rd, true
}

// quantizeState snaps continuous fields to the quantization grid. The
// quantized state is both compared and cached, so the cache always equals
// exactly what was last sent to clients.
func quantizeState(s State) State {
	out := s.Clone()
	for idx := range out.Players {
		p := &out.Players[idx]
		p.X = quantize(p.X)
		p.Y = quantize(p.Y)
		p.VX = quantize(p.VX)
		p.VY = quantize(p.VY)
		p.Angle = quantize(p.Angle)
		p.WeaponCooldown = quantize(p.WeaponCooldown)
		p.AbilityCooldown = quantize(p.AbilityCooldown)
	}
	for idx := range out.Projectiles {
		p := &out.Projectiles[idx]
		p.X = quantize(p.X)
		p.Y = quantize(p.Y)
		p.VX = quantize(p.VX)
		p.VY = quantize(p.VY)
		p.Angle = quantize(p.Angle)
		p.TimeToLive = quantize(p.TimeToLive)
	}
	out.Round.TimeLeft = quantize(out.Round.TimeLeft)
	return out
}

func quantize(v float64) float64 {
	return math.Round(v/Quantum) * Quantum
}

func scoresEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func copyScore(s map[string]int) map[string]int {
	if s == nil {
		return nil
	}
	out := make(map[string]int, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
