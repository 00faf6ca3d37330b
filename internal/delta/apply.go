package delta

// Apply folds one delta into a client-side state. Applying a full delta
// followed by every subsequent incremental delta in order reconstructs the
// authoritative state exactly; fields absent from a delta keep their
// last-known value.
func Apply(s *State, d *Delta) {
	if d.Header.DeltaType == TypeFull {
		// A full delta replaces everything it carries; clear entity sets
		// so stale entries cannot survive a resync.
		s.Players = nil
		s.Projectiles = nil
	}

	s.Tick = d.Header.Tick
	s.ServerTime = d.Header.ServerTime

	for _, pd := range d.Players {
		applyPlayer(s, pd)
	}
	for _, pd := range d.Projectiles {
		applyProjectile(s, pd)
	}
	if d.RoundInfo != nil {
		applyRound(&s.Round, d.RoundInfo)
	}
}

func applyPlayer(s *State, pd PlayerDelta) {
	idx := -1
	for j := range s.Players {
		if s.Players[j].ID == pd.ID {
			idx = j
			break
		}
	}
	if idx < 0 {
		s.Players = append(s.Players, PlayerState{ID: pd.ID})
		idx = len(s.Players) - 1
	}
	p := &s.Players[idx]

	if pd.X != nil {
		p.X = *pd.X
	}
	if pd.Y != nil {
		p.Y = *pd.Y
	}
	if pd.VX != nil {
		p.VX = *pd.VX
	}
	if pd.VY != nil {
		p.VY = *pd.VY
	}
	if pd.Angle != nil {
		p.Angle = *pd.Angle
	}
	if pd.Health != nil {
		p.Health = *pd.Health
	}
	if pd.Armor != nil {
		p.Armor = *pd.Armor
	}
	if pd.WeaponCooldown != nil {
		p.WeaponCooldown = *pd.WeaponCooldown
	}
	if pd.AbilityCooldown != nil {
		p.AbilityCooldown = *pd.AbilityCooldown
	}
	if pd.IsAlive != nil {
		p.Alive = *pd.IsAlive
	}
}

func applyProjectile(s *State, pd ProjectileDelta) {
	idx := -1
	for j := range s.Projectiles {
		if s.Projectiles[j].ID == pd.ID {
			idx = j
			break
		}
	}

	if pd.Removed {
		if idx >= 0 {
			s.Projectiles = append(s.Projectiles[:idx], s.Projectiles[idx+1:]...)
		}
		return
	}

	if idx < 0 {
		s.Projectiles = append(s.Projectiles, ProjectileState{ID: pd.ID})
		idx = len(s.Projectiles) - 1
	}
	p := &s.Projectiles[idx]

	if pd.X != nil {
		p.X = *pd.X
	}
	if pd.Y != nil {
		p.Y = *pd.Y
	}
	if pd.VX != nil {
		p.VX = *pd.VX
	}
	if pd.VY != nil {
		p.VY = *pd.VY
	}
	if pd.Angle != nil {
		p.Angle = *pd.Angle
	}
	if pd.TimeToLive != nil {
		p.TimeToLive = *pd.TimeToLive
	}
	if pd.Type != nil {
		p.Type = *pd.Type
	}
	if pd.OwnerID != nil {
		p.OwnerID = *pd.OwnerID
	}
	if pd.Damage != nil {
		p.Damage = *pd.Damage
	}
}

func applyRound(r *RoundInfo, rd *RoundDelta) {
	if rd.CurrentRound != nil {
		r.CurrentRound = *rd.CurrentRound
	}
	if rd.TimeLeft != nil {
		r.TimeLeft = *rd.TimeLeft
	}
	if rd.Status != nil {
		r.Status = *rd.Status
	}
	if rd.Score != nil {
		r.Score = copyScore(rd.Score)
	}
}
