package delta

import (
	"math"
	"testing"
)

func baseState() State {
	return State{
		Tick:       1,
		ServerTime: 1000,
		Players: []PlayerState{
			{ID: "alice", X: 160, Y: 360, Health: 140, Armor: 60, Alive: true},
			{ID: "bob", X: 1120, Y: 360, Health: 100, Armor: 20, Alive: true},
		},
		Round: RoundInfo{
			CurrentRound: 1,
			TimeLeft:     90,
			Status:       "active",
			Score:        map[string]int{"alice": 0, "bob": 0},
		},
	}
}

// TestGenerateFirstCallIsFull verifies the first payload carries
// everything.
func TestGenerateFirstCallIsFull(t *testing.T) {
	s := NewSynchronizer()
	d := s.Generate(baseState())

	if d.Header.DeltaType != TypeFull {
		t.Fatalf("expected full, got %s", d.Header.DeltaType)
	}
	if len(d.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(d.Players))
	}
	for _, p := range d.Players {
		if p.X == nil || p.Y == nil || p.Health == nil || p.IsAlive == nil {
			t.Errorf("full delta has nil fields for %s", p.ID)
		}
	}
	if d.RoundInfo == nil || d.RoundInfo.Status == nil || *d.RoundInfo.Status != "active" {
		t.Error("full delta missing round info")
	}
}

// TestGenerateIncrementalOnlyChangedFields verifies unchanged fields stay
// nil and unchanged entities are omitted entirely.
func TestGenerateIncrementalOnlyChangedFields(t *testing.T) {
	s := NewSynchronizer()
	s.Generate(baseState())

	next := baseState()
	next.Tick = 2
	next.Players[0].X = 170
	next.Players[0].Health = 120

	d := s.Generate(next)
	if d.Header.DeltaType != TypeIncremental {
		t.Fatalf("expected incremental, got %s", d.Header.DeltaType)
	}
	if len(d.Players) != 1 {
		t.Fatalf("expected only alice in delta, got %d entries", len(d.Players))
	}

	pd := d.Players[0]
	if pd.ID != "alice" {
		t.Fatalf("expected alice, got %s", pd.ID)
	}
	if pd.X == nil || *pd.X != 170 {
		t.Error("expected X present")
	}
	if pd.Health == nil || *pd.Health != 120 {
		t.Error("expected Health present")
	}
	if pd.Y != nil || pd.Angle != nil || pd.IsAlive != nil {
		t.Error("unchanged fields must be nil")
	}
	if d.RoundInfo != nil {
		t.Error("unchanged round info must be omitted")
	}
}

// TestGenerateNoChangesEmptyDelta verifies an identical state produces an
// empty incremental payload.
func TestGenerateNoChangesEmptyDelta(t *testing.T) {
	s := NewSynchronizer()
	s.Generate(baseState())

	next := baseState()
	next.Tick = 2
	d := s.Generate(next)

	if len(d.Players) != 0 || len(d.Projectiles) != 0 || d.RoundInfo != nil {
		t.Errorf("expected empty delta, got %+v", d)
	}
	if d.Header.Tick != 2 {
		t.Errorf("header must still advance, tick %d", d.Header.Tick)
	}
}

// TestGenerateQuantizationSuppressesJitter verifies sub-quantum movement
// produces no diff.
func TestGenerateQuantizationSuppressesJitter(t *testing.T) {
	s := NewSynchronizer()
	s.Generate(baseState())

	next := baseState()
	next.Tick = 2
	next.Players[0].X += 0.03 // below the 0.1 grid
	next.Players[0].Angle += 0.04

	d := s.Generate(next)
	if len(d.Players) != 0 {
		t.Errorf("sub-quantum jitter produced a diff: %+v", d.Players)
	}

	// Accumulated drift past the grid line must surface.
	next.Tick = 3
	next.Players[0].X += 0.04 // now 160.07, rounds to 160.1
	d = s.Generate(next)
	if len(d.Players) != 1 || d.Players[0].X == nil {
		t.Fatalf("expected X diff after crossing grid line, got %+v", d.Players)
	}
	if math.Abs(*d.Players[0].X-160.1) > 1e-9 {
		t.Errorf("expected quantized 160.1, got %v", *d.Players[0].X)
	}
}

// TestGenerateProjectileLifecycle verifies appearance, movement and the
// single removal event.
func TestGenerateProjectileLifecycle(t *testing.T) {
	s := NewSynchronizer()
	s.Generate(baseState())

	// Projectile appears: all fields present even in an incremental.
	withProj := baseState()
	withProj.Tick = 2
	withProj.Projectiles = []ProjectileState{
		{ID: "proj_1_1", OwnerID: "alice", Type: "arrow", X: 200, Y: 360, VX: 900, TimeToLive: 700, Damage: 22},
	}
	d := s.Generate(withProj)
	if len(d.Projectiles) != 1 {
		t.Fatalf("expected new projectile in delta, got %d", len(d.Projectiles))
	}
	if d.Projectiles[0].Type == nil || d.Projectiles[0].OwnerID == nil {
		t.Error("new projectile must carry full fields")
	}
	if d.Projectiles[0].Removed {
		t.Error("new projectile marked removed")
	}

	// Projectile moves: positional diff only.
	moved := withProj
	moved.Tick = 3
	moved.Projectiles = []ProjectileState{
		{ID: "proj_1_1", OwnerID: "alice", Type: "arrow", X: 230, Y: 360, VX: 900, TimeToLive: 670, Damage: 22},
	}
	d = s.Generate(moved)
	if len(d.Projectiles) != 1 || d.Projectiles[0].X == nil {
		t.Fatalf("expected movement diff, got %+v", d.Projectiles)
	}
	if d.Projectiles[0].Type != nil {
		t.Error("unchanged type must be nil on movement diff")
	}

	// Projectile vanishes: exactly one removal, then silence.
	gone := baseState()
	gone.Tick = 4
	d = s.Generate(gone)
	if len(d.Projectiles) != 1 || !d.Projectiles[0].Removed || d.Projectiles[0].ID != "proj_1_1" {
		t.Fatalf("expected single removal, got %+v", d.Projectiles)
	}

	gone.Tick = 5
	d = s.Generate(gone)
	if len(d.Projectiles) != 0 {
		t.Errorf("removal reported twice: %+v", d.Projectiles)
	}
}

// TestGenerateResetForcesFull verifies Reset produces a full payload and
// diffing resumes cleanly after it.
func TestGenerateResetForcesFull(t *testing.T) {
	s := NewSynchronizer()
	s.Generate(baseState())

	s.Reset()
	next := baseState()
	next.Tick = 2
	d := s.Generate(next)
	if d.Header.DeltaType != TypeFull {
		t.Fatalf("expected full after reset, got %s", d.Header.DeltaType)
	}

	next.Tick = 3
	d = s.Generate(next)
	if d.Header.DeltaType != TypeIncremental || len(d.Players) != 0 {
		t.Errorf("diffing did not resume after reset: %s %d", d.Header.DeltaType, len(d.Players))
	}
}

// TestGenerateScoreChange verifies round info diffs on score updates.
func TestGenerateScoreChange(t *testing.T) {
	s := NewSynchronizer()
	s.Generate(baseState())

	next := baseState()
	next.Tick = 2
	next.Round.Score = map[string]int{"alice": 1, "bob": 0}
	next.Round.Status = "ending"

	d := s.Generate(next)
	if d.RoundInfo == nil {
		t.Fatal("expected round info diff")
	}
	if d.RoundInfo.Score == nil || d.RoundInfo.Score["alice"] != 1 {
		t.Errorf("expected score diff, got %v", d.RoundInfo.Score)
	}
	if d.RoundInfo.Status == nil || *d.RoundInfo.Status != "ending" {
		t.Error("expected status diff")
	}
	if d.RoundInfo.CurrentRound != nil {
		t.Error("unchanged round number must be nil")
	}
}

// TestApplyRoundTrip verifies a full delta followed by incrementals
// reconstructs the quantized server state exactly.
func TestApplyRoundTrip(t *testing.T) {
	server := NewSynchronizer()
	var client State

	// Full sync.
	Apply(&client, server.Generate(baseState()))

	// A sequence of changes.
	s2 := baseState()
	s2.Tick = 2
	s2.Players[0].X = 175.5
	s2.Players[1].Health = 60
	s2.Projectiles = []ProjectileState{
		{ID: "p1", OwnerID: "bob", Type: "arrow", X: 1000, Y: 360, VX: -900, TimeToLive: 650, Damage: 22},
	}
	Apply(&client, server.Generate(s2))

	s3 := s2
	s3.Tick = 3
	s3.Players[0].Health = 110
	s3.Projectiles = nil
	s3.Round.Score = map[string]int{"alice": 0, "bob": 1}
	Apply(&client, server.Generate(s3))

	cached := server.Snapshot()
	if client.Tick != cached.Tick {
		t.Errorf("tick mismatch: client %d server %d", client.Tick, cached.Tick)
	}
	for idx, want := range cached.Players {
		got := client.Players[idx]
		if got != want {
			t.Errorf("player %s mismatch:\n client %+v\n server %+v", want.ID, got, want)
		}
	}
	if len(client.Projectiles) != 0 {
		t.Errorf("client kept removed projectile: %+v", client.Projectiles)
	}
	if client.Round.Score["bob"] != 1 || client.Round.Status != cached.Round.Status {
		t.Errorf("round state mismatch: %+v vs %+v", client.Round, cached.Round)
	}
}
