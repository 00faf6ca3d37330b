package api

import (
	"errors"
	"sync"
	"testing"
	"time"

	"arena-duel/internal/connpolicy"
	"arena-duel/internal/game"
)

// recordingRouter captures forfeit-by-disconnect routing from the hub.
type recordingRouter struct {
	mu           sync.Mutex
	disconnected []string
}

func (r *recordingRouter) MatchForPlayer(string) (*game.Match, error) {
	return nil, errors.New("no live match")
}
func (r *recordingRouter) SubmitIntent(game.Intent) error { return nil }
func (r *recordingRouter) Forfeit(string) error           { return nil }
func (r *recordingRouter) RequestResync(string) error     { return nil }

func (r *recordingRouter) NotifyDisconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, playerID)
}

func (r *recordingRouter) disconnects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.disconnected))
	copy(out, r.disconnected)
	return out
}

// TestSweepGraceExtendsReconnectWindow verifies a silent player is severed
// once the policy timeout lapses, but only forfeits after the reconnect
// window plus the policy grace period.
func TestSweepGraceExtendsReconnectWindow(t *testing.T) {
	coord := connpolicy.NewCoordinator(connpolicy.DefaultConfig())
	now := time.Unix(50000, 0)
	coord.SetClock(func() time.Time { return now })

	router := &recordingRouter{}
	hub := NewHub(router, coord, 30*time.Second)

	coord.RegisterPlayer("alice", "m1")
	coord.UpdateMatchState("m1", "active")

	// 11s of silence against a 10s active timeout: severed, window opens.
	now = now.Add(11 * time.Second)
	hub.sweep(now)
	if got := router.disconnects(); len(got) != 0 {
		t.Fatalf("forfeited at the moment of severing: %v", got)
	}

	// 30s window + 5s grace; 34s after the sever is still pending.
	now = now.Add(34 * time.Second)
	hub.sweep(now)
	if got := router.disconnects(); len(got) != 0 {
		t.Fatalf("forfeited inside the grace-extended window: %v", got)
	}

	now = now.Add(2 * time.Second)
	hub.sweep(now)
	if got := router.disconnects(); len(got) != 1 || got[0] != "alice" {
		t.Errorf("expected alice forfeited after the window, got %v", got)
	}
	if tracked := coord.TrackedPlayers(); len(tracked) != 0 {
		t.Errorf("expired player still tracked: %v", tracked)
	}
}
