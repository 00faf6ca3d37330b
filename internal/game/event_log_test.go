package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestEventLogWritesJSONL verifies emitted events reach the file as one
// JSON object per line after a flush.
func TestEventLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		el.Emit(Event{
			Type:      EventDamageDealt,
			MatchID:   "m1",
			Tick:      uint64(i),
			Timestamp: int64(1000 + i),
			ActorID:   "alice",
			Payload:   DamagePayload{AttackerID: "alice", VictimID: "bob", Damage: 10},
		})
	}

	// Stop flushes the pending batch.
	el.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if ev["type"] != string(EventDamageDealt) {
			t.Errorf("line %d has type %v", lines, ev["type"])
		}
		lines++
	}
	if lines != 5 {
		t.Errorf("expected 5 lines, got %d", lines)
	}

	if got := el.GetTotalCount(); got != 5 {
		t.Errorf("expected total count 5, got %d", got)
	}
}

// TestEventLogEmitAfterStop verifies post-stop emits are dropped silently.
func TestEventLogEmitAfterStop(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(filepath.Join(t.TempDir(), "events.jsonl")); err != nil {
		t.Fatal(err)
	}
	el.Stop()

	el.Emit(Event{Type: EventPlayerDeath, MatchID: "m1"})
	if got := el.GetTotalCount(); got != 0 {
		t.Errorf("expected 0 events after stop, got %d", got)
	}
}

// TestEventLogMatchRateLimit verifies one noisy match cannot crowd out
// other matches in the log.
func TestEventLogMatchRateLimit(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(filepath.Join(t.TempDir(), "events.jsonl")); err != nil {
		t.Fatal(err)
	}
	defer el.Stop()

	// Burst far past the per-match limiter's capacity.
	for i := 0; i < MaxEventsPerMatch*3; i++ {
		el.Emit(Event{Type: EventDamageDealt, MatchID: "noisy"})
	}

	if el.GetDroppedCount() == 0 {
		t.Error("expected drops from the per-match rate limiter")
	}
	if el.GetTotalCount() >= uint64(MaxEventsPerMatch*3) {
		t.Errorf("no events were limited: %d accepted", el.GetTotalCount())
	}
}
