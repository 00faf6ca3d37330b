package game

import (
	"testing"
)

// TestGetArena verifies the builtin catalog.
func TestGetArena(t *testing.T) {
	for _, id := range []string{"colosseum", "crossfire", "pit"} {
		a, ok := GetArena(id)
		if !ok {
			t.Fatalf("missing builtin arena %q", id)
		}
		if a.ID != id {
			t.Errorf("arena %q has ID %q", id, a.ID)
		}
		if a.Width <= 0 || a.Height <= 0 {
			t.Errorf("arena %q has degenerate dimensions", id)
		}
		for _, spawn := range a.Spawns {
			if !a.Contains(spawn.X, spawn.Y) {
				t.Errorf("arena %q spawn (%.0f, %.0f) outside bounds", id, spawn.X, spawn.Y)
			}
			if a.CircleHitsWall(spawn.X, spawn.Y, PlayerRadius) {
				t.Errorf("arena %q spawn overlaps a wall", id)
			}
		}
	}

	if _, ok := GetArena("void"); ok {
		t.Error("unknown arena id resolved")
	}
}

// TestClampCircle verifies bounds clamping keeps the full circle inside.
func TestClampCircle(t *testing.T) {
	a, _ := GetArena("pit")

	tests := []struct {
		name           string
		x, y           float64
		wantX, wantY   float64
	}{
		{"interior untouched", 480, 480, 480, 480},
		{"left overflow", -50, 480, PlayerRadius, 480},
		{"right overflow", 2000, 480, a.Width - PlayerRadius, 480},
		{"top overflow", 480, -10, 480, PlayerRadius},
		{"bottom overflow", 480, 5000, 480, a.Height - PlayerRadius},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gx, gy := a.ClampCircle(tt.x, tt.y, PlayerRadius)
			if gx != tt.wantX || gy != tt.wantY {
				t.Errorf("ClampCircle(%.0f, %.0f) = (%.0f, %.0f), want (%.0f, %.0f)",
					tt.x, tt.y, gx, gy, tt.wantX, tt.wantY)
			}
		})
	}
}

// TestMoveCircleBlockedByWall verifies a move into a pillar is rejected and
// a blocked diagonal still slides along the free axis.
func TestMoveCircleBlockedByWall(t *testing.T) {
	a, _ := GetArena("colosseum")
	// Colosseum has a horizontal pillar from (560,260) to (720,260).

	// Straight into the wall from below: fully blocked vertically.
	x, y := a.MoveCircle(640, 320, 640, 262, PlayerRadius)
	if a.CircleHitsWall(x, y, PlayerRadius) {
		t.Fatalf("resolved position (%.0f, %.0f) overlaps a wall", x, y)
	}
	if y < 260 {
		t.Errorf("move passed through the wall to y=%.0f", y)
	}

	// Diagonal toward the wall: the x component should survive.
	x, y = a.MoveCircle(640, 320, 660, 262, PlayerRadius)
	if x != 660 {
		t.Errorf("expected slide to x=660, got %.0f", x)
	}
	if y != 320 {
		t.Errorf("expected y held at 320, got %.0f", y)
	}
}

// TestMoveCircleOpenFloor verifies unobstructed movement passes through.
func TestMoveCircleOpenFloor(t *testing.T) {
	a, _ := GetArena("pit")
	x, y := a.MoveCircle(480, 480, 500, 460, PlayerRadius)
	if x != 500 || y != 460 {
		t.Errorf("open move altered: got (%.0f, %.0f)", x, y)
	}
}
