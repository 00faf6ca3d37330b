package game

import (
	"math"
	"testing"
)

// TestFinalDamage verifies the diminishing-returns armor formula and its
// boundary behavior.
func TestFinalDamage(t *testing.T) {
	tests := []struct {
		name     string
		raw      int
		armor    float64
		armorPen float64
		want     int
	}{
		{"100 armor halves damage", 100, 100, 0, 50},
		{"zero armor passes raw through", 10, 0, 0, 10},
		{"heavy armor never reduces below 1", 1, 300, 0, 1},
		{"minimum damage floor", 2, 1000, 0, 1},
		{"moderate armor", 40, 60, 0, 25},
		{"full penetration ignores armor", 100, 100, 1.0, 100},
		{"half penetration", 100, 100, 0.5, 67},
		{"zero raw deals nothing", 0, 50, 0, 0},
		{"negative raw deals nothing", -5, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FinalDamage(tt.raw, tt.armor, tt.armorPen)
			if got != tt.want {
				t.Errorf("FinalDamage(%d, %.0f, %.1f) = %d, want %d",
					tt.raw, tt.armor, tt.armorPen, got, tt.want)
			}
		})
	}
}

// TestFinalDamageMonotonic verifies more armor never increases damage.
func TestFinalDamageMonotonic(t *testing.T) {
	prev := math.MaxInt
	for armor := 0.0; armor <= 500; armor += 25 {
		got := FinalDamage(80, armor, 0)
		if got > prev {
			t.Fatalf("damage increased with armor: %d at armor %.0f (prev %d)", got, armor, prev)
		}
		prev = got
	}
}

// TestInMeleeArc verifies range and arc boundaries of the melee sweep.
func TestInMeleeArc(t *testing.T) {
	const r = 100.0
	arc := math.Pi / 2 // 90 degree sweep

	tests := []struct {
		name   string
		tx, ty float64
		facing float64
		want   bool
	}{
		{"dead ahead in range", 50, 0, 0, true},
		{"beyond range", 150, 0, 0, false},
		{"at edge of range", 100, 0, 0, true},
		{"behind attacker", -50, 0, 0, false},
		{"inside arc boundary", 50, 18, 0, true},
		{"outside arc", 0, 50, 0, false},
		{"facing flipped", -50, 0, math.Pi, true},
		{"too close for a hit", 0.5, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InMeleeArc(0, 0, tt.tx, tt.ty, tt.facing, r, arc)
			if got != tt.want {
				t.Errorf("InMeleeArc(target %.1f,%.1f facing %.2f) = %v, want %v",
					tt.tx, tt.ty, tt.facing, got, tt.want)
			}
		})
	}
}

// TestInMeleeArcFullCircle verifies arc 0 degenerates to a radius check.
func TestInMeleeArcFullCircle(t *testing.T) {
	if !InMeleeArc(0, 0, -50, 0, 0, 100, 0) {
		t.Error("arc 0 should hit targets behind the attacker")
	}
	if InMeleeArc(0, 0, -150, 0, 0, 100, 0) {
		t.Error("arc 0 must still respect range")
	}
}

// TestNormalizeAngle verifies mapping into [-pi, pi].
func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{2 * math.Pi, 0},
	}

	for _, tt := range tests {
		got := normalizeAngle(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("normalizeAngle(%.4f) = %.4f, want %.4f", tt.in, got, tt.want)
		}
	}
}
