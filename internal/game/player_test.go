package game

import (
	"testing"
	"time"
)

func testPlayer(t *testing.T, classID string) *Player {
	t.Helper()
	p, err := NewPlayer("p1", "p1", classID, 60, 90)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	return p
}

// TestNewPlayerUnknownClass verifies class validation.
func TestNewPlayerUnknownClass(t *testing.T) {
	if _, err := NewPlayer("p1", "p1", "necromancer", 60, 90); err == nil {
		t.Fatal("expected error for unknown class")
	}
}

// TestTakeDamageKillingBlow verifies health clamps at zero and Alive flips.
func TestTakeDamageKillingBlow(t *testing.T) {
	p := testPlayer(t, "mage")
	now := time.Now()
	p.Health = 5

	dealt := p.TakeDamage(100, 1.0, now)
	if dealt != 100 {
		t.Errorf("expected 100 dealt with full penetration, got %d", dealt)
	}
	if p.Health != 0 {
		t.Errorf("expected health 0, got %d", p.Health)
	}
	if p.Alive {
		t.Error("expected player dead")
	}

	// Dead players take no further damage.
	if dealt := p.TakeDamage(50, 0, now); dealt != 0 {
		t.Errorf("dead player took %d damage", dealt)
	}
}

// TestBarrierBuffRaisesEffectiveArmor verifies barrier stacking and expiry.
func TestBarrierBuffRaisesEffectiveArmor(t *testing.T) {
	p := testPlayer(t, "warrior")
	now := time.Now()
	base := p.EffectiveArmor(now)

	p.AddBuff(Buff{Type: BuffBarrier, Magnitude: 50, ExpiresAt: now.Add(4 * time.Second)})
	if got := p.EffectiveArmor(now); got != base+50 {
		t.Errorf("expected effective armor %.0f, got %.0f", base+50, got)
	}

	// Reapplying replaces, never stacks.
	p.AddBuff(Buff{Type: BuffBarrier, Magnitude: 50, ExpiresAt: now.Add(4 * time.Second)})
	if got := p.EffectiveArmor(now); got != base+50 {
		t.Errorf("barrier stacked on reapply: %.0f", got)
	}

	// Past expiry the bonus is gone even before ExpireBuffs runs.
	later := now.Add(5 * time.Second)
	if got := p.EffectiveArmor(later); got != base {
		t.Errorf("expected expired barrier ignored, got %.0f", got)
	}

	p.ExpireBuffs(later)
	if len(p.Buffs) != 0 {
		t.Errorf("expected buffs cleared, got %d", len(p.Buffs))
	}
}

// TestHasteBuffScalesSpeed verifies the haste multiplier.
func TestHasteBuffScalesSpeed(t *testing.T) {
	p := testPlayer(t, "ranger")
	now := time.Now()
	base := p.MoveSpeed(now)

	p.AddBuff(Buff{Type: BuffHaste, Magnitude: 0.4, ExpiresAt: now.Add(3 * time.Second)})
	want := base * 1.4
	if got := p.MoveSpeed(now); got != want {
		t.Errorf("expected speed %.1f with haste, got %.1f", want, got)
	}
}

// TestHealCap verifies healing clamps at max health and dead players stay
// dead.
func TestHealCap(t *testing.T) {
	p := testPlayer(t, "warrior")
	p.Health = p.MaxHealth - 10

	p.Heal(30)
	if p.Health != p.MaxHealth {
		t.Errorf("expected health capped at %d, got %d", p.MaxHealth, p.Health)
	}

	p.Health = 0
	p.Alive = false
	p.Heal(50)
	if p.Health != 0 || p.Alive {
		t.Error("healing must not revive a dead player")
	}
}

// TestResetForRound verifies a full restore between rounds.
func TestResetForRound(t *testing.T) {
	p := testPlayer(t, "rogue")
	now := time.Now()
	p.TakeDamage(40, 0, now)
	p.AttackCooldown = 2
	p.AbilityCooldown = 3
	p.AddBuff(Buff{Type: BuffHaste, Magnitude: 0.4, ExpiresAt: now.Add(time.Minute)})

	spawn := Vec2{X: 120, Y: 360}
	p.ResetForRound(spawn)

	if p.X != spawn.X || p.Y != spawn.Y {
		t.Errorf("expected spawn position, got (%.0f, %.0f)", p.X, p.Y)
	}
	if p.Health != p.MaxHealth || !p.Alive {
		t.Errorf("expected full health, got %d alive=%v", p.Health, p.Alive)
	}
	if p.AttackCooldown != 0 || p.AbilityCooldown != 0 {
		t.Error("expected cooldowns cleared")
	}
	if len(p.Buffs) != 0 {
		t.Error("expected buffs cleared")
	}
}

// TestCoolDownFloor verifies cooldowns never go negative.
func TestCoolDownFloor(t *testing.T) {
	p := testPlayer(t, "warrior")
	p.AttackCooldown = 0.02
	p.CoolDown(1.0 / 30.0)
	if p.AttackCooldown != 0 {
		t.Errorf("expected cooldown clamped to 0, got %f", p.AttackCooldown)
	}
}
