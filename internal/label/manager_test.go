package label

import (
	"errors"
	"testing"
)

func TestGainXPSingleLevel(t *testing.T) {
	m := &Manager{Level: 1, XP: 900}
	gained, err := m.GainXP(150)
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	if gained != 1 || m.Level != 2 {
		t.Fatalf("gained=%d level=%d, want 1/2", gained, m.Level)
	}
	if m.XP != 1050 {
		t.Fatalf("xp = %d, want 1050", m.XP)
	}
	if m.SkillPoints != skillPointsPerLevel {
		t.Fatalf("skill points = %d, want %d", m.SkillPoints, skillPointsPerLevel)
	}
}

func TestGainXPCrossesMultipleThresholds(t *testing.T) {
	m := &Manager{Level: 1}
	gained, err := m.GainXP(3_000)
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	// 3000 XP clears both the level 2 (1000) and level 3 (3000) thresholds.
	if gained != 2 || m.Level != 3 {
		t.Fatalf("gained=%d level=%d, want 2/3", gained, m.Level)
	}
	if m.SkillPoints != 2*skillPointsPerLevel {
		t.Fatalf("skill points = %d, want %d", m.SkillPoints, 2*skillPointsPerLevel)
	}
}

func TestGainXPCapsAtMaxLevel(t *testing.T) {
	m := &Manager{Level: MaxManagerLevel, XP: 300_000}
	gained, err := m.GainXP(1_000_000)
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	if gained != 0 || m.Level != MaxManagerLevel {
		t.Fatalf("gained=%d level=%d, want 0/%d", gained, m.Level, MaxManagerLevel)
	}
	// XP still accumulates past the cap.
	if m.XP != 1_300_000 {
		t.Fatalf("xp = %d, want 1300000", m.XP)
	}
}

func TestGainXPRejectsNonPositive(t *testing.T) {
	m := &Manager{Level: 1, XP: 500}
	for _, amount := range []int{0, -10} {
		if _, err := m.GainXP(amount); err == nil {
			t.Fatalf("GainXP(%d): expected error", amount)
		}
	}
	if m.XP != 500 || m.Level != 1 {
		t.Fatalf("rejected gain mutated state: xp=%d level=%d", m.XP, m.Level)
	}
}

func TestXPProgress(t *testing.T) {
	m := &Manager{Level: 2, XP: 2_000}
	next, ok := m.XPForNextLevel()
	if !ok || next != 3_000 {
		t.Fatalf("next = %d ok=%v, want 3000/true", next, ok)
	}
	// Level 2 spans 1000..3000; 2000 XP is halfway.
	if pct := m.XPProgressPercent(); pct != 50 {
		t.Fatalf("progress = %d, want 50", pct)
	}

	m = &Manager{Level: MaxManagerLevel, XP: 300_000}
	if _, ok := m.XPForNextLevel(); ok {
		t.Fatalf("expected no next level at cap")
	}
	if pct := m.XPProgressPercent(); pct != 100 {
		t.Fatalf("progress at cap = %d, want 100", pct)
	}
}

func TestCanSign(t *testing.T) {
	artist := &Artist{RequiredLevel: 2, SigningCostCents: 5_000 * CentsPerDollar}
	m := &Manager{Level: 2, BudgetCents: 10_000 * CentsPerDollar}

	if err := m.CanSign(artist); err != nil {
		t.Fatalf("expected signable: %v", err)
	}

	poor := &Manager{Level: 2, BudgetCents: 4_999 * CentsPerDollar}
	if err := poor.CanSign(artist); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	junior := &Manager{Level: 1, BudgetCents: 10_000 * CentsPerDollar}
	if err := junior.CanSign(artist); !errors.Is(err, ErrLevelTooLow) {
		t.Fatalf("expected ErrLevelTooLow, got %v", err)
	}

	taken := &Artist{ManagerUserID: "someone-else", RequiredLevel: 1}
	if err := m.CanSign(taken); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned, got %v", err)
	}
}

func TestSigningXP(t *testing.T) {
	a := &Artist{RequiredLevel: 2, Talent: 70}
	if got := SigningXP(a); got != 27 {
		t.Fatalf("signing xp = %d, want 27", got)
	}
}
