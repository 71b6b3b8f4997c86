package label

import "fmt"

// levelXPRequirements maps level -> cumulative XP needed to reach it.
// Index 0 is unused; levels run 1..MaxManagerLevel.
var levelXPRequirements = [MaxManagerLevel + 1]int{
	0,
	0,       // level 1
	1_000,   // level 2
	3_000,   // level 3
	7_000,   // level 4
	15_000,  // level 5
	30_000,  // level 6
	60_000,  // level 7
	100_000, // level 8
	175_000, // level 9
	300_000, // level 10
}

const skillPointsPerLevel = 3

// Manager owns artists, a budget, and a transaction ledger. Level is a
// saturating, monotonic function of cumulative XP; it never decreases.
type Manager struct {
	UserID     string
	Email      string
	Username   string
	InviteCode string

	BudgetCents int64
	Level       int
	XP          int
	SkillPoints int
}

func (m *Manager) CanAfford(amountCents int64) bool {
	return m.BudgetCents >= amountCents
}

// GainXP adds experience and walks the level table. The walk loops so a
// single large award can cross several thresholds at once, granting skill
// points per level gained. Returns how many levels were gained.
func (m *Manager) GainXP(amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("xp amount must be positive, got %d", amount)
	}
	m.XP += amount
	gained := 0
	for m.Level < MaxManagerLevel && m.XP >= levelXPRequirements[m.Level+1] {
		m.Level++
		m.SkillPoints += skillPointsPerLevel
		gained++
	}
	return gained, nil
}

// XPForNextLevel returns the cumulative XP needed for the next level, or
// false at the cap.
func (m *Manager) XPForNextLevel() (int, bool) {
	if m.Level >= MaxManagerLevel {
		return 0, false
	}
	return levelXPRequirements[m.Level+1], true
}

// XPProgressPercent is how far the manager is through the current level,
// 0-100. Managers at the cap report 100.
func (m *Manager) XPProgressPercent() int {
	next, ok := m.XPForNextLevel()
	if !ok {
		return 100
	}
	current := levelXPRequirements[m.Level]
	needed := next - current
	if needed <= 0 {
		return 100
	}
	pct := (m.XP - current) * 100 / needed
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// CanSign checks signing eligibility without side effects: the manager
// must afford the signing cost and meet the artist's required level.
func (m *Manager) CanSign(a *Artist) error {
	if a.Signed() {
		return ErrAlreadySigned
	}
	if !m.CanAfford(a.SigningCostCents) {
		return fmt.Errorf("%w: signing costs %.2f", ErrInsufficientFunds, CentsToDollars(a.SigningCostCents))
	}
	if m.Level < a.RequiredLevel {
		return fmt.Errorf("%w: artist requires level %d", ErrLevelTooLow, a.RequiredLevel)
	}
	return nil
}

// SigningXP is the award for signing an artist.
func SigningXP(a *Artist) int {
	return 10 + a.RequiredLevel*5 + a.Talent/10
}
