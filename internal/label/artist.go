package label

import (
	"fmt"
	"time"
)

// Artist is a performer in the talent pool. An artist with an empty
// ManagerUserID is unsigned and available for signing.
type Artist struct {
	ID            int64
	PublicID      string
	Name          string
	Genre         string
	ManagerUserID string

	Talent        int
	Skill         int
	Popularity    int
	Energy        int
	MaxEnergy     int
	RequiredLevel int

	SigningCostCents int64
	Traits           map[string]int

	// Busy-state triple: CurrentAction is non-empty iff both timestamps
	// are set.
	CurrentAction   Activity
	ActionStartedAt time.Time
	ActionEndsAt    time.Time
}

// ActivityOutcome records what a completed activity did, for callers that
// want to display it and for the manager XP award.
type ActivityOutcome struct {
	Activity       Activity
	SkillGain      int
	PopularityGain int
	EnergyDelta    int
	ManagerXP      int
}

func (a *Artist) Signed() bool {
	return a.ManagerUserID != ""
}

func (a *Artist) Busy() bool {
	return a.CurrentAction != ""
}

// traitBonus is ceil(trait/divisor) when the trait exists, else 0.
func (a *Artist) traitBonus(name string, divisor int) int {
	v, ok := a.Traits[name]
	if !ok || v <= 0 {
		return 0
	}
	return ceilDiv(v, divisor)
}

func (a *Artist) clampEnergy() {
	if a.Energy < 0 {
		a.Energy = 0
	}
	if a.Energy > a.MaxEnergy {
		a.Energy = a.MaxEnergy
	}
}

// BeginActivity moves the artist from idle to busy. It does not apply any
// stat effects; those happen on completion.
func (a *Artist) BeginActivity(activity Activity, now time.Time) error {
	if a.Busy() {
		return ErrAlreadyBusy
	}
	if a.Energy < activity.EnergyCost() {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientEnergy, activity.EnergyCost(), a.Energy)
	}
	a.CurrentAction = activity
	a.ActionStartedAt = now
	a.ActionEndsAt = now.Add(activity.Duration())
	return nil
}

// FinishActivity applies the effect of the current activity and clears the
// busy state. It is idempotent: an already-idle artist reports done=false
// and is left untouched, so a late or duplicate trigger is harmless.
func (a *Artist) FinishActivity() (ActivityOutcome, bool) {
	if !a.Busy() {
		return ActivityOutcome{}, false
	}
	activity := a.CurrentAction
	out := ActivityOutcome{Activity: activity, ManagerXP: activity.ManagerXP()}

	switch activity {
	case ActivityPractice:
		out.SkillGain = 5 + ceilDiv(a.Talent, 20) + a.traitBonus("discipline", 25)
		out.EnergyDelta = -10
	case ActivityRecord:
		out.SkillGain = 2 + a.traitBonus("creativity", 30)
		a.Skill += out.SkillGain
		out.PopularityGain = ceilDiv(a.Skill, 10) + a.traitBonus("creativity", 25)
		a.Popularity += out.PopularityGain
		out.EnergyDelta = -15
	case ActivityPromote:
		out.PopularityGain = 8 + a.traitBonus("charisma", 20)
		out.EnergyDelta = -20
	case ActivityRest:
		out.EnergyDelta = 25 + a.traitBonus("resilience", 20)
	}

	// Record applies its gains above because popularity scales off the
	// updated skill; the other activities apply here.
	if activity != ActivityRecord {
		a.Skill += out.SkillGain
		a.Popularity += out.PopularityGain
	}
	a.Energy += out.EnergyDelta
	a.clampEnergy()

	a.CurrentAction = ""
	a.ActionStartedAt = time.Time{}
	a.ActionEndsAt = time.Time{}
	return out, true
}

// AbortActivity clears the busy state without applying any effect. Progress
// is forfeited.
func (a *Artist) AbortActivity() error {
	if !a.Busy() {
		return ErrNotBusy
	}
	a.CurrentAction = ""
	a.ActionStartedAt = time.Time{}
	a.ActionEndsAt = time.Time{}
	return nil
}

// RegenerateEnergy applies one passive regeneration tick. Busy artists and
// artists at max energy are untouched; returns true when energy changed.
func (a *Artist) RegenerateEnergy() bool {
	if a.Busy() || a.Energy >= a.MaxEnergy {
		return false
	}
	a.Energy += BaseEnergyRegen + a.traitBonus("resilience", 25)
	a.clampEnergy()
	return true
}

// CanPerform reports whether the artist has enough energy to be booked for
// a live performance.
func (a *Artist) CanPerform() bool {
	return a.Energy >= MinPerformanceEnergy
}
