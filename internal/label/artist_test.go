package label

import (
	"errors"
	"testing"
	"time"
)

func testArtist() *Artist {
	return &Artist{
		ID:        1,
		Name:      "Maya Vega",
		Talent:    70,
		Skill:     10,
		Energy:    100,
		MaxEnergy: 100,
		Traits:    map[string]int{"discipline": 50},
	}
}

func TestBeginActivity(t *testing.T) {
	a := testArtist()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := a.BeginActivity(ActivityPractice, now); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !a.Busy() {
		t.Fatalf("expected artist to be busy")
	}
	if a.CurrentAction != ActivityPractice {
		t.Fatalf("current action = %q, want practice", a.CurrentAction)
	}
	if want := now.Add(30 * time.Minute); !a.ActionEndsAt.Equal(want) {
		t.Fatalf("ends at %v, want %v", a.ActionEndsAt, want)
	}
	// Energy is spent on completion, not on start.
	if a.Energy != 100 {
		t.Fatalf("energy = %d, want 100", a.Energy)
	}
}

func TestBeginActivityAlreadyBusy(t *testing.T) {
	a := testArtist()
	now := time.Now()
	if err := a.BeginActivity(ActivityPractice, now); err != nil {
		t.Fatalf("begin: %v", err)
	}
	endsAt := a.ActionEndsAt

	err := a.BeginActivity(ActivityRecord, now.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyBusy) {
		t.Fatalf("expected ErrAlreadyBusy, got %v", err)
	}
	if a.CurrentAction != ActivityPractice || !a.ActionEndsAt.Equal(endsAt) {
		t.Fatalf("rejected begin mutated state: action=%q ends=%v", a.CurrentAction, a.ActionEndsAt)
	}
}

func TestBeginActivityEnergyGate(t *testing.T) {
	a := testArtist()
	a.Energy = 9

	if err := a.BeginActivity(ActivityPractice, time.Now()); !errors.Is(err, ErrInsufficientEnergy) {
		t.Fatalf("expected ErrInsufficientEnergy, got %v", err)
	}
	if a.Busy() {
		t.Fatalf("rejected begin left artist busy")
	}

	a.Energy = 10
	if err := a.BeginActivity(ActivityPractice, time.Now()); err != nil {
		t.Fatalf("begin at exact cost: %v", err)
	}
}

func TestFinishPractice(t *testing.T) {
	// talent 70, discipline 50: 5 + ceil(70/20) + ceil(50/25) = 11 skill.
	a := testArtist()
	if err := a.BeginActivity(ActivityPractice, time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	out, done := a.FinishActivity()
	if !done {
		t.Fatalf("expected completion")
	}
	if out.SkillGain != 11 {
		t.Fatalf("skill gain = %d, want 11", out.SkillGain)
	}
	if a.Skill != 21 {
		t.Fatalf("skill = %d, want 21", a.Skill)
	}
	if a.Energy != 90 {
		t.Fatalf("energy = %d, want 90", a.Energy)
	}
	if out.ManagerXP != 3 {
		t.Fatalf("manager xp = %d, want 3", out.ManagerXP)
	}
	if a.Busy() {
		t.Fatalf("artist should be idle after completion")
	}
}

func TestFinishRecordUsesUpdatedSkill(t *testing.T) {
	// Record adds skill first, then derives popularity from the new value:
	// skill 18 -> 20, popularity gain ceil(20/10) = 2.
	a := testArtist()
	a.Skill = 18
	a.Popularity = 5
	a.Traits = nil
	if err := a.BeginActivity(ActivityRecord, time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	out, done := a.FinishActivity()
	if !done {
		t.Fatalf("expected completion")
	}
	if out.SkillGain != 2 || a.Skill != 20 {
		t.Fatalf("skill gain=%d skill=%d, want 2/20", out.SkillGain, a.Skill)
	}
	if out.PopularityGain != 2 || a.Popularity != 7 {
		t.Fatalf("popularity gain=%d popularity=%d, want 2/7", out.PopularityGain, a.Popularity)
	}
	if a.Energy != 85 {
		t.Fatalf("energy = %d, want 85", a.Energy)
	}
}

func TestFinishRestClampsEnergy(t *testing.T) {
	a := testArtist()
	a.Energy = 90
	a.Traits = map[string]int{"resilience": 40}
	if err := a.BeginActivity(ActivityRest, time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	out, done := a.FinishActivity()
	if !done {
		t.Fatalf("expected completion")
	}
	// 25 + ceil(40/20) = 27 recovered, clamped to max.
	if out.EnergyDelta != 27 {
		t.Fatalf("energy delta = %d, want 27", out.EnergyDelta)
	}
	if a.Energy != a.MaxEnergy {
		t.Fatalf("energy = %d, want clamped to %d", a.Energy, a.MaxEnergy)
	}
}

func TestFinishActivityIdempotent(t *testing.T) {
	a := testArtist()
	if err := a.BeginActivity(ActivityPractice, time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, done := a.FinishActivity(); !done {
		t.Fatalf("first finish should apply")
	}
	skill, energy := a.Skill, a.Energy

	out, done := a.FinishActivity()
	if done {
		t.Fatalf("second finish should be a no-op")
	}
	if out != (ActivityOutcome{}) {
		t.Fatalf("no-op finish returned outcome %+v", out)
	}
	if a.Skill != skill || a.Energy != energy {
		t.Fatalf("no-op finish mutated state")
	}
}

func TestAbortActivity(t *testing.T) {
	a := testArtist()
	if err := a.AbortActivity(); !errors.Is(err, ErrNotBusy) {
		t.Fatalf("expected ErrNotBusy, got %v", err)
	}

	if err := a.BeginActivity(ActivityPromote, time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := a.AbortActivity(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if a.Busy() {
		t.Fatalf("artist still busy after abort")
	}
	// Progress forfeited: no stat or energy change.
	if a.Skill != 10 || a.Popularity != 0 || a.Energy != 100 {
		t.Fatalf("abort applied effects: skill=%d pop=%d energy=%d", a.Skill, a.Popularity, a.Energy)
	}
}

func TestRegenerateEnergy(t *testing.T) {
	a := testArtist()
	a.Energy = 50
	a.Traits = map[string]int{"resilience": 60}

	if !a.RegenerateEnergy() {
		t.Fatalf("expected regeneration to apply")
	}
	// 2 base + ceil(60/25) = 3 bonus.
	if a.Energy != 55 {
		t.Fatalf("energy = %d, want 55", a.Energy)
	}

	a.Energy = a.MaxEnergy
	if a.RegenerateEnergy() {
		t.Fatalf("full artist should not regenerate")
	}

	a.Energy = 50
	if err := a.BeginActivity(ActivityPractice, time.Now()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if a.RegenerateEnergy() {
		t.Fatalf("busy artist should not regenerate")
	}
}

func TestCanPerform(t *testing.T) {
	a := testArtist()
	a.Energy = MinPerformanceEnergy
	if !a.CanPerform() {
		t.Fatalf("expected performable at exactly %d energy", MinPerformanceEnergy)
	}
	a.Energy = MinPerformanceEnergy - 1
	if a.CanPerform() {
		t.Fatalf("expected not performable below threshold")
	}
}
