package label

import (
	"errors"
	"testing"
	"time"
)

func TestParseActivity(t *testing.T) {
	valid := map[string]Activity{
		"practice": ActivityPractice,
		" Record ": ActivityRecord,
		"PROMOTE":  ActivityPromote,
		"rest":     ActivityRest,
	}
	for in, want := range valid {
		got, err := ParseActivity(in)
		if err != nil {
			t.Fatalf("ParseActivity(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseActivity(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "tour", "practise"} {
		if _, err := ParseActivity(in); !errors.Is(err, ErrInvalidActivity) {
			t.Fatalf("ParseActivity(%q): expected ErrInvalidActivity, got %v", in, err)
		}
	}
}

func TestActivityTables(t *testing.T) {
	tests := []struct {
		activity Activity
		duration time.Duration
		energy   int
		xp       int
	}{
		{ActivityPractice, 30 * time.Minute, 10, 3},
		{ActivityRecord, 60 * time.Minute, 15, 5},
		{ActivityPromote, 45 * time.Minute, 20, 4},
		{ActivityRest, 20 * time.Minute, 0, 1},
	}
	for _, tc := range tests {
		if got := tc.activity.Duration(); got != tc.duration {
			t.Fatalf("%s duration = %v, want %v", tc.activity, got, tc.duration)
		}
		if got := tc.activity.EnergyCost(); got != tc.energy {
			t.Fatalf("%s energy cost = %d, want %d", tc.activity, got, tc.energy)
		}
		if got := tc.activity.ManagerXP(); got != tc.xp {
			t.Fatalf("%s manager xp = %d, want %d", tc.activity, got, tc.xp)
		}
	}
}

func TestSigningCost(t *testing.T) {
	// 1000 * (70/10 + 0.5) * (2 * 0.5) = 7500 dollars
	got, err := SigningCost(70, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := int64(7_500) * CentsPerDollar; got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestSigningCostFallback(t *testing.T) {
	tests := []struct {
		talent, level int
	}{
		{-1, 1},
		{101, 1},
		{50, 0},
		{50, 6},
	}
	for _, tc := range tests {
		got, err := SigningCost(tc.talent, tc.level)
		if err == nil {
			t.Fatalf("talent=%d level=%d: expected error", tc.talent, tc.level)
		}
		if got != FallbackSigningCostCents {
			t.Fatalf("talent=%d level=%d: got %d want fallback %d", tc.talent, tc.level, got, FallbackSigningCostCents)
		}
	}
}

func TestMaxVenueTierForLevel(t *testing.T) {
	tests := []struct {
		level, want int
	}{
		{1, 1},
		{10, 1},
		{20, 1},
		{21, 2},
		{40, 2},
		{100, 5},
		{500, 5},
	}
	for _, tc := range tests {
		if got := MaxVenueTierForLevel(tc.level); got != tc.want {
			t.Fatalf("level=%d got=%d want=%d", tc.level, got, tc.want)
		}
	}
}

func TestPerformanceStatusTerminal(t *testing.T) {
	terminal := []PerformanceStatus{StatusCompleted, StatusCancelled, StatusFailed}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Fatalf("expected %s to be terminal", st)
		}
	}
	for _, st := range []PerformanceStatus{StatusScheduled, StatusInProgress} {
		if st.Terminal() {
			t.Fatalf("expected %s to not be terminal", st)
		}
	}
}

func TestMoneyConversions(t *testing.T) {
	if got := DollarsToCents(12.345); got != 1235 {
		t.Fatalf("DollarsToCents(12.345) = %d, want 1235", got)
	}
	if got := CentsToDollars(250); got != 2.5 {
		t.Fatalf("CentsToDollars(250) = %f, want 2.5", got)
	}
}

func TestFiredEarly(t *testing.T) {
	deadline := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		offset time.Duration
		early  bool
	}{
		{-31 * time.Second, true},
		{-30 * time.Second, false},
		{-time.Second, false},
		{0, false},
		{5 * time.Minute, false},
	}
	for _, tc := range cases {
		if got := firedEarly(deadline.Add(tc.offset), deadline); got != tc.early {
			t.Fatalf("firedEarly(deadline%+v) = %v, want %v", tc.offset, got, tc.early)
		}
	}
}
