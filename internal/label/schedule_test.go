package label

import (
	"errors"
	"testing"
	"time"
)

func TestCheckScheduleConflictPastStart(t *testing.T) {
	a := testArtist()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, startAt := range []time.Time{now, now.Add(-time.Minute)} {
		err := CheckScheduleConflict(a, nil, ActivityPractice, startAt, now)
		if !errors.Is(err, ErrPastStartTime) {
			t.Fatalf("startAt=%v: expected ErrPastStartTime, got %v", startAt, err)
		}
	}

	if err := CheckScheduleConflict(a, nil, ActivityPractice, now.Add(time.Second), now); err != nil {
		t.Fatalf("future start rejected: %v", err)
	}
}

func TestCheckScheduleConflictWithCurrentAction(t *testing.T) {
	a := testArtist()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := a.BeginActivity(ActivityRecord, now); err != nil {
		t.Fatalf("begin: %v", err)
	}
	// Busy until 13:00.

	err := CheckScheduleConflict(a, nil, ActivityPractice, now.Add(30*time.Minute), now)
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("expected conflict with current action, got %v", err)
	}

	// Starting exactly when the current action ends is fine.
	if err := CheckScheduleConflict(a, nil, ActivityPractice, a.ActionEndsAt, now); err != nil {
		t.Fatalf("back-to-back with current action rejected: %v", err)
	}
}

func TestCheckScheduleConflictWithQueue(t *testing.T) {
	a := testArtist()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := []ScheduledAction{
		{ID: 1, ArtistID: a.ID, Activity: ActivityRecord, StartAt: now.Add(2 * time.Hour)}, // 14:00-15:00
	}

	tests := []struct {
		name     string
		activity Activity
		startAt  time.Time
		wantErr  bool
	}{
		{"overlap head", ActivityPractice, now.Add(105 * time.Minute), true},    // 13:45-14:15
		{"contained", ActivityRest, now.Add(130 * time.Minute), true},           // 14:10-14:30
		{"overlap tail", ActivityPromote, now.Add(170 * time.Minute), true},     // 14:50-15:35
		{"adjacent before", ActivityPractice, now.Add(90 * time.Minute), false}, // 13:30-14:00
		{"adjacent after", ActivityPractice, now.Add(3 * time.Hour), false},     // 15:00-15:30
		{"well clear", ActivityPromote, now.Add(5 * time.Hour), false},
	}
	for _, tc := range tests {
		err := CheckScheduleConflict(a, existing, tc.activity, tc.startAt, now)
		if tc.wantErr && !errors.Is(err, ErrScheduleConflict) {
			t.Fatalf("%s: expected ErrScheduleConflict, got %v", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestWindowsOverlapHalfOpen(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := func(hours int) time.Time { return base.Add(time.Duration(hours) * time.Hour) }

	if !windowsOverlap(h(0), h(2), h(1), h(3)) {
		t.Fatalf("expected overlapping windows to conflict")
	}
	if windowsOverlap(h(0), h(1), h(1), h(2)) {
		t.Fatalf("touching windows should not conflict")
	}
	if windowsOverlap(h(0), h(1), h(2), h(3)) {
		t.Fatalf("disjoint windows should not conflict")
	}
}

func TestScheduledActionWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	sa := ScheduledAction{Activity: ActivityPromote, StartAt: start}
	s, e := sa.Window()
	if !s.Equal(start) || !e.Equal(start.Add(45*time.Minute)) {
		t.Fatalf("window = %v..%v", s, e)
	}
}
