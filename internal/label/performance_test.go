package label

import (
	"testing"
	"time"
)

func TestSettlePerformanceWorkedExample(t *testing.T) {
	// Venue: capacity 200, tier 2, $300 booking, prestige 5.
	// Artist: popularity 40, energy 80/100. Ticket $10, 60 minutes,
	// performance factor pinned at 1.0.
	v := testVenue()
	a := &Artist{Popularity: 40, Energy: 80, MaxEnergy: 100}
	p := &Performance{TicketPriceCents: 1000, DurationMinutes: 60}

	got := SettlePerformance(v, a, p, 1.0)

	// Estimated 88, fatigue factor 0.9 -> round(79.2) = 79.
	if got.Attendance != 79 {
		t.Fatalf("attendance = %d, want 79", got.Attendance)
	}
	if got.GrossRevenueCents != 79_000 {
		t.Fatalf("gross = %d, want 79000", got.GrossRevenueCents)
	}
	// Tier 2 cut is 25% of gross.
	if got.VenueCutCents != 19_750 {
		t.Fatalf("venue cut = %d, want 19750", got.VenueCutCents)
	}
	// Booking fee plus $2 per attendee.
	if got.ExpensesCents != 45_800 {
		t.Fatalf("expenses = %d, want 45800", got.ExpensesCents)
	}
	// 20% of attendees buy $9 of merch at tier 2.
	if got.MerchRevenueCents != 14_220 {
		t.Fatalf("merch = %d, want 14220", got.MerchRevenueCents)
	}
	if got.NetRevenueCents != 27_670 {
		t.Fatalf("net = %d, want 27670", got.NetRevenueCents)
	}
	if got.SkillGain != 5 {
		t.Fatalf("skill gain = %d, want 5", got.SkillGain)
	}
	if got.PopularityGain != 9 {
		t.Fatalf("popularity gain = %d, want 9", got.PopularityGain)
	}
	if got.EnergyCost != 24 {
		t.Fatalf("energy cost = %d, want 24", got.EnergyCost)
	}
}

func TestSettlePerformanceRevenueConservation(t *testing.T) {
	v := testVenue()
	a := &Artist{Popularity: 65, Energy: 100, MaxEnergy: 100}
	p := &Performance{TicketPriceCents: 1500, DurationMinutes: 90}

	for _, factor := range []float64{0.8, 1.0, 1.2} {
		got := SettlePerformance(v, a, p, factor)
		want := got.GrossRevenueCents - got.VenueCutCents - got.ExpensesCents + got.MerchRevenueCents
		if got.NetRevenueCents != want {
			t.Fatalf("factor=%.1f: net %d != gross-cut-expenses+merch %d", factor, got.NetRevenueCents, want)
		}
	}
}

func TestSettlePerformanceAttendanceCappedAtCapacity(t *testing.T) {
	v := &Venue{Capacity: 50, BookingCostCents: 100 * CentsPerDollar, Prestige: 8, Tier: 1}
	a := &Artist{Popularity: 100, Energy: 100, MaxEnergy: 100}
	p := &Performance{TicketPriceCents: 100, DurationMinutes: 60}

	got := SettlePerformance(v, a, p, 1.2)
	if got.Attendance > v.Capacity {
		t.Fatalf("attendance %d exceeds capacity %d", got.Attendance, v.Capacity)
	}
}

func TestSettlePerformanceFatigue(t *testing.T) {
	v := testVenue()
	p := &Performance{TicketPriceCents: 800, DurationMinutes: 60}

	fresh := SettlePerformance(v, &Artist{Popularity: 40, Energy: 100, MaxEnergy: 100}, p, 1.0)
	tired := SettlePerformance(v, &Artist{Popularity: 40, Energy: 20, MaxEnergy: 100}, p, 1.0)

	if tired.Attendance >= fresh.Attendance {
		t.Fatalf("tired attendance %d should fall below fresh %d", tired.Attendance, fresh.Attendance)
	}
}

func TestSettlePerformanceEnergyCostScalesWithDuration(t *testing.T) {
	v := testVenue()
	a := &Artist{Popularity: 40, Energy: 80, MaxEnergy: 100}

	tests := []struct {
		minutes, want int
	}{
		{30, 22},
		{60, 24},
		{120, 28},
	}
	for _, tc := range tests {
		got := SettlePerformance(v, a, &Performance{TicketPriceCents: 1000, DurationMinutes: tc.minutes}, 1.0)
		if got.EnergyCost != tc.want {
			t.Fatalf("minutes=%d energy cost=%d, want %d", tc.minutes, got.EnergyCost, tc.want)
		}
	}
}

func TestRefundEligibleCutoff(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		until    time.Duration
		eligible bool
	}{
		{7*24*time.Hour + time.Second, true},
		{7 * 24 * time.Hour, false},
		{6 * 24 * time.Hour, false},
		{time.Hour, false},
	}
	for _, tc := range cases {
		if got := refundEligible(now.Add(tc.until), now); got != tc.eligible {
			t.Fatalf("refundEligible(+%v) = %v, want %v", tc.until, got, tc.eligible)
		}
	}
}
