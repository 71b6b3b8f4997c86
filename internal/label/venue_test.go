package label

import "testing"

// testVenue mirrors the worked example: capacity 200, tier 2, $300
// booking, prestige 5.
func testVenue() *Venue {
	return &Venue{
		ID:               1,
		Name:             "The Velvet Room",
		Capacity:         200,
		BookingCostCents: 300 * CentsPerDollar,
		Prestige:         5,
		Tier:             2,
	}
}

func TestMinimumTicketPrice(t *testing.T) {
	v := testVenue()
	// ceil(300 / 100) = 3 dollars.
	if got := v.MinimumTicketPriceCents(); got != 300 {
		t.Fatalf("minimum = %d, want 300", got)
	}

	odd := &Venue{Capacity: 150, BookingCostCents: 500 * CentsPerDollar}
	// ceil(500 / 75) = 7 dollars.
	if got := odd.MinimumTicketPriceCents(); got != 700 {
		t.Fatalf("minimum = %d, want 700", got)
	}

	empty := &Venue{}
	if got := empty.MinimumTicketPriceCents(); got != 0 {
		t.Fatalf("zero-capacity minimum = %d, want 0", got)
	}
}

func TestSuggestedTicketPrice(t *testing.T) {
	v := testVenue()
	// ceil(3 * (1 + 0.4 + 1.0)) = ceil(7.2) = 8 dollars.
	if got := v.SuggestedTicketPriceCents(40); got != 800 {
		t.Fatalf("suggested = %d, want 800", got)
	}
}

func TestEstimateAttendance(t *testing.T) {
	v := testVenue()

	// At the suggested price there is no penalty:
	// round(200 * (0.3 + 0.4*0.5)) = 100.
	if got := v.EstimateAttendance(40, 800); got != 100 {
		t.Fatalf("attendance at suggested = %d, want 100", got)
	}

	// $10 is 25% over suggested: factor 1 - 0.125 = 0.875 -> 88.
	if got := v.EstimateAttendance(40, 1000); got != 88 {
		t.Fatalf("attendance overpriced = %d, want 88", got)
	}

	// Gouging bottoms out at a 0.9 penalty, not zero attendance.
	if got := v.EstimateAttendance(40, 100_000); got != 10 {
		t.Fatalf("attendance gouged = %d, want 10", got)
	}
}

func TestEstimateAttendanceNeverExceedsCapacity(t *testing.T) {
	v := testVenue()
	if got := v.EstimateAttendance(100, 100); got > v.Capacity {
		t.Fatalf("attendance %d exceeds capacity %d", got, v.Capacity)
	}
}

func TestEstimateRevenuePreview(t *testing.T) {
	v := testVenue()
	est := v.EstimateRevenue(40, 1000)

	if est.Attendance != 88 {
		t.Fatalf("attendance = %d, want 88", est.Attendance)
	}
	if est.GrossRevenueCents != 88_000 {
		t.Fatalf("gross = %d, want 88000", est.GrossRevenueCents)
	}
	// The preview uses a flat 20% cut, unlike the tier-scaled realized cut.
	if est.VenueCutCents != 17_600 {
		t.Fatalf("venue cut = %d, want 17600", est.VenueCutCents)
	}
	if est.ExpensesCents != 47_600 {
		t.Fatalf("expenses = %d, want 47600", est.ExpensesCents)
	}
	if est.MerchRevenueCents != 17_600 {
		t.Fatalf("merch = %d, want 17600", est.MerchRevenueCents)
	}
	want := est.GrossRevenueCents - est.VenueCutCents - est.ExpensesCents + est.MerchRevenueCents
	if est.NetRevenueCents != want {
		t.Fatalf("net = %d, want %d", est.NetRevenueCents, want)
	}
}

func TestAvailableForLevel(t *testing.T) {
	v := testVenue() // tier 2
	if v.AvailableForLevel(10) {
		t.Fatalf("tier 2 venue should be gated from a level 10 manager")
	}
	if !v.AvailableForLevel(21) {
		t.Fatalf("tier 2 venue should open at level 21")
	}

	small := &Venue{Tier: 1}
	if !small.AvailableForLevel(1) {
		t.Fatalf("tier 1 venue should always be open")
	}
}
