package label

import "math"

// Venue is a read-mostly performance location. All the pricing and
// attendance math lives here as pure methods so it can be exercised without
// touching storage.
type Venue struct {
	ID               int64
	PublicID         string
	SeasonID         int64
	Name             string
	Genre            string
	Capacity         int
	BookingCostCents int64
	Prestige         int // 1-10, scales artist gains
	Tier             int // 1-5, gates eligibility by manager level
}

// RevenueEstimate is the expectation-value preview shown before booking or
// completing a performance. It deliberately omits the performance-night and
// fatigue randomness applied at completion.
type RevenueEstimate struct {
	Attendance        int   `json:"attendance"`
	GrossRevenueCents int64 `json:"gross_revenue_cents"`
	VenueCutCents     int64 `json:"venue_cut_cents"`
	ExpensesCents     int64 `json:"expenses_cents"`
	MerchRevenueCents int64 `json:"merch_revenue_cents"`
	NetRevenueCents   int64 `json:"net_revenue_cents"`
}

func (v *Venue) AvailableForLevel(level int) bool {
	return v.Tier <= MaxVenueTierForLevel(level)
}

// MinimumTicketPrice is the floor a booking will clamp the ticket price up
// to: ceil(booking_cost / (capacity * 0.5)) in whole dollars.
func (v *Venue) MinimumTicketPriceCents() int64 {
	if v.Capacity <= 0 {
		return 0
	}
	dollars := math.Ceil(CentsToDollars(v.BookingCostCents) / (float64(v.Capacity) * 0.5))
	return int64(dollars) * CentsPerDollar
}

// SuggestedTicketPrice is the price point past which attendance starts to
// fall off, scaled by artist popularity and venue tier.
func (v *Venue) SuggestedTicketPriceCents(popularity int) int64 {
	if popularity < 1 {
		popularity = 1
	}
	base := CentsToDollars(v.MinimumTicketPriceCents())
	popularityFactor := float64(popularity) / 100.0
	tierFactor := float64(v.Tier) * 0.5
	return int64(math.Ceil(base*(1+popularityFactor+tierFactor))) * CentsPerDollar
}

// EstimateAttendance predicts the draw for a given artist popularity and
// ticket price. Base draw is 30% of capacity plus up to 50% more from
// popularity; pricing above the suggested price bleeds attendance away, to
// a floor of 10% of that base.
func (v *Venue) EstimateAttendance(popularity int, ticketPriceCents int64) int {
	basePercentage := 0.3 + float64(popularity)/100.0*0.5

	suggested := v.SuggestedTicketPriceCents(popularity)
	priceFactor := 1.0
	if ticketPriceCents > suggested && suggested > 0 {
		over := float64(ticketPriceCents-suggested) / float64(suggested) * 0.5
		priceFactor = 1.0 - math.Min(over, 0.9)
	}

	attendance := int(math.Round(float64(v.Capacity) * basePercentage * priceFactor))
	if attendance > v.Capacity {
		attendance = v.Capacity
	}
	if attendance < 0 {
		attendance = 0
	}
	return attendance
}

// EstimateRevenue runs the pre-commit preview. Its formula set predates the
// realized completion math (flat 20% venue cut, popularity-scaled merch)
// and is kept distinct on purpose: the preview is an expectation value, the
// completion a realized draw.
func (v *Venue) EstimateRevenue(popularity int, ticketPriceCents int64) RevenueEstimate {
	attendance := v.EstimateAttendance(popularity, ticketPriceCents)

	gross := int64(attendance) * ticketPriceCents
	venueCut := int64(math.Round(float64(gross) * 0.2))
	expenses := v.BookingCostCents + int64(attendance)*2*CentsPerDollar
	merch := int64(math.Round(float64(attendance) * 5 * float64(popularity) / 100.0 * float64(CentsPerDollar)))

	return RevenueEstimate{
		Attendance:        attendance,
		GrossRevenueCents: gross,
		VenueCutCents:     venueCut,
		ExpensesCents:     expenses,
		MerchRevenueCents: merch,
		NetRevenueCents:   gross - venueCut - expenses + merch,
	}
}
