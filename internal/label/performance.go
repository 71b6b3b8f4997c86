package label

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Performance is a booked live show. The derived revenue fields are written
// exactly once, at completion, and never recomputed.
type Performance struct {
	ID       int64
	PublicID string
	ArtistID int64
	VenueID  int64

	ScheduledFor     time.Time
	DurationMinutes  int
	TicketPriceCents int64
	Status           PerformanceStatus

	Attendance        int
	GrossRevenueCents int64
	VenueCutCents     int64
	ExpensesCents     int64
	MerchRevenueCents int64
	NetRevenueCents   int64
	SkillGain         int
	PopularityGain    int
}

// PerformanceSettlement is everything a completed show produced, computed
// in one deterministic pass given the night's random factor.
type PerformanceSettlement struct {
	Attendance        int
	GrossRevenueCents int64
	VenueCutCents     int64
	ExpensesCents     int64
	MerchRevenueCents int64
	NetRevenueCents   int64
	SkillGain         int
	PopularityGain    int
	EnergyCost        int
}

// SettlePerformance runs the realized attendance/revenue/gain math. Pure:
// the performance-night factor is injected, energy fatigue derives from the
// artist's state at call time, and net revenue is exact integer arithmetic
// over the stored components.
func SettlePerformance(v *Venue, a *Artist, p *Performance, perfFactor float64) PerformanceSettlement {
	estimated := v.EstimateAttendance(a.Popularity, p.TicketPriceCents)

	energyRatio := 0.0
	if a.MaxEnergy > 0 {
		energyRatio = float64(a.Energy) / float64(a.MaxEnergy)
	}
	energyFactor := 0.5 + energyRatio*0.5

	attendance := int(math.Round(float64(estimated) * perfFactor * energyFactor))
	if attendance > v.Capacity {
		attendance = v.Capacity
	}
	if attendance < 0 {
		attendance = 0
	}

	gross := int64(attendance) * p.TicketPriceCents
	venueCut := int64(math.Round(float64(gross) * (0.15 + float64(v.Tier)*0.05)))
	expenses := v.BookingCostCents + int64(attendance)*2*CentsPerDollar
	merchPerAttendee := float64(5 + v.Tier*2)
	merch := int64(math.Round(float64(attendance) * 0.2 * merchPerAttendee * float64(CentsPerDollar)))

	attendanceRatio := 0.0
	if v.Capacity > 0 {
		attendanceRatio = float64(attendance) / float64(v.Capacity)
	}
	gainFactor := 0.5 + attendanceRatio*0.5

	return PerformanceSettlement{
		Attendance:        attendance,
		GrossRevenueCents: gross,
		VenueCutCents:     venueCut,
		ExpensesCents:     expenses,
		MerchRevenueCents: merch,
		NetRevenueCents:   gross - venueCut - expenses + merch,
		SkillGain:         int(math.Round(float64(2+v.Prestige) * gainFactor)),
		PopularityGain:    int(math.Round(float64(3+2*v.Prestige) * gainFactor)),
		EnergyCost:        20 + p.DurationMinutes/15,
	}
}

func getPerformance(ctx context.Context, q querier, performanceID int64, forUpdate bool) (*Performance, error) {
	query := `
		SELECT id, public_id, artist_id, venue_id, scheduled_for, duration_minutes,
		       ticket_price_cents, status, attendance, gross_revenue_cents,
		       venue_cut_cents, expenses_cents, merch_revenue_cents,
		       net_revenue_cents, skill_gain, popularity_gain
		FROM label.performances
		WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var p Performance
	var status string
	err := q.QueryRow(ctx, query, performanceID).Scan(
		&p.ID, &p.PublicID, &p.ArtistID, &p.VenueID, &p.ScheduledFor, &p.DurationMinutes,
		&p.TicketPriceCents, &status, &p.Attendance, &p.GrossRevenueCents,
		&p.VenueCutCents, &p.ExpensesCents, &p.MerchRevenueCents,
		&p.NetRevenueCents, &p.SkillGain, &p.PopularityGain,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("performance: %w", ErrNotFound)
		}
		return nil, err
	}
	p.Status = PerformanceStatus(status)
	return &p, nil
}

func savePerformanceState(ctx context.Context, q querier, p *Performance) error {
	_, err := q.Exec(ctx, `
		UPDATE label.performances
		SET status = $1, attendance = $2, gross_revenue_cents = $3, venue_cut_cents = $4,
		    expenses_cents = $5, merch_revenue_cents = $6, net_revenue_cents = $7,
		    skill_gain = $8, popularity_gain = $9, updated_at = now()
		WHERE id = $10
	`, p.Status, p.Attendance, p.GrossRevenueCents, p.VenueCutCents,
		p.ExpensesCents, p.MerchRevenueCents, p.NetRevenueCents,
		p.SkillGain, p.PopularityGain, p.ID)
	return err
}

// BookPerformance validates every precondition, persists the performance,
// and debits the booking fee — all or nothing. A rejected booking leaves
// no row and no charge.
func (s *Service) BookPerformance(ctx context.Context, in BookPerformanceInput) (BookPerformanceResult, error) {
	var out BookPerformanceResult
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 60
	}
	if in.TicketPriceCents < 0 {
		in.TicketPriceCents = 0
	}
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		if in.IdempotencyKey != "" {
			if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "book_performance"); err != nil {
				return err
			}
		}
		artist, err := getArtist(ctx, tx, in.ArtistID, true)
		if err != nil {
			return err
		}
		if !artist.Signed() || artist.ManagerUserID != in.UserID {
			return ErrNotYourArtist
		}
		if !artist.CanPerform() {
			return fmt.Errorf("%w: performing needs at least %d energy", ErrInsufficientEnergy, MinPerformanceEnergy)
		}
		m, err := getManager(ctx, tx, in.UserID, true)
		if err != nil {
			return err
		}
		venue, err := getVenue(ctx, tx, in.VenueID)
		if err != nil {
			return err
		}
		if !venue.AvailableForLevel(m.Level) {
			return fmt.Errorf("%w: venue tier %d needs a higher level", ErrVenueUnavailable, venue.Tier)
		}
		if !m.CanAfford(venue.BookingCostCents) {
			return fmt.Errorf("%w: booking costs %.2f", ErrInsufficientFunds, CentsToDollars(venue.BookingCostCents))
		}
		if in.ScheduledFor.Before(s.now().Add(MinBookingLead)) {
			return ErrLeadTimeTooShort
		}

		ticketPrice := in.TicketPriceCents
		if floor := venue.MinimumTicketPriceCents(); ticketPrice < floor {
			ticketPrice = floor
		}

		var performanceID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO label.performances
			    (public_id, artist_id, venue_id, scheduled_for, duration_minutes, ticket_price_cents, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, uuid.NewString(), artist.ID, venue.ID, in.ScheduledFor, in.DurationMinutes, ticketPrice, StatusScheduled).Scan(&performanceID); err != nil {
			return err
		}

		ok, err := deductFundsTx(ctx, tx, m, venue.BookingCostCents,
			fmt.Sprintf("Booking fee for performance at %s", venue.Name), &artist.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}

		out = BookPerformanceResult{
			PerformanceID:    performanceID,
			TicketPriceCents: ticketPrice,
			BookingFeeCents:  venue.BookingCostCents,
			BudgetCents:      m.BudgetCents,
		}
		s.log.Info("performance booked", "performance_id", performanceID, "artist_id", artist.ID, "venue_id", venue.ID, "scheduled_for", in.ScheduledFor)
		return nil
	})
	return out, err
}

// CompletePerformance settles a due show: attendance with the night's
// random draw and fatigue, revenue split, artist gains, and revenue
// distribution, then the terminal transition. Calling it twice fails the
// second time without re-applying anything.
func (s *Service) CompletePerformance(ctx context.Context, userID string, performanceID int64) (PerformanceOutcome, error) {
	perfFactor := 0.8 + s.nextFloat()*0.4
	return s.completePerformance(ctx, userID, performanceID, perfFactor)
}

func (s *Service) completePerformance(ctx context.Context, userID string, performanceID int64, perfFactor float64) (PerformanceOutcome, error) {
	var out PerformanceOutcome
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		p, err := getPerformance(ctx, tx, performanceID, true)
		if err != nil {
			return err
		}
		if p.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		if p.Status != StatusScheduled && p.Status != StatusInProgress {
			return ErrAlreadyTerminal
		}
		artist, err := getArtist(ctx, tx, p.ArtistID, true)
		if err != nil {
			return err
		}
		if artist.ManagerUserID != userID {
			return ErrNotYourArtist
		}
		if p.ScheduledFor.After(s.now()) {
			return ErrPerformanceNotDue
		}
		venue, err := getVenue(ctx, tx, p.VenueID)
		if err != nil {
			return err
		}

		if p.Status == StatusScheduled {
			p.Status = StatusInProgress
		}

		settlement := SettlePerformance(venue, artist, p, perfFactor)
		p.Attendance = settlement.Attendance
		p.GrossRevenueCents = settlement.GrossRevenueCents
		p.VenueCutCents = settlement.VenueCutCents
		p.ExpensesCents = settlement.ExpensesCents
		p.MerchRevenueCents = settlement.MerchRevenueCents
		p.NetRevenueCents = settlement.NetRevenueCents
		p.SkillGain = settlement.SkillGain
		p.PopularityGain = settlement.PopularityGain

		artist.Skill += settlement.SkillGain
		artist.Popularity += settlement.PopularityGain
		artist.Energy -= settlement.EnergyCost
		artist.clampEnergy()
		if err := saveArtistState(ctx, tx, artist); err != nil {
			return err
		}

		if settlement.NetRevenueCents > 0 {
			m, err := getManager(ctx, tx, userID, true)
			if err != nil {
				return err
			}
			if _, err := addFundsTx(ctx, tx, m, settlement.NetRevenueCents,
				fmt.Sprintf("Revenue from performance at %s (%d attendees)", venue.Name, settlement.Attendance), &artist.ID); err != nil {
				return err
			}
		}

		p.Status = StatusCompleted
		if err := savePerformanceState(ctx, tx, p); err != nil {
			return err
		}

		out = PerformanceOutcome{
			PerformanceID:   p.ID,
			Attendance:      settlement.Attendance,
			NetRevenueCents: settlement.NetRevenueCents,
			SkillGain:       settlement.SkillGain,
			PopularityGain:  settlement.PopularityGain,
		}
		s.log.Info("performance completed", "performance_id", p.ID, "attendance", settlement.Attendance, "net_cents", settlement.NetRevenueCents)
		return nil
	})
	return out, err
}

// refundEligible is the cancellation refund rule: half the booking fee
// comes back only while the show is still more than the cutoff away.
func refundEligible(scheduledFor, now time.Time) bool {
	return scheduledFor.After(now.Add(RefundCutoff))
}

// CancelPerformance cancels a still-scheduled show. Cancelling more than
// seven days out refunds half the booking fee; closer in, nothing.
func (s *Service) CancelPerformance(ctx context.Context, userID string, performanceID int64) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		p, err := getPerformance(ctx, tx, performanceID, true)
		if err != nil {
			return err
		}
		if p.Status != StatusScheduled {
			return ErrAlreadyTerminal
		}
		artist, err := getArtist(ctx, tx, p.ArtistID, false)
		if err != nil {
			return err
		}
		if artist.ManagerUserID != userID {
			return ErrNotYourArtist
		}
		venue, err := getVenue(ctx, tx, p.VenueID)
		if err != nil {
			return err
		}

		if refundEligible(p.ScheduledFor, s.now()) {
			refund := venue.BookingCostCents / 2
			m, err := getManager(ctx, tx, userID, true)
			if err != nil {
				return err
			}
			if _, err := addFundsTx(ctx, tx, m, refund,
				fmt.Sprintf("Partial refund for cancelled performance at %s", venue.Name), &artist.ID); err != nil {
				return err
			}
		}

		p.Status = StatusCancelled
		if err := savePerformanceState(ctx, tx, p); err != nil {
			return err
		}
		s.log.Info("performance cancelled", "performance_id", p.ID)
		return nil
	})
}

// EstimatePerformanceRevenue is the no-side-effect preview for a booked
// show: expectation-value math only, no random draw, nothing mutated.
func (s *Service) EstimatePerformanceRevenue(ctx context.Context, userID string, performanceID int64) (RevenueEstimate, error) {
	p, err := getPerformance(ctx, s.db, performanceID, false)
	if err != nil {
		return RevenueEstimate{}, err
	}
	artist, err := getArtist(ctx, s.db, p.ArtistID, false)
	if err != nil {
		return RevenueEstimate{}, err
	}
	if artist.ManagerUserID != userID {
		return RevenueEstimate{}, ErrNotYourArtist
	}
	venue, err := getVenue(ctx, s.db, p.VenueID)
	if err != nil {
		return RevenueEstimate{}, err
	}
	return venue.EstimateRevenue(artist.Popularity, p.TicketPriceCents), nil
}

// ListPerformances returns the manager's shows. Scope is "upcoming"
// (scheduled, future), "past" (terminal), or anything else for all.
func (s *Service) ListPerformances(ctx context.Context, userID, scope string, limit int) ([]PerformanceView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT p.id, p.public_id, p.artist_id, a.name, p.venue_id, v.name,
		       p.scheduled_for, p.duration_minutes, p.ticket_price_cents, p.status,
		       p.attendance, p.net_revenue_cents, p.gross_revenue_cents
		FROM label.performances p
		JOIN label.artists a ON a.id = p.artist_id
		JOIN label.venues v ON v.id = p.venue_id
		WHERE a.manager_user_id = $1`
	switch scope {
	case "upcoming":
		query += ` AND p.status = 'scheduled' AND p.scheduled_for > now() ORDER BY p.scheduled_for ASC`
	case "past":
		query += ` AND p.status IN ('completed', 'cancelled', 'failed') ORDER BY p.scheduled_for DESC`
	default:
		query += ` ORDER BY p.scheduled_for DESC`
	}
	query += ` LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PerformanceView
	for rows.Next() {
		var v PerformanceView
		if err := rows.Scan(&v.ID, &v.PublicID, &v.ArtistID, &v.ArtistName, &v.VenueID, &v.VenueName,
			&v.ScheduledFor, &v.DurationMinutes, &v.TicketPriceCents, &v.Status,
			&v.Attendance, &v.NetRevenueCents, &v.GrossRevenueCents); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetPerformance returns one show owned by the caller.
func (s *Service) GetPerformance(ctx context.Context, userID string, performanceID int64) (PerformanceView, error) {
	var v PerformanceView
	err := s.db.QueryRow(ctx, `
		SELECT p.id, p.public_id, p.artist_id, a.name, p.venue_id, v.name,
		       p.scheduled_for, p.duration_minutes, p.ticket_price_cents, p.status,
		       p.attendance, p.net_revenue_cents, p.gross_revenue_cents
		FROM label.performances p
		JOIN label.artists a ON a.id = p.artist_id
		JOIN label.venues v ON v.id = p.venue_id
		WHERE p.id = $1 AND a.manager_user_id = $2
	`, performanceID, userID).Scan(&v.ID, &v.PublicID, &v.ArtistID, &v.ArtistName, &v.VenueID, &v.VenueName,
		&v.ScheduledFor, &v.DurationMinutes, &v.TicketPriceCents, &v.Status,
		&v.Attendance, &v.NetRevenueCents, &v.GrossRevenueCents)
	if err != nil {
		if err == pgx.ErrNoRows {
			return v, fmt.Errorf("performance: %w", ErrNotFound)
		}
		return v, err
	}
	return v, nil
}
