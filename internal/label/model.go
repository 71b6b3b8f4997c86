package label

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	CentsPerDollar = int64(100)

	// New managers start with a fixed bankroll unless configured otherwise.
	DefaultStartingBudgetCents = int64(10_000) * CentsPerDollar

	// Fallback when the signing-cost formula is handed malformed inputs.
	FallbackSigningCostCents = int64(1_000) * CentsPerDollar

	// Minimum energy an artist needs before a performance can be booked.
	MinPerformanceEnergy = 20

	// Idle artists recover this much energy per regeneration pass, before
	// the resilience bonus.
	BaseEnergyRegen = 2

	// A completion trigger firing within this window of the deadline is
	// treated as on-time rather than re-armed.
	CompletionGrace = 30 * time.Second

	// Performances must be booked at least this far out.
	MinBookingLead = 24 * time.Hour

	// Cancellations earlier than this before showtime refund half the
	// booking fee.
	RefundCutoff = 7 * 24 * time.Hour

	MaxManagerLevel = 10
	MaxVenueTier    = 5
)

var (
	ErrInvalidActivity    = errors.New("unknown activity")
	ErrAlreadyBusy        = errors.New("artist is already busy")
	ErrNotBusy            = errors.New("artist has no current activity")
	ErrInsufficientEnergy = errors.New("not enough energy for activity")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrLevelTooLow        = errors.New("manager level too low")
	ErrScheduleConflict   = errors.New("schedule conflict")
	ErrPastStartTime      = errors.New("start time must be in the future")
	ErrVenueUnavailable   = errors.New("venue tier exceeds manager level")
	ErrLeadTimeTooShort   = errors.New("performance must be booked at least 24 hours out")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyTerminal    = errors.New("performance already completed or cancelled")
	ErrPerformanceNotDue  = errors.New("performance has not reached its scheduled time")
	ErrAlreadySigned      = errors.New("artist already has a manager")
	ErrNotYourArtist      = errors.New("artist is not managed by you")

	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("transaction conflict, retry")
)

// firedEarly reports whether a trigger arrived more than the grace window
// before its deadline. Such a trigger should be re-armed for the deadline
// rather than handled, since the timed work has not finished yet.
func firedEarly(now, deadline time.Time) bool {
	return now.Before(deadline.Add(-CompletionGrace))
}

// Activity is a timed thing an artist can do. Dispatch is always an
// exhaustive switch on this type; unknown strings are rejected at the edge
// by ParseActivity.
type Activity string

const (
	ActivityPractice Activity = "practice"
	ActivityRecord   Activity = "record"
	ActivityPromote  Activity = "promote"
	ActivityRest     Activity = "rest"
)

var Activities = []Activity{ActivityPractice, ActivityRecord, ActivityPromote, ActivityRest}

func ParseActivity(s string) (Activity, error) {
	switch Activity(strings.ToLower(strings.TrimSpace(s))) {
	case ActivityPractice:
		return ActivityPractice, nil
	case ActivityRecord:
		return ActivityRecord, nil
	case ActivityPromote:
		return ActivityPromote, nil
	case ActivityRest:
		return ActivityRest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidActivity, s)
	}
}

func (a Activity) Duration() time.Duration {
	switch a {
	case ActivityPractice:
		return 30 * time.Minute
	case ActivityRecord:
		return 60 * time.Minute
	case ActivityPromote:
		return 45 * time.Minute
	case ActivityRest:
		return 20 * time.Minute
	}
	return 0
}

func (a Activity) EnergyCost() int {
	switch a {
	case ActivityPractice:
		return 10
	case ActivityRecord:
		return 15
	case ActivityPromote:
		return 20
	case ActivityRest:
		return 0
	}
	return 0
}

// ManagerXP is the experience awarded to the owning manager when the
// activity completes. Unsigned artists award nothing.
func (a Activity) ManagerXP() int {
	switch a {
	case ActivityPractice:
		return 3
	case ActivityRecord:
		return 5
	case ActivityPromote:
		return 4
	case ActivityRest:
		return 1
	}
	return 0
}

// PerformanceStatus is a linear progression; there are no cycles.
type PerformanceStatus string

const (
	StatusScheduled  PerformanceStatus = "scheduled"
	StatusInProgress PerformanceStatus = "in_progress"
	StatusCompleted  PerformanceStatus = "completed"
	StatusCancelled  PerformanceStatus = "cancelled"
	StatusFailed     PerformanceStatus = "failed"
)

func (s PerformanceStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerDollar)))
}

func CentsToDollars(v int64) float64 {
	return float64(v) / float64(CentsPerDollar)
}

// ceilDiv is ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// SigningCost prices an unsigned artist:
// 1000 * (talent/10 + 0.5) * (required_level * 0.5) dollars, to the cent.
// Out-of-range inputs fall back to a flat price; generation must not fail
// over a pricing bug.
func SigningCost(talent, requiredLevel int) (int64, error) {
	if talent < 0 || talent > 100 || requiredLevel < 1 || requiredLevel > 5 {
		return FallbackSigningCostCents, fmt.Errorf("signing cost inputs out of range: talent=%d required_level=%d", talent, requiredLevel)
	}
	cost := 1000.0 * (float64(talent)/10.0 + 0.5) * (float64(requiredLevel) * 0.5)
	return DollarsToCents(cost), nil
}

// MaxVenueTierForLevel gates venue access by manager level.
func MaxVenueTierForLevel(level int) int {
	tier := ceilDiv(level, 20)
	if tier < 1 {
		tier = 1
	}
	if tier > MaxVenueTier {
		tier = MaxVenueTier
	}
	return tier
}
