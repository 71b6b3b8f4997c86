package label

import "time"

type Dashboard struct {
	Manager      ManagerView       `json:"manager"`
	Artists      []ArtistView      `json:"artists"`
	Upcoming     []PerformanceView `json:"upcoming_performances"`
	Recent       []TransactionView `json:"recent_transactions"`
	TotalIncome  int64             `json:"total_income_cents"`
	TotalExpense int64             `json:"total_expense_cents"`
}

type ManagerView struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	BudgetCents       int64  `json:"budget_cents"`
	Level             int    `json:"level"`
	XP                int    `json:"xp"`
	SkillPoints       int    `json:"skill_points"`
	XPForNextLevel    int    `json:"xp_for_next_level,omitempty"`
	XPProgressPercent int    `json:"xp_progress_percent"`
}

type ArtistView struct {
	ID               int64          `json:"id"`
	PublicID         string         `json:"public_id"`
	Name             string         `json:"name"`
	Genre            string         `json:"genre"`
	Signed           bool           `json:"signed"`
	Talent           int            `json:"talent"`
	Skill            int            `json:"skill"`
	Popularity       int            `json:"popularity"`
	Energy           int            `json:"energy"`
	MaxEnergy        int            `json:"max_energy"`
	RequiredLevel    int            `json:"required_level"`
	SigningCostCents int64          `json:"signing_cost_cents"`
	Traits           map[string]int `json:"traits"`
	CurrentAction    string         `json:"current_action,omitempty"`
	ActionEndsAt     *time.Time     `json:"action_ends_at,omitempty"`
}

type VenueView struct {
	ID                    int64  `json:"id"`
	PublicID              string `json:"public_id"`
	Name                  string `json:"name"`
	Genre                 string `json:"genre"`
	Capacity              int    `json:"capacity"`
	BookingCostCents      int64  `json:"booking_cost_cents"`
	Prestige              int    `json:"prestige"`
	Tier                  int    `json:"tier"`
	MinTicketPriceCents   int64  `json:"min_ticket_price_cents"`
	Available             bool   `json:"available"`
	SuggestedTicketFor100 int64  `json:"suggested_ticket_cents_at_popularity_100"`
}

type PerformanceView struct {
	ID                int64     `json:"id"`
	PublicID          string    `json:"public_id"`
	ArtistID          int64     `json:"artist_id"`
	ArtistName        string    `json:"artist_name"`
	VenueID           int64     `json:"venue_id"`
	VenueName         string    `json:"venue_name"`
	ScheduledFor      time.Time `json:"scheduled_for"`
	DurationMinutes   int       `json:"duration_minutes"`
	TicketPriceCents  int64     `json:"ticket_price_cents"`
	Status            string    `json:"status"`
	Attendance        int       `json:"attendance,omitempty"`
	NetRevenueCents   int64     `json:"net_revenue_cents,omitempty"`
	GrossRevenueCents int64     `json:"gross_revenue_cents,omitempty"`
}

type TransactionView struct {
	ID              int64     `json:"id"`
	AmountCents     int64     `json:"amount_cents"`
	Description     string    `json:"description"`
	TransactionType string    `json:"transaction_type"`
	ArtistID        *int64    `json:"artist_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type ScheduledActionView struct {
	ID       int64     `json:"id"`
	ArtistID int64     `json:"artist_id"`
	Activity string    `json:"activity"`
	StartAt  time.Time `json:"start_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type StartActivityInput struct {
	UserID         string
	ArtistID       int64
	Activity       Activity
	IdempotencyKey string
}

type ScheduleActivityInput struct {
	UserID         string
	ArtistID       int64
	Activity       Activity
	StartAt        time.Time
	IdempotencyKey string
}

type SignArtistInput struct {
	UserID         string
	ArtistID       int64
	IdempotencyKey string
}

type BookPerformanceInput struct {
	UserID           string
	ArtistID         int64
	VenueID          int64
	ScheduledFor     time.Time
	TicketPriceCents int64
	DurationMinutes  int
	IdempotencyKey   string
}

type BookPerformanceResult struct {
	PerformanceID    int64 `json:"performance_id"`
	TicketPriceCents int64 `json:"ticket_price_cents"`
	BookingFeeCents  int64 `json:"booking_fee_cents"`
	BudgetCents      int64 `json:"budget_cents"`
}

// PerformanceOutcome is what CompletePerformance hands back for display.
type PerformanceOutcome struct {
	PerformanceID   int64 `json:"performance_id"`
	Attendance      int   `json:"attendance"`
	NetRevenueCents int64 `json:"net_revenue_cents"`
	SkillGain       int   `json:"skill_gain"`
	PopularityGain  int   `json:"popularity_gain"`
}
