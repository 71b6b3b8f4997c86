package label

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Service struct {
	db   *pgxpool.Pool
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
	now  func() time.Time
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) nextIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// runTx executes fn inside a serializable transaction, retrying on
// serialization conflicts (SQLSTATE 40001) with backoff. Every economic
// mutation goes through here so read-modify-write cycles on a single
// artist or manager are applied atomically.
func (s *Service) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO label.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

// ActiveSeasonID returns the current season, bootstrapping one when the
// database is fresh.
func (s *Service) ActiveSeasonID(ctx context.Context) (int64, error) {
	var seasonID int64
	err := s.db.QueryRow(ctx, `
		SELECT id
		FROM label.seasons
		WHERE status = 'active'
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&seasonID)
	if err == nil {
		return seasonID, nil
	}
	if err != pgx.ErrNoRows {
		return 0, err
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO label.seasons (name, status, starts_at, ends_at)
		VALUES ($1, 'active', now(), now() + interval '90 days')
		RETURNING id
	`, "Season 1").Scan(&seasonID)
	if err != nil {
		return 0, err
	}
	return seasonID, nil
}

// EnsureManager creates the manager row for an identity on first contact.
// Safe to call on every login.
func (s *Service) EnsureManager(ctx context.Context, userID, email, username string, startingBudgetCents int64) error {
	if strings.TrimSpace(username) == "" {
		username = usernameFromEmail(email)
	}
	username = sanitizeUsername(username)
	inviteCode, err := generateInviteCode()
	if err != nil {
		return err
	}
	if startingBudgetCents <= 0 {
		startingBudgetCents = DefaultStartingBudgetCents
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO label.managers (user_id, email, username, invite_code, budget_cents, level, xp, skill_points)
		VALUES ($1, $2, $3, $4, $5, 1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, email, username, inviteCode, startingBudgetCents)
	return err
}

// --- row mapping -----------------------------------------------------------

const artistColumns = `
	id, public_id, name, genre, COALESCE(manager_user_id, ''),
	talent, skill, popularity, energy, max_energy, required_level,
	signing_cost_cents, traits, COALESCE(current_action, ''),
	action_started_at, action_ends_at`

func scanArtist(row pgx.Row) (*Artist, error) {
	var a Artist
	var traitsRaw []byte
	var action string
	var startedAt, endsAt *time.Time
	err := row.Scan(
		&a.ID, &a.PublicID, &a.Name, &a.Genre, &a.ManagerUserID,
		&a.Talent, &a.Skill, &a.Popularity, &a.Energy, &a.MaxEnergy, &a.RequiredLevel,
		&a.SigningCostCents, &traitsRaw, &action,
		&startedAt, &endsAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("artist: %w", ErrNotFound)
		}
		return nil, err
	}
	if len(traitsRaw) > 0 {
		if err := json.Unmarshal(traitsRaw, &a.Traits); err != nil {
			return nil, fmt.Errorf("decode artist traits: %w", err)
		}
	}
	a.CurrentAction = Activity(action)
	if startedAt != nil {
		a.ActionStartedAt = *startedAt
	}
	if endsAt != nil {
		a.ActionEndsAt = *endsAt
	}
	return &a, nil
}

func getArtist(ctx context.Context, q querier, artistID int64, forUpdate bool) (*Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM label.artists WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanArtist(q.QueryRow(ctx, query, artistID))
}

func saveArtistState(ctx context.Context, q querier, a *Artist) error {
	traitsRaw, err := json.Marshal(a.Traits)
	if err != nil {
		return fmt.Errorf("encode artist traits: %w", err)
	}
	var action *string
	var startedAt, endsAt *time.Time
	if a.Busy() {
		v := string(a.CurrentAction)
		action = &v
		startedAt = &a.ActionStartedAt
		endsAt = &a.ActionEndsAt
	}
	var manager *string
	if a.ManagerUserID != "" {
		manager = &a.ManagerUserID
	}
	_, err = q.Exec(ctx, `
		UPDATE label.artists
		SET manager_user_id = $1,
		    skill = $2,
		    popularity = $3,
		    energy = $4,
		    traits = $5,
		    current_action = $6,
		    action_started_at = $7,
		    action_ends_at = $8,
		    updated_at = now()
		WHERE id = $9
	`, manager, a.Skill, a.Popularity, a.Energy, traitsRaw, action, startedAt, endsAt, a.ID)
	return err
}

func getManager(ctx context.Context, q querier, userID string, forUpdate bool) (*Manager, error) {
	query := `
		SELECT user_id, email, username, invite_code, budget_cents, level, xp, skill_points
		FROM label.managers
		WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var m Manager
	err := q.QueryRow(ctx, query, userID).Scan(
		&m.UserID, &m.Email, &m.Username, &m.InviteCode,
		&m.BudgetCents, &m.Level, &m.XP, &m.SkillPoints,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("manager: %w", ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func saveManagerState(ctx context.Context, q querier, m *Manager) error {
	_, err := q.Exec(ctx, `
		UPDATE label.managers
		SET budget_cents = $1, level = $2, xp = $3, skill_points = $4, updated_at = now()
		WHERE user_id = $5
	`, m.BudgetCents, m.Level, m.XP, m.SkillPoints, m.UserID)
	return err
}

func getVenue(ctx context.Context, q querier, venueID int64) (*Venue, error) {
	var v Venue
	err := q.QueryRow(ctx, `
		SELECT id, public_id, season_id, name, genre, capacity, booking_cost_cents, prestige, tier
		FROM label.venues
		WHERE id = $1
	`, venueID).Scan(&v.ID, &v.PublicID, &v.SeasonID, &v.Name, &v.Genre, &v.Capacity, &v.BookingCostCents, &v.Prestige, &v.Tier)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("venue: %w", ErrNotFound)
		}
		return nil, err
	}
	return &v, nil
}

// --- ledger ----------------------------------------------------------------

func appendTransaction(ctx context.Context, q querier, managerID string, artistID *int64, amountCents int64, description, txType string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO label.transactions (tx_group_id, manager_user_id, artist_id, amount_cents, description, transaction_type)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), managerID, artistID, amountCents, description, txType)
	return err
}

// addFundsTx credits the manager and appends an income row. Non-positive
// amounts are a silent refusal, mirroring the deduct path.
func addFundsTx(ctx context.Context, tx pgx.Tx, m *Manager, amountCents int64, description string, artistID *int64) (bool, error) {
	if amountCents <= 0 {
		return false, nil
	}
	m.BudgetCents += amountCents
	if err := saveManagerState(ctx, tx, m); err != nil {
		return false, err
	}
	if err := appendTransaction(ctx, tx, m.UserID, artistID, amountCents, description, "income"); err != nil {
		return false, err
	}
	return true, nil
}

// deductFundsTx debits the manager and appends an expense row with the
// amount negated. Refuses without error when unaffordable; callers that
// need a typed failure check CanAfford first.
func deductFundsTx(ctx context.Context, tx pgx.Tx, m *Manager, amountCents int64, description string, artistID *int64) (bool, error) {
	if amountCents <= 0 || !m.CanAfford(amountCents) {
		return false, nil
	}
	m.BudgetCents -= amountCents
	if err := saveManagerState(ctx, tx, m); err != nil {
		return false, err
	}
	if err := appendTransaction(ctx, tx, m.UserID, artistID, -amountCents, description, "expense"); err != nil {
		return false, err
	}
	return true, nil
}

// awardXPTx routes activity and signing XP through the shared leveling walk.
func awardXPTx(ctx context.Context, tx pgx.Tx, m *Manager, amount int) (int, error) {
	gained, err := m.GainXP(amount)
	if err != nil {
		return 0, err
	}
	if err := saveManagerState(ctx, tx, m); err != nil {
		return 0, err
	}
	return gained, nil
}

// AddFunds credits a manager's budget outside of any other flow.
func (s *Service) AddFunds(ctx context.Context, userID string, amountCents int64, description string) (bool, error) {
	var ok bool
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		m, err := getManager(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		ok, err = addFundsTx(ctx, tx, m, amountCents, description, nil)
		return err
	})
	return ok, err
}

// DeductFunds debits a manager's budget outside of any other flow.
func (s *Service) DeductFunds(ctx context.Context, userID string, amountCents int64, description string) (bool, error) {
	var ok bool
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		m, err := getManager(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		ok, err = deductFundsTx(ctx, tx, m, amountCents, description, nil)
		return err
	})
	return ok, err
}

// AddXP grants experience directly, walking level thresholds.
func (s *Service) AddXP(ctx context.Context, userID string, amount int) (int, error) {
	var gained int
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		m, err := getManager(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		gained, err = awardXPTx(ctx, tx, m, amount)
		return err
	})
	return gained, err
}

// SignArtist acquires an unsigned artist for the manager: eligibility
// checks, signing-cost debit, attachment, and the XP award happen as one
// atomic unit. Any failed check leaves everything untouched.
func (s *Service) SignArtist(ctx context.Context, in SignArtistInput) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "sign_artist"); err != nil {
			return err
		}
		m, err := getManager(ctx, tx, in.UserID, true)
		if err != nil {
			return err
		}
		artist, err := getArtist(ctx, tx, in.ArtistID, true)
		if err != nil {
			return err
		}
		if err := m.CanSign(artist); err != nil {
			return err
		}
		ok, err := deductFundsTx(ctx, tx, m, artist.SigningCostCents, "Signed artist: "+artist.Name, &artist.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}
		artist.ManagerUserID = m.UserID
		if err := saveArtistState(ctx, tx, artist); err != nil {
			return err
		}
		if _, err := awardXPTx(ctx, tx, m, SigningXP(artist)); err != nil {
			return err
		}
		s.log.Info("artist signed", "artist_id", artist.ID, "manager", m.UserID, "cost_cents", artist.SigningCostCents)
		return nil
	})
}

// --- read models -----------------------------------------------------------

func artistToView(a *Artist) ArtistView {
	v := ArtistView{
		ID:               a.ID,
		PublicID:         a.PublicID,
		Name:             a.Name,
		Genre:            a.Genre,
		Signed:           a.Signed(),
		Talent:           a.Talent,
		Skill:            a.Skill,
		Popularity:       a.Popularity,
		Energy:           a.Energy,
		MaxEnergy:        a.MaxEnergy,
		RequiredLevel:    a.RequiredLevel,
		SigningCostCents: a.SigningCostCents,
		Traits:           a.Traits,
	}
	if a.Busy() {
		v.CurrentAction = string(a.CurrentAction)
		ends := a.ActionEndsAt
		v.ActionEndsAt = &ends
	}
	return v
}

// ListArtists returns the caller's roster, or the unsigned pool when
// availableOnly is set.
func (s *Service) ListArtists(ctx context.Context, userID string, availableOnly bool) ([]ArtistView, error) {
	query := `SELECT ` + artistColumns + ` FROM label.artists WHERE manager_user_id = $1 ORDER BY name`
	arg := any(userID)
	if availableOnly {
		query = `SELECT ` + artistColumns + ` FROM label.artists WHERE manager_user_id IS NULL AND required_level <= $1 ORDER BY signing_cost_cents`
		m, err := getManager(ctx, s.db, userID, false)
		if err != nil {
			return nil, err
		}
		arg = m.Level
	}
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArtistView
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artistToView(a))
	}
	return out, rows.Err()
}

func (s *Service) GetArtist(ctx context.Context, artistID int64) (ArtistView, []ScheduledActionView, error) {
	a, err := getArtist(ctx, s.db, artistID, false)
	if err != nil {
		return ArtistView{}, nil, err
	}
	scheduled, err := listScheduledActions(ctx, s.db, artistID)
	if err != nil {
		return ArtistView{}, nil, err
	}
	views := make([]ScheduledActionView, 0, len(scheduled))
	for _, sa := range scheduled {
		views = append(views, ScheduledActionView{
			ID:       sa.ID,
			ArtistID: sa.ArtistID,
			Activity: string(sa.Activity),
			StartAt:  sa.StartAt,
			EndsAt:   sa.StartAt.Add(sa.Activity.Duration()),
		})
	}
	return artistToView(a), views, nil
}

// ListVenues returns the active season's venue catalog annotated with the
// caller's eligibility.
func (s *Service) ListVenues(ctx context.Context, userID string, seasonID int64) ([]VenueView, error) {
	m, err := getManager(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, public_id, season_id, name, genre, capacity, booking_cost_cents, prestige, tier
		FROM label.venues
		WHERE season_id = $1
		ORDER BY tier, capacity
	`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VenueView
	for rows.Next() {
		var v Venue
		if err := rows.Scan(&v.ID, &v.PublicID, &v.SeasonID, &v.Name, &v.Genre, &v.Capacity, &v.BookingCostCents, &v.Prestige, &v.Tier); err != nil {
			return nil, err
		}
		out = append(out, VenueView{
			ID:                    v.ID,
			PublicID:              v.PublicID,
			Name:                  v.Name,
			Genre:                 v.Genre,
			Capacity:              v.Capacity,
			BookingCostCents:      v.BookingCostCents,
			Prestige:              v.Prestige,
			Tier:                  v.Tier,
			MinTicketPriceCents:   v.MinimumTicketPriceCents(),
			Available:             v.AvailableForLevel(m.Level),
			SuggestedTicketFor100: v.SuggestedTicketPriceCents(100),
		})
	}
	return out, rows.Err()
}

// ListTransactions returns the most recent ledger rows for a manager.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]TransactionView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, amount_cents, description, transaction_type, artist_id, created_at
		FROM label.transactions
		WHERE manager_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionView
	for rows.Next() {
		var t TransactionView
		if err := rows.Scan(&t.ID, &t.AmountCents, &t.Description, &t.TransactionType, &t.ArtistID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Dashboard assembles the manager's home view: budget/level, roster,
// upcoming performances, and recent ledger activity.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var out Dashboard
	m, err := getManager(ctx, s.db, userID, false)
	if err != nil {
		return out, err
	}
	out.Manager = ManagerView{
		Username:          m.Username,
		Email:             m.Email,
		BudgetCents:       m.BudgetCents,
		Level:             m.Level,
		XP:                m.XP,
		SkillPoints:       m.SkillPoints,
		XPProgressPercent: m.XPProgressPercent(),
	}
	if next, ok := m.XPForNextLevel(); ok {
		out.Manager.XPForNextLevel = next
	}

	out.Artists, err = s.ListArtists(ctx, userID, false)
	if err != nil {
		return out, err
	}
	out.Upcoming, err = s.ListPerformances(ctx, userID, "upcoming", 20)
	if err != nil {
		return out, err
	}
	out.Recent, err = s.ListTransactions(ctx, userID, 10)
	if err != nil {
		return out, err
	}

	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents) FILTER (WHERE transaction_type = 'income'), 0),
		       COALESCE(ABS(SUM(amount_cents) FILTER (WHERE transaction_type = 'expense')), 0)
		FROM label.transactions
		WHERE manager_user_id = $1
	`, userID).Scan(&out.TotalIncome, &out.TotalExpense)
	return out, err
}

// --- small helpers ---------------------------------------------------------

func generateInviteCode() (string, error) {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	return string(buf), nil
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	parts := strings.Split(email, "@")
	if len(parts) == 0 || parts[0] == "" {
		return "manager"
	}
	return parts[0]
}

func sanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "manager"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	res := strings.Trim(string(out), "_")
	if len(res) < 3 {
		res = "manager_" + res
	}
	if len(res) > 24 {
		res = res[:24]
	}
	return res
}
