package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"encore/internal/auth"
	"encore/internal/config"
	"encore/internal/db"
	"encore/internal/label"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

type Server struct {
	cfg   config.APIConfig
	log   *slog.Logger
	auth  *auth.SupabaseClient
	label *label.Service
	pool  *pgxpool.Pool
	mux   *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.SupabaseClient, labelSvc *label.Service, pool *pgxpool.Pool) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:   cfg,
		log:   logger,
		auth:  authClient,
		label: labelSvc,
		pool:  pool,
		mux:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.Healthy(req.Context(), s.pool); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/dashboard", s.handleDashboard)

			r.Get("/artists", s.handleArtistsList)
			r.Get("/artists/{id}", s.handleArtistDetail)
			r.Post("/artists/{id}/sign", s.handleSignArtist)
			r.Post("/artists/{id}/activities", s.handleStartActivity)
			r.Delete("/artists/{id}/activities", s.handleCancelActivity)
			r.Post("/artists/{id}/scheduled-actions", s.handleScheduleActivity)
			r.Delete("/artists/{id}/scheduled-actions/{sid}", s.handleCancelScheduledAction)

			r.Get("/venues", s.handleVenuesList)

			r.Post("/performances", s.handleBookPerformance)
			r.Get("/performances", s.handlePerformancesList)
			r.Get("/performances/{id}", s.handlePerformanceDetail)
			r.Get("/performances/{id}/estimate", s.handlePerformanceEstimate)
			r.Post("/performances/{id}/complete", s.handleCompletePerformance)
			r.Post("/performances/{id}/cancel", s.handleCancelPerformance)

			r.Get("/transactions", s.handleTransactionsList)

			r.Post("/sync/replay", s.handleSyncReplay)

			if s.cfg.DevEndpoints {
				r.Post("/dev/funds", s.handleDevFunds)
				r.Post("/dev/xp", s.handleDevXP)
			}
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password), strings.TrimSpace(in.Username))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.label.EnsureManager(r.Context(), session.User.ID, session.User.Email, in.Username, label.DollarsToCents(s.cfg.StartingBudget)); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.label.EnsureManager(r.Context(), session.User.ID, session.User.Email, "", label.DollarsToCents(s.cfg.StartingBudget)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.label.Dashboard(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArtistsList(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	availableOnly := r.URL.Query().Get("available") == "1"
	out, err := s.label.ListArtists(r.Context(), user.UserID, availableOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": out})
}

func (s *Server) handleArtistDetail(w http.ResponseWriter, r *http.Request) {
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	artist, scheduled, err := s.label.GetArtist(r.Context(), artistID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artist": artist, "scheduled_actions": scheduled})
}

func (s *Server) handleSignArtist(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	if err := s.label.SignArtist(r.Context(), label.SignArtistInput{
		UserID:         user.UserID,
		ArtistID:       artistID,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStartActivity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	var in struct {
		Activity string `json:"activity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	activity, err := label.ParseActivity(in.Activity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.label.StartActivity(r.Context(), label.StartActivityInput{
		UserID:         user.UserID,
		ArtistID:       artistID,
		Activity:       activity,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "activity": activity})
}

func (s *Server) handleCancelActivity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	if err := s.label.CancelActivity(r.Context(), user.UserID, artistID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleScheduleActivity(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	var in struct {
		Activity string    `json:"activity"`
		StartAt  time.Time `json:"start_at"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	activity, err := label.ParseActivity(in.Activity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := s.label.ScheduleActivity(r.Context(), label.ScheduleActivityInput{
		UserID:         user.UserID,
		ArtistID:       artistID,
		Activity:       activity,
		StartAt:        in.StartAt,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleCancelScheduledAction(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	scheduledID, err := pathID(r, "sid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scheduled action id")
		return
	}
	if err := s.label.CancelScheduledAction(r.Context(), user.UserID, artistID, scheduledID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleVenuesList(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	seasonID, err := s.label.ActiveSeasonID(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out, err := s.label.ListVenues(r.Context(), user.UserID, seasonID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": out})
}

func (s *Server) handleBookPerformance(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ArtistID        int64     `json:"artist_id"`
		VenueID         int64     `json:"venue_id"`
		ScheduledFor    time.Time `json:"scheduled_for"`
		TicketPrice     float64   `json:"ticket_price"`
		DurationMinutes int       `json:"duration_minutes"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.label.BookPerformance(r.Context(), label.BookPerformanceInput{
		UserID:           user.UserID,
		ArtistID:         in.ArtistID,
		VenueID:          in.VenueID,
		ScheduledFor:     in.ScheduledFor,
		TicketPriceCents: label.DollarsToCents(in.TicketPrice),
		DurationMinutes:  in.DurationMinutes,
		IdempotencyKey:   idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handlePerformancesList(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	scope := r.URL.Query().Get("scope")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.label.ListPerformances(r.Context(), user.UserID, scope, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"performances": out})
}

func (s *Server) handlePerformanceDetail(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	performanceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid performance id")
		return
	}
	out, err := s.label.GetPerformance(r.Context(), user.UserID, performanceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePerformanceEstimate(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	performanceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid performance id")
		return
	}
	out, err := s.label.EstimatePerformanceRevenue(r.Context(), user.UserID, performanceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompletePerformance(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	performanceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid performance id")
		return
	}
	out, err := s.label.CompletePerformance(r.Context(), user.UserID, performanceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelPerformance(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	performanceID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid performance id")
		return
	}
	if err := s.label.CancelPerformance(r.Context(), user.UserID, performanceID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTransactionsList(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.label.ListTransactions(r.Context(), user.UserID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

// handleDevFunds adjusts the caller's own budget. Positive amounts credit,
// negative amounts debit; either refuses past the affordability rules and
// reports ok=false instead of erroring, matching the ledger semantics.
func (s *Server) handleDevFunds(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Development adjustment"
	}
	var ok bool
	if in.Amount >= 0 {
		ok, err = s.label.AddFunds(r.Context(), user.UserID, label.DollarsToCents(in.Amount), description)
	} else {
		ok, err = s.label.DeductFunds(r.Context(), user.UserID, label.DollarsToCents(-in.Amount), description)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": ok})
}

func (s *Server) handleDevXP(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Amount int `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	gained, err := s.label.AddXP(r.Context(), user.UserID, in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "levels_gained": gained})
}

func (s *Server) handleSyncReplay(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Commands []map[string]any `json:"commands"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The CLI replays queued commands against the real endpoints itself;
	// this acknowledges the batch so clients can clear their local queue.
	results := make([]map[string]any, 0, len(in.Commands))
	for _, cmd := range in.Commands {
		method, _ := cmd["method"].(string)
		path, _ := cmd["path"].(string)
		idem, _ := cmd["idempotency_key"].(string)
		results = append(results, map[string]any{
			"method":          method,
			"path":            path,
			"idempotency_key": idem,
			"status":          "queued_for_cli_replay",
			"user_id":         user.UserID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, label.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, label.ErrNotYourArtist):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, label.ErrDuplicateIdempotency), errors.Is(err, label.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, label.ErrInvalidActivity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, label.ErrAlreadyBusy),
		errors.Is(err, label.ErrNotBusy),
		errors.Is(err, label.ErrInsufficientEnergy),
		errors.Is(err, label.ErrInsufficientFunds),
		errors.Is(err, label.ErrLevelTooLow),
		errors.Is(err, label.ErrScheduleConflict),
		errors.Is(err, label.ErrPastStartTime),
		errors.Is(err, label.ErrVenueUnavailable),
		errors.Is(err, label.ErrLeadTimeTooShort),
		errors.Is(err, label.ErrAlreadyTerminal),
		errors.Is(err, label.ErrPerformanceNotDue),
		errors.Is(err, label.ErrAlreadySigned):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
