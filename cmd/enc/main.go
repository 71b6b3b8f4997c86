package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "encore/internal/cli"
	"encore/internal/config"
	"encore/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "enc",
		Short:        "Encore label-management client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newDashCmd(&apiBase),
		newSyncCmd(&apiBase),
		newArtistsCmd(&apiBase),
		newActCmd(&apiBase),
		newVenuesCmd(&apiBase),
		newGigCmd(&apiBase),
		newLedgerCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an Encore account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			username, err := promptOptional("Username (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password, username)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `enc login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Encore",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your label dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Dashboard(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderDashboard(out)
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}

func newArtistsCmd(apiBase *string) *cobra.Command {
	artists := &cobra.Command{
		Use:     "artists",
		Short:   "Roster and talent pool commands",
		Aliases: []string{"artist"},
	}

	artists.AddCommand(&cobra.Command{
		Use:   "list [pool]",
		Short: "List your roster, or `list pool` for signable artists",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			pool := len(args) > 0 && strings.EqualFold(strings.TrimSpace(args[0]), "pool")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListArtists(ctx, sess.AccessToken, pool)
			if err != nil {
				return err
			}
			title := "ROSTER"
			if pool {
				title = "TALENT POOL"
			}
			return renderArtistsList(out, title)
		},
	})

	artists.AddCommand(&cobra.Command{
		Use:   "show [artist_id]",
		Short: "Show one artist with their scheduled actions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Artist ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ArtistDetail(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderArtistDetail(out)
		},
	})

	artists.AddCommand(&cobra.Command{
		Use:   "sign [artist_id]",
		Short: "Sign an artist from the pool to your label",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Artist ID")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SignArtist(ctx, sess.AccessToken, id, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/artists/%d/sign", id),
					Body:           map[string]any{},
					IdempotencyKey: idem,
				})
			}
			return renderSimpleOK(out, fmt.Sprintf("Artist %d signed to your label.", id))
		},
	})

	return artists
}

func newActCmd(apiBase *string) *cobra.Command {
	act := &cobra.Command{
		Use:   "act",
		Short: "Start, schedule, and cancel artist activities",
	}

	act.AddCommand(&cobra.Command{
		Use:   "start [artist_id] [activity]",
		Short: "Start an activity now (practice|record|promote|rest)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Artist ID")
			if err != nil {
				return err
			}
			activity, err := activityFromArgOrPrompt(args, 1)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).StartActivity(ctx, sess.AccessToken, id, activity, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/artists/%d/activities", id),
					Body:           map[string]any{"activity": activity},
					IdempotencyKey: idem,
				})
			}
			return renderSimpleOK(out, fmt.Sprintf("Artist %d started %s.", id, activity))
		},
	})

	act.AddCommand(&cobra.Command{
		Use:   "cancel [artist_id]",
		Short: "Cancel the current activity (progress is forfeited)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Artist ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CancelActivity(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderSimpleOK(out, fmt.Sprintf("Artist %d activity cancelled.", id))
		},
	})

	act.AddCommand(&cobra.Command{
		Use:   "schedule [artist_id] [activity] [start_at]",
		Short: "Queue an activity for a future time (RFC3339)",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Artist ID")
			if err != nil {
				return err
			}
			activity, err := activityFromArgOrPrompt(args, 1)
			if err != nil {
				return err
			}
			startAt, err := timeFromArgOrPrompt(args, 2, "Start at (RFC3339)")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ScheduleActivity(ctx, sess.AccessToken, id, activity, startAt, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/artists/%d/scheduled-actions", id),
					Body:           map[string]any{"activity": activity, "start_at": startAt},
					IdempotencyKey: idem,
				})
			}
			return renderScheduled(out, activity, startAt)
		},
	})

	act.AddCommand(&cobra.Command{
		Use:   "unschedule [artist_id] [scheduled_id]",
		Short: "Remove a queued future activity",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Artist ID")
			if err != nil {
				return err
			}
			sid, err := int64FromArgOrPrompt(args, 1, "Scheduled action ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CancelScheduledAction(ctx, sess.AccessToken, id, sid)
			if err != nil {
				return err
			}
			return renderSimpleOK(out, fmt.Sprintf("Scheduled action %d removed.", sid))
		},
	})

	return act
}

func newVenuesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "venues",
		Short: "List venues for the active season",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListVenues(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderVenuesList(out)
		},
	}
}

func newGigCmd(apiBase *string) *cobra.Command {
	gig := &cobra.Command{
		Use:     "gig",
		Short:   "Performance booking and settlement commands",
		Aliases: []string{"gigs"},
	}

	gig.AddCommand(&cobra.Command{
		Use:   "book",
		Short: "Book a performance at a venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			artistID, err := promptInt64("Artist ID", 1)
			if err != nil {
				return err
			}
			venueID, err := promptInt64("Venue ID", 1)
			if err != nil {
				return err
			}
			scheduledFor, err := promptTime("Show time (RFC3339)")
			if err != nil {
				return err
			}
			ticketPrice, err := promptFloat("Ticket price", 0)
			if err != nil {
				return err
			}
			duration, err := promptInt64("Duration minutes", 15)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{
				"artist_id":        artistID,
				"venue_id":         venueID,
				"scheduled_for":    scheduledFor,
				"ticket_price":     ticketPrice,
				"duration_minutes": duration,
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BookPerformance(ctx, sess.AccessToken, artistID, venueID, scheduledFor, ticketPrice, int(duration), idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/performances",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderBooking(out)
		},
	})

	gig.AddCommand(&cobra.Command{
		Use:   "list [upcoming|past|all]",
		Short: "List your performances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			scope := "upcoming"
			if len(args) > 0 {
				scope = strings.ToLower(strings.TrimSpace(args[0]))
			}
			if scope == "all" {
				scope = ""
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListPerformances(ctx, sess.AccessToken, scope)
			if err != nil {
				return err
			}
			return renderPerformancesList(out)
		},
	})

	gig.AddCommand(&cobra.Command{
		Use:   "show [performance_id]",
		Short: "Show one performance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Performance ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).PerformanceDetail(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderPerformanceDetail(out)
		},
	})

	gig.AddCommand(&cobra.Command{
		Use:   "estimate [performance_id]",
		Short: "Preview expected revenue for a booked show",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Performance ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).PerformanceEstimate(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderEstimate(out)
		},
	})

	gig.AddCommand(&cobra.Command{
		Use:   "complete [performance_id]",
		Short: "Settle a show that has reached its scheduled time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Performance ID")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CompletePerformance(ctx, sess.AccessToken, id, idem)
			if err != nil {
				return err
			}
			return renderOutcome(out)
		},
	})

	gig.AddCommand(&cobra.Command{
		Use:   "cancel [performance_id]",
		Short: "Cancel a scheduled show (half refund if over a week out)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := int64FromArgOrPrompt(args, 0, "Performance ID")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CancelPerformance(ctx, sess.AccessToken, id, idem)
			if err != nil {
				return err
			}
			return renderSimpleOK(out, fmt.Sprintf("Performance %d cancelled.", id))
		},
	})

	return gig
}

func newLedgerCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger [limit]",
		Short: "Show your transaction history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			limit := 0
			if len(args) > 0 {
				limit, _ = strconv.Atoi(strings.TrimSpace(args[0]))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListTransactions(ctx, sess.AccessToken, limit)
			if err != nil {
				return err
			}
			return renderLedger(out)
		},
	}
}

// queueOnNetworkError keeps the write for `enc sync` when the failure is
// transport-level. A structured API rejection is final and never queued.
func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if isAPIStructuredError(err) {
		return err
	}
	if pushErr := syncq.Push(cmd); pushErr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn(fmt.Sprintf("Offline: queued %s %s for `enc sync`.", cmd.Method, cmd.Path))
	return nil
}

func isAPIStructuredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "api status")
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}

func activityFromArgOrPrompt(args []string, idx int) (string, error) {
	if len(args) > idx {
		return strings.ToLower(strings.TrimSpace(args[idx])), nil
	}
	return promptChoice("Activity", []string{"practice", "record", "promote", "rest"}, "practice")
}

func timeFromArgOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx {
		raw := strings.TrimSpace(args[idx])
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return "", fmt.Errorf("invalid %s: %w", strings.ToLower(label), err)
		}
		return raw, nil
	}
	return promptTime(label)
}
