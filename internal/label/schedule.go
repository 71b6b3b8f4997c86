package label

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"encore/internal/jobs"
)

// ScheduledAction queues an activity to start at a future time. Records
// are short-lived: they are deleted the moment they fire or are cancelled.
type ScheduledAction struct {
	ID       int64
	ArtistID int64
	Activity Activity
	StartAt  time.Time
}

// Window is the half-open interval the action will occupy.
func (sa *ScheduledAction) Window() (time.Time, time.Time) {
	return sa.StartAt, sa.StartAt.Add(sa.Activity.Duration())
}

// windowsOverlap treats windows as half-open, so back-to-back actions are
// allowed.
func windowsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// CheckScheduleConflict validates a proposed (activity, startAt) against
// the artist's current action and the existing queue. Pure, so the
// conflict matrix is unit-testable.
func CheckScheduleConflict(artist *Artist, existing []ScheduledAction, activity Activity, startAt, now time.Time) error {
	if !startAt.After(now) {
		return ErrPastStartTime
	}
	if artist.Busy() && startAt.Before(artist.ActionEndsAt) {
		return fmt.Errorf("%w: artist is busy until %s", ErrScheduleConflict, artist.ActionEndsAt.Format(time.RFC3339))
	}
	newEnd := startAt.Add(activity.Duration())
	for _, sa := range existing {
		exStart, exEnd := sa.Window()
		if windowsOverlap(startAt, newEnd, exStart, exEnd) {
			return fmt.Errorf("%w: overlaps scheduled %s at %s", ErrScheduleConflict, sa.Activity, sa.StartAt.Format(time.RFC3339))
		}
	}
	return nil
}

func listScheduledActions(ctx context.Context, q querier, artistID int64) ([]ScheduledAction, error) {
	rows, err := q.Query(ctx, `
		SELECT id, artist_id, activity, start_at
		FROM label.scheduled_actions
		WHERE artist_id = $1
		ORDER BY start_at
	`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledAction
	for rows.Next() {
		var sa ScheduledAction
		var activity string
		if err := rows.Scan(&sa.ID, &sa.ArtistID, &activity, &sa.StartAt); err != nil {
			return nil, err
		}
		sa.Activity = Activity(activity)
		out = append(out, sa)
	}
	return out, rows.Err()
}

// ScheduleActivity queues a future activity start for a managed artist and
// arranges the start trigger. Conflict detection runs against both the
// artist's current timer and every other queued window.
func (s *Service) ScheduleActivity(ctx context.Context, in ScheduleActivityInput) (int64, error) {
	var scheduledID int64
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		if in.IdempotencyKey != "" {
			if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "schedule_activity"); err != nil {
				return err
			}
		}
		artist, err := getArtist(ctx, tx, in.ArtistID, true)
		if err != nil {
			return err
		}
		if artist.ManagerUserID != in.UserID {
			return ErrNotYourArtist
		}
		existing, err := listScheduledActions(ctx, tx, artist.ID)
		if err != nil {
			return err
		}
		if err := CheckScheduleConflict(artist, existing, in.Activity, in.StartAt, s.now()); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO label.scheduled_actions (artist_id, activity, start_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`, artist.ID, in.Activity, in.StartAt).Scan(&scheduledID); err != nil {
			return err
		}
		if err := jobs.Enqueue(ctx, tx, jobs.KindStartScheduled, scheduledID, in.StartAt); err != nil {
			return err
		}
		s.log.Info("activity scheduled", "artist_id", artist.ID, "activity", in.Activity, "start_at", in.StartAt, "scheduled_id", scheduledID)
		return nil
	})
	return scheduledID, err
}

// FireScheduledAction is the start-trigger handler. A trigger arriving
// before the grace window re-arms for the real start time. Busyness is
// checked at fire time, not schedule time: a busy artist means the action
// is silently dropped rather than retried. Once due, the record is deleted
// in every path, including start failures, so a redelivered trigger finds
// nothing to do.
func (s *Service) FireScheduledAction(ctx context.Context, scheduledActionID int64) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		var sa ScheduledAction
		var activity string
		err := tx.QueryRow(ctx, `
			SELECT id, artist_id, activity, start_at
			FROM label.scheduled_actions
			WHERE id = $1
			FOR UPDATE
		`, scheduledActionID).Scan(&sa.ID, &sa.ArtistID, &activity, &sa.StartAt)
		if err != nil {
			if err == pgx.ErrNoRows {
				// Already fired or cancelled.
				return nil
			}
			return err
		}
		sa.Activity = Activity(activity)

		if firedEarly(s.now(), sa.StartAt) {
			s.log.Info("start trigger early, re-arming", "scheduled_id", sa.ID, "start_at", sa.StartAt)
			return jobs.Enqueue(ctx, tx, jobs.KindStartScheduled, sa.ID, sa.StartAt)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM label.scheduled_actions WHERE id = $1`, sa.ID); err != nil {
			return err
		}

		artist, err := getArtist(ctx, tx, sa.ArtistID, true)
		if err != nil {
			return err
		}
		if artist.Busy() {
			s.log.Warn("scheduled action dropped, artist busy", "artist_id", artist.ID, "activity", sa.Activity)
			return nil
		}
		if err := s.startActivityTx(ctx, tx, artist, sa.Activity); err != nil {
			// The record is already gone; a start failure (say, too
			// little energy at fire time) is a drop, not an error.
			s.log.Warn("scheduled action failed to start", "artist_id", artist.ID, "activity", sa.Activity, "err", err)
		}
		return nil
	})
}

// FireDueScheduledActions is the recovery pass for lost start triggers:
// any queued action whose start time has passed is fired through the
// normal path, which deletes the record whether or not the start sticks.
// One action's failure does not abort the rest of the batch. Returns how
// many actions were fired.
func (s *Service) FireDueScheduledActions(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id
		FROM label.scheduled_actions
		WHERE start_at <= $1
		ORDER BY start_at
	`, s.now())
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	fired := 0
	var errs []error
	for _, id := range ids {
		if err := s.FireScheduledAction(ctx, id); err != nil {
			s.log.Error("sweep start failed", "scheduled_id", id, "err", err)
			errs = append(errs, fmt.Errorf("scheduled action %d: %w", id, err))
			continue
		}
		fired++
	}
	return fired, errors.Join(errs...)
}

// CancelScheduledAction deletes a queued action owned by the caller's
// artist. The pending start trigger becomes a harmless no-op.
func (s *Service) CancelScheduledAction(ctx context.Context, userID string, artistID, scheduledActionID int64) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		artist, err := getArtist(ctx, tx, artistID, false)
		if err != nil {
			return err
		}
		if artist.ManagerUserID != userID {
			return ErrNotYourArtist
		}
		cmd, err := tx.Exec(ctx, `
			DELETE FROM label.scheduled_actions
			WHERE id = $1 AND artist_id = $2
		`, scheduledActionID, artistID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("scheduled action: %w", ErrNotFound)
		}
		return nil
	})
}
