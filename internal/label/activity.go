package label

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"encore/internal/jobs"
)

// StartActivity moves a managed artist from idle to busy and arranges the
// completion trigger at the activity's end time. The busy check, timer
// write, and trigger enqueue are one atomic unit.
func (s *Service) StartActivity(ctx context.Context, in StartActivityInput) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		if in.IdempotencyKey != "" {
			if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "start_activity"); err != nil {
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
		return s.startActivityTx(ctx, tx, artist, in.Activity)
	})
}

// startActivityTx is the shared entry for direct starts and scheduled-action
// firing. Caller holds the artist row lock.
func (s *Service) startActivityTx(ctx context.Context, tx pgx.Tx, artist *Artist, activity Activity) error {
	now := s.now()
	if err := artist.BeginActivity(activity, now); err != nil {
		return err
	}
	if err := saveArtistState(ctx, tx, artist); err != nil {
		return err
	}
	if err := jobs.Enqueue(ctx, tx, jobs.KindCompleteAction, artist.ID, artist.ActionEndsAt); err != nil {
		return err
	}
	s.log.Info("activity started", "artist_id", artist.ID, "activity", activity, "ends_at", artist.ActionEndsAt)
	return nil
}

// CancelActivity clears a busy artist's timer without applying effects.
// The outstanding completion trigger is not revoked; it becomes a no-op
// because completion is idempotent against an idle artist.
func (s *Service) CancelActivity(ctx context.Context, userID string, artistID int64) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		artist, err := getArtist(ctx, tx, artistID, true)
		if err != nil {
			return err
		}
		if artist.ManagerUserID != userID {
			return ErrNotYourArtist
		}
		if err := artist.AbortActivity(); err != nil {
			return err
		}
		if err := saveArtistState(ctx, tx, artist); err != nil {
			return err
		}
		s.log.Info("activity cancelled", "artist_id", artist.ID)
		return nil
	})
}

// HandleCompletionTrigger is the delayed-trigger entry point for an
// artist's activity deadline. It tolerates every delivery pathology the
// queue allows: duplicate delivery (idle artist, no-op), late delivery
// (complete now), and early delivery beyond the grace window (re-arm for
// the remaining time).
func (s *Service) HandleCompletionTrigger(ctx context.Context, artistID int64) error {
	return s.runTx(ctx, func(tx pgx.Tx) error {
		artist, err := getArtist(ctx, tx, artistID, true)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if !artist.Busy() {
			return nil
		}
		if firedEarly(s.now(), artist.ActionEndsAt) {
			s.log.Info("completion trigger early, re-arming", "artist_id", artist.ID, "ends_at", artist.ActionEndsAt)
			return jobs.Enqueue(ctx, tx, jobs.KindCompleteAction, artist.ID, artist.ActionEndsAt)
		}
		return s.completeActivityTx(ctx, tx, artist)
	})
}

// completeActivityTx applies the activity effect and awards manager XP.
// Both the sweep and the direct trigger route through here, so double
// firing collapses into the idempotent FinishActivity no-op.
func (s *Service) completeActivityTx(ctx context.Context, tx pgx.Tx, artist *Artist) error {
	outcome, done := artist.FinishActivity()
	if !done {
		return nil
	}
	if err := saveArtistState(ctx, tx, artist); err != nil {
		return err
	}
	if artist.Signed() && outcome.ManagerXP > 0 {
		m, err := getManager(ctx, tx, artist.ManagerUserID, true)
		if err != nil {
			// An orphaned manager pointer should not strand the artist
			// mid-activity; skip the award like an unsigned artist.
			if errors.Is(err, ErrNotFound) {
				s.log.Warn("manager missing at activity completion", "artist_id", artist.ID, "manager", artist.ManagerUserID)
				return nil
			}
			return err
		}
		if _, err := awardXPTx(ctx, tx, m, outcome.ManagerXP); err != nil {
			return err
		}
	}
	s.log.Info("activity completed",
		"artist_id", artist.ID,
		"activity", outcome.Activity,
		"skill_gain", outcome.SkillGain,
		"popularity_gain", outcome.PopularityGain,
		"energy_delta", outcome.EnergyDelta)
	return nil
}

// CompleteExpiredActions is the sweep-recovery pass: any artist whose
// deadline is already in the past gets force-completed through the normal
// completion path. One artist's failure does not abort the rest of the
// batch. Returns how many artists were completed.
func (s *Service) CompleteExpiredActions(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id
		FROM label.artists
		WHERE current_action IS NOT NULL
		  AND action_ends_at IS NOT NULL
		  AND action_ends_at < $1
		ORDER BY action_ends_at
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

	completed := 0
	var errs []error
	for _, id := range ids {
		if err := s.HandleCompletionTrigger(ctx, id); err != nil {
			s.log.Error("sweep completion failed", "artist_id", id, "err", err)
			errs = append(errs, fmt.Errorf("artist %d: %w", id, err))
			continue
		}
		completed++
	}
	return completed, errors.Join(errs...)
}

// RegenerateEnergy gives every idle artist below max energy a passive tick.
// Busy artists are untouched. Returns how many artists gained energy.
func (s *Service) RegenerateEnergy(ctx context.Context) (int, error) {
	updated := 0
	err := s.runTx(ctx, func(tx pgx.Tx) error {
		updated = 0
		rows, err := tx.Query(ctx, `
			SELECT `+artistColumns+`
			FROM label.artists
			WHERE current_action IS NULL AND energy < max_energy
			FOR UPDATE
		`)
		if err != nil {
			return err
		}
		var idle []*Artist
		for rows.Next() {
			a, err := scanArtist(rows)
			if err != nil {
				rows.Close()
				return err
			}
			idle = append(idle, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, a := range idle {
			if !a.RegenerateEnergy() {
				continue
			}
			if _, err := tx.Exec(ctx, `
				UPDATE label.artists SET energy = $1, updated_at = now() WHERE id = $2
			`, a.Energy, a.ID); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	return updated, err
}
