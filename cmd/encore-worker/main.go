package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"encore/internal/config"
	"encore/internal/db"
	"encore/internal/jobs"
	"encore/internal/label"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := label.NewService(pool, logger)
	queue := jobs.New(pool, logger)

	if _, err := svc.ActiveSeasonID(ctx); err != nil {
		logger.Error("active season init failed", "err", err)
		os.Exit(1)
	}

	dispatch := func(ctx context.Context, j jobs.Job) error {
		switch j.Kind {
		case jobs.KindCompleteAction:
			return svc.HandleCompletionTrigger(ctx, j.RefID)
		case jobs.KindStartScheduled:
			return svc.FireScheduledAction(ctx, j.RefID)
		default:
			return fmt.Errorf("unknown job kind %q", j.Kind)
		}
	}

	runMaintenance := func() {
		if n, err := svc.FireDueScheduledActions(ctx); err != nil {
			logger.Error("scheduled action sweep failed", "err", err)
		} else if n > 0 {
			logger.Info("overdue scheduled actions fired", "count", n)
		}
		if n, err := svc.CompleteExpiredActions(ctx); err != nil {
			logger.Error("expired action sweep failed", "err", err)
		} else if n > 0 {
			logger.Info("expired actions recovered", "count", n)
		}
		if n, err := svc.RegenerateEnergy(ctx); err != nil {
			logger.Error("energy regeneration failed", "err", err)
		} else if n > 0 {
			logger.Info("energy regenerated", "artists", n)
		}
		if _, err := svc.MaintainArtistPool(ctx); err != nil {
			logger.Error("artist pool maintenance failed", "err", err)
		}
		if _, err := svc.SeedVenues(ctx, cfg.VenueTarget); err != nil {
			logger.Error("venue seeding failed", "err", err)
		}
	}

	if cfg.RunOnce {
		if _, err := queue.RunDue(ctx, time.Now(), dispatch); err != nil {
			logger.Error("job poll failed", "err", err)
			os.Exit(1)
		}
		runMaintenance()
		logger.Info("worker run-once completed")
		return
	}

	pollTicker := time.NewTicker(cfg.JobPollEvery)
	defer pollTicker.Stop()
	sweepTicker := time.NewTicker(cfg.SweepEvery)
	defer sweepTicker.Stop()
	regenTicker := time.NewTicker(cfg.EnergyRegenEvery)
	defer regenTicker.Stop()
	poolTicker := time.NewTicker(cfg.PoolCheckEvery)
	defer poolTicker.Stop()

	logger.Info("worker started",
		"poll_every", cfg.JobPollEvery.String(),
		"sweep_every", cfg.SweepEvery.String(),
		"regen_every", cfg.EnergyRegenEvery.String(),
		"pool_every", cfg.PoolCheckEvery.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-pollTicker.C:
			if n, err := queue.RunDue(ctx, time.Now(), dispatch); err != nil {
				logger.Error("job poll failed", "err", err)
			} else if n > 0 {
				logger.Info("jobs dispatched", "count", n)
			}
		case <-sweepTicker.C:
			if n, err := svc.FireDueScheduledActions(ctx); err != nil {
				logger.Error("scheduled action sweep failed", "err", err)
			} else if n > 0 {
				logger.Info("overdue scheduled actions fired", "count", n)
			}
			if n, err := svc.CompleteExpiredActions(ctx); err != nil {
				logger.Error("expired action sweep failed", "err", err)
			} else if n > 0 {
				logger.Info("expired actions recovered", "count", n)
			}
		case <-regenTicker.C:
			if n, err := svc.RegenerateEnergy(ctx); err != nil {
				logger.Error("energy regeneration failed", "err", err)
			} else if n > 0 {
				logger.Info("energy regenerated", "artists", n)
			}
		case <-poolTicker.C:
			if _, err := svc.MaintainArtistPool(ctx); err != nil {
				logger.Error("artist pool maintenance failed", "err", err)
			}
			if _, err := svc.SeedVenues(ctx, cfg.VenueTarget); err != nil {
				logger.Error("venue seeding failed", "err", err)
			}
		}
	}
}
