package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/web3-frozen/crypto-alert/internal/batch"
	"github.com/web3-frozen/crypto-alert/internal/config"
	"github.com/web3-frozen/crypto-alert/internal/store"
)

// newScheduler registers the periodic price report and, with a database, the
// daily history cleanup. Jobs never overlap themselves.
func newScheduler(cfg config.Config, ev batch.Evaluator, poster batch.Poster, db *store.Store, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if cfg.ReportSchedule != "" {
		if cfg.SlackChannelID == "" {
			logger.Warn("REPORT_SCHEDULE set without SLACK_CHANNEL_ID, report disabled")
		} else {
			runner := batch.NewRunner(ev, poster, batch.Config{
				Channel: cfg.SlackChannelID,
				Symbols: cfg.Symbols,
				Delay:   cfg.RequestDelay,
				Out:     io.Discard,
			}, logger)
			if db != nil {
				runner.WithRecorder(db)
			}
			_, err := c.AddFunc(cfg.ReportSchedule, func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()
				if _, err := runner.Run(ctx); err != nil {
					logger.Warn("scheduled report incomplete", "error", err)
				}
			})
			if err != nil {
				return nil, err
			}
			logger.Info("price report scheduled", "schedule", cfg.ReportSchedule, "symbols", cfg.Symbols)
		}
	}

	if db != nil && cfg.EvaluationRetention > 0 {
		_, err := c.AddFunc("@daily", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := db.CleanupOldEvaluations(ctx, cfg.EvaluationRetention)
			if err != nil {
				logger.Error("evaluation cleanup failed", "error", err)
				return
			}
			logger.Info("evaluation cleanup done", "deleted", n)
		})
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}
