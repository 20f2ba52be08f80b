package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/web3-frozen/crypto-alert/internal/alert"
	"github.com/web3-frozen/crypto-alert/internal/config"
	"github.com/web3-frozen/crypto-alert/internal/dedup"
	"github.com/web3-frozen/crypto-alert/internal/dispatch"
	"github.com/web3-frozen/crypto-alert/internal/handler"
	"github.com/web3-frozen/crypto-alert/internal/middleware"
	"github.com/web3-frozen/crypto-alert/internal/notifier"
	"github.com/web3-frozen/crypto-alert/internal/price"
	"github.com/web3-frozen/crypto-alert/internal/slackbot"
	"github.com/web3-frozen/crypto-alert/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.SlackBotToken == "" {
		logger.Error("SLACK_BOT_TOKEN is required")
		os.Exit(1)
	}
	if cfg.SlackAppToken == "" {
		logger.Error("SLACK_APP_TOKEN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chat := notifier.NewSlack(notifier.Config{
		Token:      cfg.SlackBotToken,
		AppToken:   cfg.SlackAppToken,
		APIURL:     cfg.SlackAPIURL,
		RatePerSec: cfg.ChatRatePerSec,
	}, logger)

	// Optional backends. Interface values stay nil when a backend is off.
	var (
		deduper dispatch.Deduper
		dbPing  handler.Pinger
		ddPing  handler.Pinger
		db      *store.Store
	)

	if cfg.RedisURL != "" {
		// Retry up to 30s for the secret sync to land.
		var dd *dedup.Deduplicator
		var err error
		for i := 0; i < 6; i++ {
			dd, err = dedup.New(cfg.RedisURL, cfg.RedisPassword, cfg.EventDedupTTL)
			if err == nil {
				break
			}
			logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
			time.Sleep(5 * time.Second)
		}
		if err != nil {
			logger.Error("failed to connect to redis after retries", "error", err)
			os.Exit(1)
		}
		defer dd.Close()
		deduper, ddPing = dd, dd
		logger.Info("redis connected for event dedup")
	}

	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		dbPing = db
		logger.Info("database connected and migrated")
	}

	registry := alert.NewRegistry()
	dispatcher := dispatch.New(registry, chat, logger, dispatch.Options{
		TriggerWord: cfg.TriggerWord,
		Timeout:     cfg.EventTimeout,
		Dedup:       deduper,
	})

	events := make(chan dispatch.Event, 64)
	adapter := slackbot.New(chat.Client(), logger)

	go dispatcher.Run(ctx, events)
	go func() {
		if err := adapter.Run(ctx, events); err != nil && ctx.Err() == nil {
			logger.Error("slack socket mode stopped", "error", err)
			cancel()
		}
	}()

	var provider price.Provider = price.NewCoinAPI(cfg.CoinAPIURL, cfg.CoinAPIKey, cfg.QuoteAsset)
	if cfg.PriceFallback == "binance" {
		provider = price.Fallback{provider, price.NewBinance(cfg.BinanceURL, cfg.QuoteAsset)}
	}
	evaluator := price.NewEvaluator(provider)

	sched, err := newScheduler(cfg, evaluator, chat, db, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(dbPing, ddPing))

	r.Route("/api", func(r chi.Router) {
		r.Get("/alerts", handler.ListAlerts(registry))
		r.Get("/prices/{symbol}", handler.GetPrice(evaluator))
		if db != nil {
			r.Get("/evaluations", handler.ListEvaluations(db))
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
