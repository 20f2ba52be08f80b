// Command batch evaluates the configured symbols once, posts one message per
// symbol and prints "SYMBOL PRICE P30 P90" lines to stdout.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/web3-frozen/crypto-alert/internal/batch"
	"github.com/web3-frozen/crypto-alert/internal/config"
	"github.com/web3-frozen/crypto-alert/internal/notifier"
	"github.com/web3-frozen/crypto-alert/internal/price"
	"github.com/web3-frozen/crypto-alert/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries results, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
		logger.Error("SLACK_BOT_TOKEN and SLACK_CHANNEL_ID are required")
		os.Exit(1)
	}
	if cfg.CoinAPIKey == "" && cfg.PriceFallback != "binance" {
		logger.Error("COINAPI_KEY is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chat := notifier.NewSlack(notifier.Config{
		Token:      cfg.SlackBotToken,
		APIURL:     cfg.SlackAPIURL,
		RatePerSec: cfg.ChatRatePerSec,
	}, logger)
	var provider price.Provider = price.NewCoinAPI(cfg.CoinAPIURL, cfg.CoinAPIKey, cfg.QuoteAsset)
	if cfg.PriceFallback == "binance" {
		provider = price.Fallback{provider, price.NewBinance(cfg.BinanceURL, cfg.QuoteAsset)}
	}
	evaluator := price.NewEvaluator(provider)

	runner := batch.NewRunner(evaluator, chat, batch.Config{
		Channel: cfg.SlackChannelID,
		Symbols: cfg.Symbols,
		Delay:   cfg.RequestDelay,
		Out:     os.Stdout,
	}, logger)

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("history disabled, database unavailable", "error", err)
		} else {
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				logger.Warn("history disabled, migration failed", "error", err)
			} else {
				runner.WithRecorder(db)
			}
		}
	}

	if _, err := runner.Run(ctx); err != nil {
		logger.Error("batch failed", "error", err)
		stop()
		os.Exit(1)
	}
}
