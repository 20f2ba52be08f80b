package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	infisical "github.com/infisical/go-sdk"
)

type Config struct {
	Port           string
	DatabaseURL    string
	FrontendOrigin string
	RedisURL       string
	RedisPassword  string
	LogLevel       slog.Level

	SlackBotToken  string
	SlackAppToken  string
	SlackChannelID string
	SlackAPIURL    string
	ChatRatePerSec float64

	CoinAPIKey    string
	CoinAPIURL    string
	QuoteAsset    string
	Symbols       []string
	RequestDelay  time.Duration
	PriceFallback string
	BinanceURL    string

	TriggerWord         string
	EventTimeout        time.Duration
	EventDedupTTL       time.Duration
	ReportSchedule      string
	EvaluationRetention time.Duration
}

func Load() Config {
	cfg := Config{
		Port:           envOr("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),

		SlackBotToken:  os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:  os.Getenv("SLACK_APP_TOKEN"),
		SlackChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		SlackAPIURL:    os.Getenv("SLACK_API_URL"),
		ChatRatePerSec: floatOr("CHAT_RATE_PER_SEC", 1),

		CoinAPIKey:    os.Getenv("COINAPI_KEY"),
		CoinAPIURL:    envOr("COINAPI_URL", "https://rest.coinapi.io"),
		QuoteAsset:    strings.ToUpper(envOr("QUOTE_ASSET", "USD")),
		Symbols:       parseSymbols(envOr("SYMBOLS", "BTC,ETH,XRP")),
		RequestDelay:  durationOr("REQUEST_DELAY", 4*time.Second),
		PriceFallback: strings.ToLower(os.Getenv("PRICE_FALLBACK")),
		BinanceURL:    envOr("BINANCE_URL", "https://api.binance.com"),

		TriggerWord:         envOr("TRIGGER_WORD", "start"),
		EventTimeout:        durationOr("EVENT_TIMEOUT", 15*time.Second),
		EventDedupTTL:       durationOr("EVENT_DEDUP_TTL", 10*time.Minute),
		ReportSchedule:      os.Getenv("REPORT_SCHEDULE"),
		EvaluationRetention: durationOr("EVALUATION_RETENTION", 90*24*time.Hour),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL",
		"http://infisical-infisical-standalone-infisical.infisical.svc.cluster.local:8080")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	if _, err := client.Auth().UniversalAuthLogin(clientID, clientSecret); err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	secrets := map[string]*string{
		"SLACK_BOT_TOKEN": &cfg.SlackBotToken,
		"SLACK_APP_TOKEN": &cfg.SlackAppToken,
		"COINAPI_KEY":     &cfg.CoinAPIKey,
		"REDIS_PASSWORD":  &cfg.RedisPassword,
	}

	for key, target := range secrets {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func floatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		slog.Warn("invalid number, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func parseSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
