package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/web3-frozen/crypto-alert/internal/metrics"
)

var (
	// ErrTransport wraps chat backend failures: network, auth, rate limits, server errors.
	ErrTransport = errors.New("chat transport error")

	// ErrNotFoundOnRemote is returned when an edit targets a message that no longer exists.
	ErrNotFoundOnRemote = errors.New("message not found on remote")
)

// Config controls the Slack notifier.
type Config struct {
	Token string

	// AppToken is the app-level token Socket Mode connects with.
	AppToken string

	// APIURL overrides the Slack Web API endpoint; it must end with "/".
	APIURL string

	Attempts   int
	RetryBase  time.Duration
	RetryMax   time.Duration
	RatePerSec float64
}

func (c *Config) applyDefaults() {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5 * time.Second
	}
}

// Slack posts and edits messages through the Slack Web API.
type Slack struct {
	api     *slack.Client
	limiter *rate.Limiter
	cfg     Config
	logger  *slog.Logger
}

func NewSlack(cfg Config, logger *slog.Logger) *Slack {
	cfg.applyDefaults()

	var opts []slack.Option
	if cfg.AppToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &Slack{
		api:     slack.New(cfg.Token, opts...),
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		logger:  logger,
	}
}

// Client exposes the underlying Slack client for the Socket Mode adapter.
func (s *Slack) Client() *slack.Client { return s.api }

// Post sends a new message and returns its timestamp, which Slack uses as the message id.
func (s *Slack) Post(ctx context.Context, channel, text string) (string, error) {
	var ts string
	err := s.do(ctx, "post", func(ctx context.Context) error {
		_, t, err := s.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
		ts = t
		return err
	})
	if err != nil {
		return "", err
	}
	return ts, nil
}

// Edit replaces the text of an existing message and returns the id reported back by Slack.
func (s *Slack) Edit(ctx context.Context, channel, messageID, text string) (string, error) {
	var ts string
	err := s.do(ctx, "edit", func(ctx context.Context) error {
		_, t, _, err := s.api.UpdateMessageContext(ctx, channel, messageID, slack.MsgOptionText(text, false))
		ts = t
		return err
	})
	if err != nil {
		return "", err
	}
	if ts == "" {
		ts = messageID
	}
	return ts, nil
}

// OpenDirect opens (or reuses) a direct message conversation with user.
func (s *Slack) OpenDirect(ctx context.Context, user string) (string, error) {
	var id string
	err := s.do(ctx, "open", func(ctx context.Context) error {
		ch, _, _, err := s.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{user}})
		if err != nil {
			return err
		}
		id = ch.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// do runs call with rate limiting and bounded retries for transient failures.
func (s *Slack) do(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
		}

		err := call(ctx)
		if err == nil {
			metrics.ChatOpsTotal.WithLabelValues(op, "ok").Inc()
			return nil
		}

		lastErr = classify(op, err)
		if !retryable(err) || ctx.Err() != nil || attempt == s.cfg.Attempts {
			break
		}

		delay := s.retryDelay(attempt)
		var rl *slack.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}
		s.logger.Warn("chat call failed, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		metrics.ChatRetriesTotal.WithLabelValues(op).Inc()

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			metrics.ChatOpsTotal.WithLabelValues(op, "error").Inc()
			return lastErr
		}
	}

	status := "error"
	if errors.Is(lastErr, ErrNotFoundOnRemote) {
		status = "not_found"
	}
	metrics.ChatOpsTotal.WithLabelValues(op, status).Inc()
	return lastErr
}

func classify(op string, err error) error {
	var apiErr slack.SlackErrorResponse
	if errors.As(err, &apiErr) && apiErr.Err == "message_not_found" {
		return fmt.Errorf("%w: %s: %v", ErrNotFoundOnRemote, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}

// retryable reports whether err is worth another attempt. Slack API rejections
// (bad auth, unknown channel, missing message) are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr slack.SlackErrorResponse
	return !errors.As(err, &apiErr)
}

func (s *Slack) retryDelay(attempt int) time.Duration {
	d := s.cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.RetryMax {
			d = s.cfg.RetryMax
			break
		}
	}
	// Jitter 0.7..1.3
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	if d > s.cfg.RetryMax {
		d = s.cfg.RetryMax
	}
	return d
}
