package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/web3-frozen/crypto-alert/internal/metrics"
	"github.com/web3-frozen/crypto-alert/internal/price"
	"github.com/web3-frozen/crypto-alert/internal/store"
)

// Evaluator ranks a symbol's current price.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (price.Evaluation, error)
}

// Poster sends a new chat message.
type Poster interface {
	Post(ctx context.Context, channel, text string) (string, error)
}

// Recorder persists evaluation history.
type Recorder interface {
	InsertEvaluation(ctx context.Context, e *store.Evaluation) error
}

// Config describes one batch.
type Config struct {
	Channel string
	Symbols []string
	// Delay is the minimum spacing between symbols, to stay under the price API rate limit.
	Delay time.Duration
	// Out receives one result line per symbol; defaults to stdout.
	Out io.Writer
}

// Result summarises a run.
type Result struct {
	RunID     string
	Succeeded []string
	Failed    []string
}

// Runner evaluates a fixed list of symbols in order and posts one message per symbol.
type Runner struct {
	evaluator Evaluator
	poster    Poster
	recorder  Recorder
	cfg       Config
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewRunner(ev Evaluator, poster Poster, cfg Config, logger *slog.Logger) *Runner {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Runner{
		evaluator: ev,
		poster:    poster,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// WithRecorder stores every successful evaluation through rec.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// Run processes every symbol sequentially. A failing symbol is logged and skipped;
// the returned error reports how many failed.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	log := r.logger.With("run_id", res.RunID)
	log.Info("batch started", "symbols", r.cfg.Symbols, "channel", r.cfg.Channel)

	for _, sym := range r.cfg.Symbols {
		if err := r.limiter.Wait(ctx); err != nil {
			metrics.BatchRunsTotal.WithLabelValues("interrupted").Inc()
			return res, fmt.Errorf("batch interrupted: %w", err)
		}
		if err := r.runSymbol(ctx, res.RunID, sym); err != nil {
			log.Error("symbol failed", "symbol", sym, "error", err)
			res.Failed = append(res.Failed, sym)
			continue
		}
		res.Succeeded = append(res.Succeeded, sym)
	}

	log.Info("batch finished", "succeeded", len(res.Succeeded), "failed", len(res.Failed))
	if len(res.Failed) > 0 {
		metrics.BatchRunsTotal.WithLabelValues("partial").Inc()
		return res, fmt.Errorf("%d of %d symbols failed: %v", len(res.Failed), len(r.cfg.Symbols), res.Failed)
	}
	metrics.BatchRunsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (r *Runner) runSymbol(ctx context.Context, runID, sym string) error {
	ev, err := r.evaluator.Evaluate(ctx, sym)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	msgID, err := r.poster.Post(ctx, r.cfg.Channel, ev.Text())
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}

	fmt.Fprintf(r.cfg.Out, "%s %v %v %v\n", ev.Symbol, ev.CurrentPrice, ev.Percentile30, ev.Percentile90)

	if r.recorder != nil {
		rec := &store.Evaluation{
			RunID:        runID,
			Symbol:       ev.Symbol,
			CurrentPrice: ev.CurrentPrice,
			Percentile30: ev.Percentile30,
			Percentile90: ev.Percentile90,
			Tier:         ev.Tier.String(),
			MessageID:    msgID,
		}
		if err := r.recorder.InsertEvaluation(ctx, rec); err != nil {
			r.logger.Warn("store evaluation failed", "run_id", runID, "symbol", sym, "error", err)
		}
	}
	return nil
}
