package price

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/web3-frozen/crypto-alert/internal/metrics"
)

// Window sizes, in daily closes.
const (
	ShortWindow = 30
	LongWindow  = 90
)

// Provider is the price data source the evaluator reads from.
type Provider interface {
	CurrentRate(ctx context.Context, symbol string) (Rate, error)
	DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}

// Evaluation is the result of evaluating one symbol.
type Evaluation struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
	Percentile30 float64 `json:"percentile_30"`
	Percentile90 float64 `json:"percentile_90"`
	Tier         Tier    `json:"tier"`
}

// Text renders the evaluation as an alert message.
func (e Evaluation) Text() string {
	return Render(e.Symbol, e.CurrentPrice, e.Percentile30)
}

// Evaluator ranks the current price of a symbol within its recent daily closes.
type Evaluator struct {
	provider Provider
}

func NewEvaluator(p Provider) *Evaluator {
	return &Evaluator{provider: p}
}

// Evaluate fetches the current rate and both close windows, failing on the first fetch error.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string) (Evaluation, error) {
	symbol = strings.ToUpper(symbol)

	rate, err := e.provider.CurrentRate(ctx, symbol)
	if err != nil {
		return Evaluation{}, err
	}
	if math.IsNaN(rate.Value) || math.IsInf(rate.Value, 0) {
		return Evaluation{}, fmt.Errorf("%w: %s: non-finite rate %v", ErrUpstreamUnavailable, symbol, rate.Value)
	}
	closes30, err := e.provider.DailyCloses(ctx, symbol, ShortWindow)
	if err != nil {
		return Evaluation{}, err
	}
	closes90, err := e.provider.DailyCloses(ctx, symbol, LongWindow)
	if err != nil {
		return Evaluation{}, err
	}

	p30 := PercentileOfScore(closes30, rate.Value)
	ev := Evaluation{
		Symbol:       symbol,
		CurrentPrice: rate.Value,
		Percentile30: p30,
		Percentile90: PercentileOfScore(closes90, rate.Value),
		Tier:         Classify(p30),
	}
	metrics.EvaluationsTotal.WithLabelValues(symbol, ev.Tier.String()).Inc()
	return ev, nil
}
