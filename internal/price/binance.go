package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/web3-frozen/crypto-alert/internal/metrics"
)

const defaultBinanceURL = "https://api.binance.com"

type binanceTickerResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Binance reads spot prices from the Binance public API. It needs no key, which
// makes it a useful fallback when CoinAPI quota runs out.
type Binance struct {
	client  *http.Client
	baseURL string
	quote   string
}

// NewBinance pairs symbols with quote; USD maps to USDT since Binance has no USD spot book.
func NewBinance(baseURL, quote string) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceURL
	}
	quote = strings.ToUpper(quote)
	if quote == "" || quote == "USD" {
		quote = "USDT"
	}
	return &Binance{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		quote:   quote,
	}
}

func (b *Binance) pair(symbol string) string {
	return strings.ToUpper(symbol) + b.quote
}

// CurrentRate fetches the last traded price. Binance does not timestamp the
// ticker, so the local clock is used.
func (b *Binance) CurrentRate(ctx context.Context, symbol string) (Rate, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.baseURL, b.pair(symbol))

	var ticker binanceTickerResp
	if err := b.get(ctx, "binance_ticker", url, &ticker); err != nil {
		return Rate{}, err
	}
	v, err := parsePrice(ticker.Price)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: binance price: %v", ErrUpstreamUnavailable, err)
	}
	return Rate{Value: v, Time: time.Now().UTC()}, nil
}

// DailyCloses fetches the most recent `days` 1d kline closes, newest first.
func (b *Binance) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1d&limit=%d", b.baseURL, b.pair(symbol), days)

	// Each kline is a positional array; index 4 is the close price.
	var rows [][]json.RawMessage
	if err := b.get(ctx, "binance_klines", url, &rows); err != nil {
		return nil, err
	}
	if len(rows) < days {
		return nil, fmt.Errorf("%w: klines %s: got %d closes, want %d", ErrUpstreamUnavailable, symbol, len(rows), days)
	}
	rows = rows[len(rows)-days:]

	closes := make([]float64, days)
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("%w: klines %s: row %d too short", ErrUpstreamUnavailable, symbol, i)
		}
		var s string
		if err := json.Unmarshal(row[4], &s); err != nil {
			return nil, fmt.Errorf("%w: klines %s: row %d close: %v", ErrUpstreamUnavailable, symbol, i, err)
		}
		v, err := parsePrice(s)
		if err != nil {
			return nil, fmt.Errorf("%w: klines %s: row %d close: %v", ErrUpstreamUnavailable, symbol, i, err)
		}
		closes[days-1-i] = v
	}
	return closes, nil
}

// parsePrice accepts only finite decimal prices; ParseFloat also admits "NaN" and "Inf".
func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite price %q", s)
	}
	return v, nil
}

func (b *Binance) get(ctx context.Context, endpoint, url string, out any) error {
	start := time.Now()
	err := b.doGet(ctx, url, out)
	metrics.PriceFetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PriceFetchTotal.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	metrics.PriceFetchTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (b *Binance) doGet(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: binance API: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("%w: binance API status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, errResp.Msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode binance response: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// Fallback tries each provider in order and returns the first success.
type Fallback []Provider

func (f Fallback) CurrentRate(ctx context.Context, symbol string) (Rate, error) {
	var errs []error
	for _, p := range f {
		r, err := p.CurrentRate(ctx, symbol)
		if err == nil {
			return r, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Rate{}, fallbackErr(errs)
}

func (f Fallback) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	var errs []error
	for _, p := range f {
		c, err := p.DailyCloses(ctx, symbol, days)
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fallbackErr(errs)
}

func fallbackErr(errs []error) error {
	if len(errs) == 0 {
		return fmt.Errorf("%w: no providers configured", ErrUpstreamUnavailable)
	}
	return errors.Join(errs...)
}
