package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/web3-frozen/crypto-alert/internal/metrics"
)

const (
	defaultCoinAPIURL = "https://rest.coinapi.io"
	apiKeyHeader      = "X-CoinAPI-Key"
)

// ErrUpstreamUnavailable wraps every price provider failure, network or shape.
var ErrUpstreamUnavailable = errors.New("price provider unavailable")

// Rate is the current exchange rate of an asset.
type Rate struct {
	Value float64
	Time  time.Time
}

type rateResp struct {
	Time *time.Time `json:"time"`
	Rate *float64   `json:"rate"`
}

type ohlcvResp struct {
	TimeClose  *time.Time `json:"time_close"`
	PriceClose *float64   `json:"price_close"`
}

// CoinAPI fetches exchange rates and daily OHLCV closes from the CoinAPI REST API.
type CoinAPI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	quote   string
}

func NewCoinAPI(baseURL, apiKey, quote string) *CoinAPI {
	if baseURL == "" {
		baseURL = defaultCoinAPIURL
	}
	if quote == "" {
		quote = "USD"
	}
	return &CoinAPI{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		quote:   strings.ToUpper(quote),
	}
}

// CurrentRate fetches the latest rate of symbol against the quote asset.
func (c *CoinAPI) CurrentRate(ctx context.Context, symbol string) (Rate, error) {
	url := fmt.Sprintf("%s/v1/exchangerate/%s/%s", c.baseURL, strings.ToUpper(symbol), c.quote)

	var body rateResp
	if err := c.get(ctx, "exchangerate", url, &body); err != nil {
		return Rate{}, err
	}
	if body.Rate == nil || body.Time == nil {
		return Rate{}, fmt.Errorf("%w: exchangerate %s: missing rate or time", ErrUpstreamUnavailable, symbol)
	}
	return Rate{Value: *body.Rate, Time: *body.Time}, nil
}

// DailyCloses fetches the most recent `days` daily close prices, newest first.
// A series shorter than the window is an error.
func (c *CoinAPI) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	url := fmt.Sprintf("%s/v1/ohlcv/%s/%s/latest?period_id=1DAY&limit=%d",
		c.baseURL, strings.ToUpper(symbol), c.quote, days)

	var rows []ohlcvResp
	if err := c.get(ctx, "ohlcv", url, &rows); err != nil {
		return nil, err
	}
	if len(rows) < days {
		return nil, fmt.Errorf("%w: ohlcv %s: got %d closes, want %d", ErrUpstreamUnavailable, symbol, len(rows), days)
	}

	closes := make([]float64, 0, days)
	for i, row := range rows[:days] {
		if row.PriceClose == nil || row.TimeClose == nil {
			return nil, fmt.Errorf("%w: ohlcv %s: row %d missing price_close or time_close", ErrUpstreamUnavailable, symbol, i)
		}
		closes = append(closes, *row.PriceClose)
	}
	return closes, nil
}

func (c *CoinAPI) get(ctx context.Context, endpoint, url string, out any) error {
	start := time.Now()
	err := c.doGet(ctx, url, out)
	metrics.PriceFetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PriceFetchTotal.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	metrics.PriceFetchTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *CoinAPI) doGet(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: coinapi: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("%w: coinapi status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, errResp.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode coinapi response: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}
