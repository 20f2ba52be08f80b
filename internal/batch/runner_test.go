package batch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/web3-frozen/crypto-alert/internal/price"
	"github.com/web3-frozen/crypto-alert/internal/store"
)

type fakeEvaluator struct {
	results map[string]price.Evaluation
	calls   []time.Time
}

func (f *fakeEvaluator) Evaluate(_ context.Context, symbol string) (price.Evaluation, error) {
	f.calls = append(f.calls, time.Now())
	ev, ok := f.results[symbol]
	if !ok {
		return price.Evaluation{}, price.ErrUpstreamUnavailable
	}
	return ev, nil
}

type post struct{ channel, text string }

type fakePoster struct {
	posts []post
	err   error
}

func (f *fakePoster) Post(_ context.Context, channel, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, post{channel, text})
	return "ts-" + channel, nil
}

type fakeRecorder struct {
	rows []store.Evaluation
}

func (f *fakeRecorder) InsertEvaluation(_ context.Context, e *store.Evaluation) error {
	f.rows = append(f.rows, *e)
	return nil
}

func evaluation(sym string, p, p30, p90 float64) price.Evaluation {
	return price.Evaluation{Symbol: sym, CurrentPrice: p, Percentile30: p30, Percentile90: p90, Tier: price.Classify(p30)}
}

func TestRunAllSymbols(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]price.Evaluation{
		"BTC": evaluation("BTC", 45000.5, 12.5, 40),
		"ETH": evaluation("ETH", 3000, 50, 60.25),
	}}
	poster := &fakePoster{}
	rec := &fakeRecorder{}
	var out bytes.Buffer

	r := NewRunner(ev, poster, Config{Channel: "C1", Symbols: []string{"BTC", "ETH"}, Out: &out}, slog.Default()).
		WithRecorder(rec)
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(res.Succeeded) != 2 || len(res.Failed) != 0 || res.RunID == "" {
		t.Errorf("result = %+v", res)
	}
	wantOut := "BTC 45000.5 12.5 40\nETH 3000 50 60.25\n"
	if out.String() != wantOut {
		t.Errorf("stdout = %q, want %q", out.String(), wantOut)
	}
	if len(poster.posts) != 2 || poster.posts[0].channel != "C1" {
		t.Fatalf("posts = %+v", poster.posts)
	}
	if !strings.HasPrefix(poster.posts[0].text, "BTC is a BARGAIN today.") {
		t.Errorf("first post = %q", poster.posts[0].text)
	}
	if len(rec.rows) != 2 || rec.rows[1].Tier != "TYPICAL BUY" || rec.rows[0].MessageID != "ts-C1" || rec.rows[0].RunID != res.RunID {
		t.Errorf("recorded rows = %+v", rec.rows)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]price.Evaluation{
		"BTC": evaluation("BTC", 1, 1, 1),
		"XRP": evaluation("XRP", 0.5, 90, 90),
	}}
	poster := &fakePoster{}
	var out bytes.Buffer

	r := NewRunner(ev, poster, Config{Channel: "C1", Symbols: []string{"BTC", "ETH", "XRP"}, Out: &out}, slog.Default())
	res, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Run should report the failed symbol")
	}
	if len(res.Succeeded) != 2 || len(res.Failed) != 1 || res.Failed[0] != "ETH" {
		t.Errorf("result = %+v", res)
	}
	if len(poster.posts) != 2 {
		t.Errorf("posts = %d, want 2", len(poster.posts))
	}
	if strings.Count(out.String(), "\n") != 2 {
		t.Errorf("stdout = %q, want 2 lines", out.String())
	}
}

func TestRunPostFailure(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]price.Evaluation{"BTC": evaluation("BTC", 1, 1, 1)}}
	poster := &fakePoster{err: errors.New("chat down")}
	var out bytes.Buffer

	r := NewRunner(ev, poster, Config{Channel: "C1", Symbols: []string{"BTC"}, Out: &out}, slog.Default())
	res, err := r.Run(context.Background())
	if err == nil || len(res.Failed) != 1 {
		t.Fatalf("Run = %+v, %v; want one failure", res, err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
}

func TestRunSpacesRequests(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]price.Evaluation{
		"A": evaluation("A", 1, 1, 1),
		"B": evaluation("B", 1, 1, 1),
		"C": evaluation("C", 1, 1, 1),
	}}
	delay := 30 * time.Millisecond
	r := NewRunner(ev, &fakePoster{}, Config{Channel: "C1", Symbols: []string{"A", "B", "C"}, Delay: delay, Out: &bytes.Buffer{}}, slog.Default())

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for i := 1; i < len(ev.calls); i++ {
		// Allow a little scheduler slack below the nominal spacing.
		if gap := ev.calls[i].Sub(ev.calls[i-1]); gap < delay-5*time.Millisecond {
			t.Errorf("gap %d = %v, want >= %v", i, gap, delay)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]price.Evaluation{}}
	r := NewRunner(ev, &fakePoster{}, Config{Symbols: []string{"A", "B"}, Delay: time.Hour, Out: &bytes.Buffer{}}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}
