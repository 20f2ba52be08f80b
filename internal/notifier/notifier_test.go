package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeSlack is a minimal stand-in for the Slack Web API.
type fakeSlack struct {
	mu        sync.Mutex
	calls     map[string]int
	failFirst int
	ts        int
}

func (f *fakeSlack) handler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.mu.Lock()
	f.calls[r.URL.Path]++
	n := f.calls[r.URL.Path]
	f.ts++
	ts := fmt.Sprintf("1700000000.%06d", f.ts)
	f.mu.Unlock()

	if n <= f.failFirst {
		http.Error(w, "upstream down", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	channel := r.Form.Get("channel")
	switch r.URL.Path {
	case "/chat.postMessage":
		if channel == "C_NOAUTH" {
			fmt.Fprint(w, `{"ok":false,"error":"invalid_auth"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"channel":%q,"ts":%q}`, channel, ts)
	case "/chat.update":
		if r.Form.Get("ts") == "gone" {
			fmt.Fprint(w, `{"ok":false,"error":"message_not_found"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"channel":%q,"ts":%q,"text":%q}`, channel, ts, r.Form.Get("text"))
	case "/conversations.open":
		fmt.Fprintf(w, `{"ok":true,"channel":{"id":"D_%s"}}`, r.Form.Get("users"))
	default:
		fmt.Fprint(w, `{"ok":false,"error":"unknown_method"}`)
	}
}

func (f *fakeSlack) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func setup(t *testing.T, failFirst int) (*Slack, *fakeSlack) {
	t.Helper()
	f := &fakeSlack{calls: make(map[string]int), failFirst: failFirst}
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	s := NewSlack(Config{
		Token:     "xoxb-test",
		APIURL:    srv.URL + "/",
		Attempts:  3,
		RetryBase: time.Millisecond,
		RetryMax:  5 * time.Millisecond,
	}, slog.Default())
	return s, f
}

func TestPost(t *testing.T) {
	s, f := setup(t, 0)

	ts, err := s.Post(context.Background(), "C1", "hello")
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if ts == "" {
		t.Error("Post returned empty message id")
	}
	if f.count("/chat.postMessage") != 1 {
		t.Errorf("postMessage calls = %d, want 1", f.count("/chat.postMessage"))
	}
}

func TestPostRetriesTransientFailure(t *testing.T) {
	s, f := setup(t, 2)

	if _, err := s.Post(context.Background(), "C1", "hello"); err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if got := f.count("/chat.postMessage"); got != 3 {
		t.Errorf("postMessage calls = %d, want 3", got)
	}
}

func TestPostGivesUpAfterAttempts(t *testing.T) {
	s, f := setup(t, 10)

	_, err := s.Post(context.Background(), "C1", "hello")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Post error = %v, want ErrTransport", err)
	}
	if got := f.count("/chat.postMessage"); got != 3 {
		t.Errorf("postMessage calls = %d, want 3", got)
	}
}

func TestPostAuthFailureNotRetried(t *testing.T) {
	s, f := setup(t, 0)

	_, err := s.Post(context.Background(), "C_NOAUTH", "hello")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Post error = %v, want ErrTransport", err)
	}
	if got := f.count("/chat.postMessage"); got != 1 {
		t.Errorf("postMessage calls = %d, want 1", got)
	}
}

func TestEdit(t *testing.T) {
	s, _ := setup(t, 0)

	ts, err := s.Edit(context.Background(), "C1", "1700000000.000001", "updated")
	if err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if ts == "" {
		t.Error("Edit returned empty message id")
	}
}

func TestEditStaleMessage(t *testing.T) {
	s, f := setup(t, 0)

	_, err := s.Edit(context.Background(), "C1", "gone", "updated")
	if !errors.Is(err, ErrNotFoundOnRemote) {
		t.Fatalf("Edit error = %v, want ErrNotFoundOnRemote", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("stale edit must not be reported as a transport error")
	}
	if got := f.count("/chat.update"); got != 1 {
		t.Errorf("chat.update calls = %d, want 1", got)
	}
}

func TestOpenDirect(t *testing.T) {
	s, _ := setup(t, 0)

	id, err := s.OpenDirect(context.Background(), "U1")
	if err != nil {
		t.Fatalf("OpenDirect error: %v", err)
	}
	if id != "D_U1" {
		t.Errorf("OpenDirect = %q, want D_U1", id)
	}
}

func TestCanceledContext(t *testing.T) {
	s, _ := setup(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Post(ctx, "C1", "hello"); !errors.Is(err, ErrTransport) {
		t.Errorf("Post error = %v, want ErrTransport", err)
	}
}

func TestRetryDelayBounded(t *testing.T) {
	s := NewSlack(Config{RetryBase: 100 * time.Millisecond, RetryMax: time.Second}, slog.Default())
	for attempt := 1; attempt <= 10; attempt++ {
		d := s.retryDelay(attempt)
		if d <= 0 || d > time.Second {
			t.Errorf("retryDelay(%d) = %v, want (0, 1s]", attempt, d)
		}
	}
}
