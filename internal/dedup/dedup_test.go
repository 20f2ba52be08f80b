package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestDedup(t *testing.T) (*Deduplicator, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	d, err := New("redis://"+mr.Addr(), "", time.Minute)
	if err != nil {
		mr.Close()
		t.Fatalf("New: %v", err)
	}
	return d, mr
}

func TestClaimFirstTime(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ok, err := d.Claim(context.Background(), "Ev1")
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if !ok {
		t.Error("Claim should succeed for a new event")
	}
}

func TestClaimDuplicate(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	_, _ = d.Claim(ctx, "Ev2")
	ok, err := d.Claim(ctx, "Ev2")
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if ok {
		t.Error("second Claim for the same event should fail")
	}
}

func TestClaimExpires(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	_, _ = d.Claim(ctx, "Ev3")
	mr.FastForward(2 * time.Minute)

	ok, err := d.Claim(ctx, "Ev3")
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if !ok {
		t.Error("Claim should succeed again after the TTL")
	}
}

func TestClaimRedisDown(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer d.Close()

	mr.Close()

	if _, err := d.Claim(context.Background(), "any"); err == nil {
		t.Error("Claim should report an error when Redis is down")
	}
}

func TestNewBadURL(t *testing.T) {
	if _, err := New("not-a-url", "", time.Minute); err == nil {
		t.Error("New should reject an invalid URL")
	}
}
