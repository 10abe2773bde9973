package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisLimiter(mr.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	defer limiter.Close()
	ctx := context.Background()
	if !limiter.Allow(ctx, "client-1") || !limiter.Allow(ctx, "client-1") {
		t.Fatalf("first two attempts should pass")
	}
	if limiter.Allow(ctx, "client-1") {
		t.Fatalf("third attempt should be blocked")
	}
	if !limiter.Allow(ctx, "client-2") {
		t.Fatalf("other clients keep their own quota")
	}
}

func TestRedisLimiterFailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisLimiter(mr.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	mr.Close()
	if limiter.Allow(context.Background(), "client-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestMemoryLimiterResetsEachWindow(t *testing.T) {
	limiter, err := NewMemoryLimiter(1, time.Minute)
	if err != nil {
		t.Fatalf("new memory limiter: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	if !limiter.Allow(ctx, " ") {
		t.Fatalf("first attempt should pass")
	}
	if limiter.Allow(ctx, "unknown") {
		t.Fatalf("blank key shares the unknown bucket")
	}
	now = now.Add(time.Minute)
	if !limiter.Allow(ctx, "unknown") {
		t.Fatalf("new window should reset the count")
	}
}

func TestConstructorsValidate(t *testing.T) {
	if _, err := NewMemoryLimiter(0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewRedisLimiter("", "", "", 1, time.Second); err == nil {
		t.Fatalf("expected error for empty redis addr")
	}
	if _, err := NewRedisLimiter("localhost:6379", "", "", 1, 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
