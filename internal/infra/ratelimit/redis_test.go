package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRedisLimiterDefaults(t *testing.T) {
	if _, err := NewRedisLimiter(RedisLimiterConfig{}); err == nil {
		t.Fatal("expected error without an addr")
	}

	limiter, err := NewRedisLimiter(RedisLimiterConfig{Addr: "localhost:6379"})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	rl := limiter.(*redisLimiter)
	if rl.prefix != DefaultRedisKeyPrefix {
		t.Fatalf("prefix = %q, want %q", rl.prefix, DefaultRedisKeyPrefix)
	}
	if rl.now == nil {
		t.Fatal("now func not defaulted")
	}

	limiter, err = NewRedisLimiter(RedisLimiterConfig{Addr: "localhost:6379", KeyPrefix: "edge:"})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if got := limiter.(*redisLimiter).prefix; got != "edge:" {
		t.Fatalf("prefix = %q, want edge:", got)
	}
}

func TestDecodeWindow(t *testing.T) {
	cases := []struct {
		name    string
		in      any
		hits    int64
		ttl     int64
		wantErr bool
	}{
		{"hits and ttl", []any{int64(3), int64(4500)}, 3, 4500, false},
		{"missing ttl treated as zero", []any{int64(1), "PTTL"}, 1, 0, false},
		{"not a pair", []any{int64(1)}, 0, 0, true},
		{"not a slice", "oops", 0, 0, true},
		{"counter wrong type", []any{"3", int64(4500)}, 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hits, ttl, err := decodeWindow(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("decodeWindow(%v) expected error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeWindow(%v): %v", tc.in, err)
			}
			if hits != tc.hits || ttl != tc.ttl {
				t.Fatalf("decodeWindow(%v) = %d/%d, want %d/%d", tc.in, hits, ttl, tc.hits, tc.ttl)
			}
		})
	}
}

func TestRedisLimiterZeroLimitAllows(t *testing.T) {
	limiter, err := NewRedisLimiter(RedisLimiterConfig{Addr: "localhost:6379"})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	// No round trip happens when limiting is off, so no server is needed.
	decision, err := limiter.Allow(context.Background(), Key("acme", ""), 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("zero limit must allow")
	}
}
