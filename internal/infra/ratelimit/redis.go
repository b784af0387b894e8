package ratelimit

import (
	"context"
	"errors"
	"time"

	"palisade/internal/domain"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces limiter counters inside a shared redis,
// so the "rl:<tenant>" keys from Key cannot collide with other services.
const DefaultRedisKeyPrefix = "palisade:"

// windowScript opens or advances one fixed window atomically: INCR the
// counter, arm the TTL only on the call that opened the window, and report
// both so the decision can be made client-side without a second trip.
var windowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

type RedisLimiterConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix defaults to DefaultRedisKeyPrefix.
	KeyPrefix string
	Now       func() time.Time
}

type redisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter returns a limiter that coordinates the fixed window
// across replicas through redis. Keys are the tenant/subject keys built by
// Key, namespaced under the configured prefix.
func NewRedisLimiter(cfg RedisLimiterConfig) (domain.RateLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisLimiter{client: client, prefix: cfg.KeyPrefix, now: cfg.Now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, span time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	spanMillis := span.Milliseconds()
	if spanMillis <= 0 {
		spanMillis = 1000
	}
	result, err := windowScript.Run(ctx, r.client, []string{r.prefix + key}, spanMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	hits, ttlMillis, err := decodeWindow(result)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	resetAt := r.now()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(hits)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   hits <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// decodeWindow unpacks the {hits, pttl} pair the script returns.
func decodeWindow(result any) (hits, ttlMillis int64, err error) {
	values, ok := result.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("unexpected rate limit script response")
	}
	hits, ok = values[0].(int64)
	if !ok {
		return 0, 0, errors.New("invalid rate limit counter")
	}
	ttlMillis, _ = values[1].(int64)
	return hits, ttlMillis, nil
}
