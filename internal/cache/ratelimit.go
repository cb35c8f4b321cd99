package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket identifies one token bucket and its refill policy.
type bucket struct {
	key   string
	rate  float64 // tokens per second
	burst int
	idle  time.Duration // state expires after this long without requests
}

func userBucket(userID string, perMinute, burst int) bucket {
	return bucket{
		key:   "ratelimit:user:" + userID,
		rate:  float64(perMinute) / 60,
		burst: burst,
		idle:  2 * time.Minute,
	}
}

// ipBucket keys by a digest of the address so raw client IPs never reach
// Redis.
func ipBucket(scope, ip string, perSecond, burst int) bucket {
	sum := sha256.Sum256([]byte(ip))
	return bucket{
		key:   "ratelimit:ip:" + scope + ":" + hex.EncodeToString(sum[:8]),
		rate:  float64(perSecond),
		burst: burst,
		idle:  10 * time.Second,
	}
}

// takeScript refills the bucket for the elapsed milliseconds and removes one
// token if it can, atomically. It returns {allowed, retry_ms, remaining}.
var takeScript = redis.NewScript(`
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed, retry = 0, 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	retry = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {allowed, retry, math.floor(tokens)}
`)

// CheckUserRateLimit takes one token from an authenticated user's bucket.
// A zero rate means unlimited.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	return c.take(ctx, userBucket(userID, ratePerMinute, burst))
}

// CheckIPRateLimit takes one token from a client IP's bucket within scope
// (for example "auth"). A zero rate means unlimited.
func (c *Cache) CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, ipBucket(scope, ip, ratePerSecond, burst))
}

func (c *Cache) take(ctx context.Context, b bucket) (*RateLimitResult, error) {
	now := time.Now()
	if b.rate <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(b.burst), ResetAt: now.Add(time.Minute)}, nil
	}

	out, err := takeScript.Run(ctx, c.client, []string{b.key},
		b.rate, b.burst, now.UnixMilli(), b.idle.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("take token %s: %w", b.key, err)
	}

	return &RateLimitResult{
		Allowed:    out[0] == 1,
		Remaining:  out[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / b.rate)),
		RetryAfter: time.Duration(out[1]) * time.Millisecond,
	}, nil
}
