// Package ratelimit throttles mutating API calls per authenticated
// credential with a Redis-backed token bucket.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a distributed token bucket. State lives in Redis so every API
// replica shares the same budget per credential.
type Limiter struct {
	client   *redis.Client
	capacity int
	refill   float64 // tokens per second
	ttl      time.Duration
}

// NewLimiter constructs a bucket with the provided capacity and refill rate.
func NewLimiter(client *redis.Client, capacity int, refillPerSecond float64, ttl time.Duration) *Limiter {
	return &Limiter{
		client:   client,
		capacity: capacity,
		refill:   refillPerSecond,
		ttl:      ttl,
	}
}

// KeyFor scopes a bucket to one credential.
func KeyFor(credentialID string) string {
	return "rl:credential:" + credentialID
}

// Allow consumes one token for the key if available, returning the allowed
// flag and the remaining token count.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, float64, error) {
	now := time.Now().UnixMilli()
	res, err := bucketScript.Run(ctx, l.client, []string{key}, l.capacity, l.refill, now, l.ttl.Milliseconds()).Result()
	if err != nil {
		return false, 0, err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return false, 0, err
	}
	allowed := arr[0].(int64) == 1
	var tokens float64
	switch v := arr[1].(type) {
	case int64:
		tokens = float64(v)
	case float64:
		tokens = v
	}
	return allowed, tokens, nil
}

// The bucket refills continuously based on wall-clock delta since the last
// call, clamped to capacity.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(data[1])
local last = tonumber(data[2])
if tokens == nil then tokens = capacity end
if last == nil then last = now end

tokens = math.min(capacity, tokens + math.max(0, now - last) / 1000 * refill)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call('HMSET', key, 'tokens', tokens, 'last_ms', now)
if ttl > 0 then redis.call('PEXPIRE', key, ttl) end
return {allowed, tokens}
`)
