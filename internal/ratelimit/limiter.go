// Package ratelimit implements a fixed-window request limiter shared
// across API instances through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// windowScript counts a request against KEYS[1] and returns
// {allowed, remaining, reset_unix}. The counter expires with the window.
var windowScript = redis.NewScript(`
local key = KEYS[1]
local max_requests = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local current = redis.call('GET', key)
if current == false then
	redis.call('SET', key, 1, 'EX', window)
	return {1, max_requests - 1, now + window}
end

current = tonumber(current)
local ttl = redis.call('TTL', key)
if ttl < 0 then
	redis.call('EXPIRE', key, window)
	ttl = window
end
if current < max_requests then
	redis.call('INCR', key)
	return {1, max_requests - current - 1, now + ttl}
end
return {0, 0, now + ttl}
`)

// Limiter allows maxRequests per key in each window.
type Limiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

// NewLimiter creates a limiter. Windows shorter than a second are rounded
// up to one second.
func NewLimiter(client *redis.Client, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		client:      client,
		maxRequests: maxRequests,
		window:      max(window, time.Second),
	}
}

// Allow counts one request for key and reports whether it is within the
// limit, how many requests remain and when the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	result, err := windowScript.Run(
		ctx,
		l.client,
		[]string{keyPrefix + key},
		l.maxRequests,
		int(l.window.Seconds()),
		time.Now().Unix(),
	).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseResult(result)
}

// MaxRequests returns the maximum number of requests per window
func (l *Limiter) MaxRequests() int {
	return l.maxRequests
}

func parseResult(result any) (bool, int, time.Time, error) {
	values, ok := result.([]any)
	if !ok || len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected rate limit result %v", result)
	}

	nums := make([]int64, 3)
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return false, 0, time.Time{}, fmt.Errorf("unexpected rate limit result %v", result)
		}
		nums[i] = n
	}

	return nums[0] == 1, int(nums[1]), time.Unix(nums[2], 0), nil
}
