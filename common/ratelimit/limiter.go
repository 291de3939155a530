package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64 // 0 if allowed
}

// RateLimiter is a Redis fixed-window limiter evaluated atomically in Lua
type RateLimiter struct {
	redis  *redis.Client
	script *redis.Script
	tiers  Tiers
	logger Logger
}

// NewRateLimiter creates a new rate limiter with the embedded Lua script
func NewRateLimiter(redisClient *redis.Client, tiers Tiers, logger Logger) *RateLimiter {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		tiers:  tiers,
		logger: logger,
	}
}

// CheckUserLimit checks a plain per-user request limit
func (r *RateLimiter) CheckUserLimit(ctx context.Context, userID string, limit int64, windowSec int) (*RateLimitResult, error) {
	key := fmt.Sprintf("rate_limit:user:%s", userID)
	return r.checkLimit(ctx, key, limit, windowSec)
}

// CheckTieredLimit checks the run submission limit of a user for one tier.
// Tiers keep separate counters so smoke runs are never blocked by pipeline runs.
func (r *RateLimiter) CheckTieredLimit(ctx context.Context, userID string, tier Tier) (*RateLimitResult, error) {
	cfg := r.tiers.For(tier)
	key := fmt.Sprintf("rate_limit:user:%s:tier:%s", userID, cfg.Tier)
	return r.checkLimit(ctx, key, cfg.Limit, cfg.WindowSeconds)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int64, windowSec int) (*RateLimitResult, error) {
	result, err := r.script.Run(ctx, r.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		r.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return parseScriptResult(key, limit, result, r.logger)
}

func parseScriptResult(key string, limit int64, result interface{}, logger Logger) (*RateLimitResult, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	ints := make([]int64, 4)
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected script result element %d: %T", i, v)
		}
		ints[i] = n
	}

	res := &RateLimitResult{
		Allowed:           ints[0] == 1,
		CurrentCount:      ints[1],
		Limit:             ints[2],
		RetryAfterSeconds: ints[3],
	}

	if !res.Allowed {
		logger.Warn("rate limit exceeded",
			"key", key,
			"current", res.CurrentCount,
			"limit", limit,
			"retry_after", res.RetryAfterSeconds)
	} else {
		logger.Debug("rate limit check passed",
			"key", key,
			"current", res.CurrentCount,
			"limit", limit)
	}

	return res, nil
}

// ResetLimit clears a user's tier counter
func (r *RateLimiter) ResetLimit(ctx context.Context, userID string, tier Tier) error {
	key := fmt.Sprintf("rate_limit:user:%s:tier:%s", userID, tier)
	return r.redis.Del(ctx, key).Err()
}
