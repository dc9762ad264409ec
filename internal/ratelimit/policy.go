package ratelimit

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/settings"
)

// Policy maps each action to its budget; actions without a rule are not throttled.
type Policy map[Action]Rule

// Default budgets of the slow actions.
const (
	defaultSignInPerMinute    = 20
	defaultFeedbackPerMinute  = 5
	defaultSummarizePerMinute = 6
)

// DefaultPolicy uses perSecond for the interactive actions; zero means the built-in default.
func DefaultPolicy(perSecond int) Policy {
	if perSecond <= 0 {
		perSecond = settings.DefaultRequestRateLimit
	}
	return Policy{
		ActionSignIn:    {Limit: defaultSignInPerMinute, Window: time.Minute},
		ActionWrite:     {Limit: perSecond, Window: time.Second},
		ActionLike:      {Limit: perSecond, Window: time.Second},
		ActionFollow:    {Limit: perSecond, Window: time.Second},
		ActionFeedback:  {Limit: defaultFeedbackPerMinute, Window: time.Minute},
		ActionSummarize: {Limit: defaultSummarizePerMinute, Window: time.Minute},
	}
}

// PolicyFromConfig builds the policy of the rate-limit config section.
func PolicyFromConfig(cfg config.RateLimitConfig) Policy {
	policy := DefaultPolicy(cfg.Limit)
	if cfg.SignInPerMinute > 0 {
		policy[ActionSignIn] = Rule{Limit: cfg.SignInPerMinute, Window: time.Minute}
	}
	if cfg.FeedbackPerMinute > 0 {
		policy[ActionFeedback] = Rule{Limit: cfg.FeedbackPerMinute, Window: time.Minute}
	}
	if cfg.SummarizePerMinute > 0 {
		policy[ActionSummarize] = Rule{Limit: cfg.SummarizePerMinute, Window: time.Minute}
	}
	return policy
}

// RedisFromConfig returns the shared counter backend, or nil when redis is off.
func RedisFromConfig(cfg config.RedisConfig) *RedisLimiter {
	addr := strings.TrimSpace(cfg.Addr)
	if !cfg.Enable || addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       max(cfg.DB, 0),
	})
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = config.DefaultRateLimitRedisPrefix
	}
	return NewRedisLimiter(client, prefix)
}
