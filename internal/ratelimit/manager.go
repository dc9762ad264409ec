// Package ratelimit throttles diary actions per caller with fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// breakerCooldown keeps checks in memory after a redis failure.
const breakerCooldown = 30 * time.Second

// Manager applies a Policy on redis when available and in memory otherwise.
type Manager struct {
	policy Policy
	memory *MemoryLimiter
	redis  *RedisLimiter
	now    func() time.Time

	mu           sync.Mutex
	breakerUntil time.Time
}

// NewManager constructs a Manager; shared may be nil.
func NewManager(policy Policy, shared *RedisLimiter) *Manager {
	if policy == nil {
		policy = DefaultPolicy(0)
	}
	return &Manager{policy: policy, memory: NewMemoryLimiter(), redis: shared, now: time.Now}
}

// Take counts one action of caller and reports whether it may proceed.
func (m *Manager) Take(ctx context.Context, action Action, caller Caller) (Decision, Result) {
	if m == nil {
		return Decision{Action: action}, Result{Allowed: true}
	}
	d := m.policy.Decide(action, caller)
	if d.Key == "" {
		return d, Result{Allowed: true}
	}
	now := m.now()
	if m.redis != nil && !m.breakerOpen(now) {
		res, errTake := m.redis.Take(ctx, d, now)
		if errTake == nil {
			return d, res
		}
		m.trip(errTake, now)
	}
	return d, m.memory.Take(d, now)
}

// Close releases the redis backend.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.redis.Close()
}

func (m *Manager) breakerOpen(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Before(m.breakerUntil)
}

func (m *Manager) trip(err error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.breakerUntil) {
		return
	}
	m.breakerUntil = now.Add(breakerCooldown)
	log.WithError(err).Warn("ratelimit: redis unavailable, counting in memory")
}
