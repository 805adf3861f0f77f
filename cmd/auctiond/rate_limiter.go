// rate_limiter.go - Rate limiting for bid submissions
package main

import (
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	mu           sync.Mutex
	tokens       int
	maxTokens    int
	refillRate   int
	lastRefill   time.Time
	refillPeriod time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxTokens int, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       maxTokens,
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		lastRefill:   time.Now(),
		refillPeriod: refillPeriod,
	}
}

// Allow checks if a request is allowed and consumes a token if so
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	refillCount := int(now.Sub(rl.lastRefill) / rl.refillPeriod)
	if refillCount > 0 {
		rl.tokens += refillCount * rl.refillRate
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// PrincipalRateLimiter manages rate limiting per bidding principal
type PrincipalRateLimiter struct {
	mu           sync.RWMutex
	limiters     map[string]*RateLimiter
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
}

// NewPrincipalRateLimiter creates a new per-principal rate limiter
func NewPrincipalRateLimiter(maxTokens int, refillRate int, refillPeriod time.Duration) *PrincipalRateLimiter {
	return &PrincipalRateLimiter{
		limiters:     make(map[string]*RateLimiter),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// Allow checks if a request from a principal is allowed
func (prl *PrincipalRateLimiter) Allow(principal string) bool {
	prl.mu.Lock()
	limiter, exists := prl.limiters[principal]
	if !exists {
		limiter = NewRateLimiter(prl.maxTokens, prl.refillRate, prl.refillPeriod)
		prl.limiters[principal] = limiter
	}
	prl.mu.Unlock()

	return limiter.Allow()
}
