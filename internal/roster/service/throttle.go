package service

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLoginAttemptsPerMinute matches a strict brute-force profile: five
// attempts, all available as a burst.
const DefaultLoginAttemptsPerMinute = 5

// LoginThrottle keeps one token bucket per username.
type LoginThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	now func() time.Time
}

// NewLoginThrottle allows perMinute attempts per username per minute. A value
// of zero or less uses DefaultLoginAttemptsPerMinute.
func NewLoginThrottle(perMinute int) *LoginThrottle {
	if perMinute <= 0 {
		perMinute = DefaultLoginAttemptsPerMinute
	}
	return &LoginThrottle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:    perMinute,
		now:      time.Now,
	}
}

func throttleKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Allow spends one attempt for username and reports whether it was available.
func (t *LoginThrottle) Allow(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := throttleKey(username)
	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = limiter
	}
	return limiter.AllowN(t.now(), 1)
}

// Prune drops limiters whose bucket has refilled, meaning the username has
// been idle long enough that forgetting it changes nothing. It returns the
// number removed.
func (t *LoginThrottle) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, limiter := range t.limiters {
		if limiter.TokensAt(now) >= float64(t.burst) {
			delete(t.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of usernames currently tracked.
func (t *LoginThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
