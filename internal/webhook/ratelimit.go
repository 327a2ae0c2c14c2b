package webhook

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedAccounts caps the limiter table so rotating account ids cannot
// grow it without bound.
const maxTrackedAccounts = 4096

// accountLimiter keeps one token bucket per gateway account.
type accountLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newAccountLimiter(perSecond float64, burst int) *accountLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &accountLimiter{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (a *accountLimiter) Allow(account string) bool {
	a.mu.Lock()
	l, ok := a.limiters[account]
	if !ok {
		if len(a.limiters) >= maxTrackedAccounts {
			for k := range a.limiters {
				delete(a.limiters, k)
				break
			}
		}
		l = rate.NewLimiter(a.limit, a.burst)
		a.limiters[account] = l
	}
	a.mu.Unlock()
	return l.Allow()
}
