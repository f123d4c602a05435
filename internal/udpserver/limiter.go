package udpserver

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// perSourceLimiter hands out one token bucket per source IP, checked
// synchronously in the query loop itself — never from a goroutine, so it
// cannot reorder or delay the response it's guarding.
type perSourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newPerSourceLimiter(limit rate.Limit, burst int) *perSourceLimiter {
	return &perSourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *perSourceLimiter) allow(ip net.IP) bool {
	key := ip.String()

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
