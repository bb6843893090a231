package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
	mu       sync.Mutex
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewIPRateLimiter creates a limiter allowing r events per second with burst per client.
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether the client at ip may proceed now.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	v, ok := i.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.limiters[ip] = v
	}
	v.seen = i.now()
	i.mu.Unlock()

	return v.limiter.Allow()
}

// Len returns the number of tracked clients.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// Sweep forgets clients not seen since cutoff.
func (i *IPRateLimiter) Sweep(cutoff time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, v := range i.limiters {
		if v.seen.Before(cutoff) {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps clients idle longer than idle every interval until ctx is done.
func (i *IPRateLimiter) RunSweeper(ctx context.Context, idle, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			i.Sweep(now.Add(-idle))
		}
	}
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
