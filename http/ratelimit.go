package http

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

var _ Limiter = (*HostLimiter)(nil)

// HostLimiter spaces out fetches to the same host so that capturing many
// links from one site does not hammer it. Each host has its own bucket
// holding a single token, refilled at the configured rate. A rate of zero or
// less turns throttling off.
type HostLimiter struct {
	perSecond float64

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// NewHostLimiter returns a HostLimiter allowing perSecond fetches per host.
func NewHostLimiter(perSecond float64) *HostLimiter {
	return &HostLimiter{
		perSecond: perSecond,
		hosts:     make(map[string]*rate.Limiter),
	}
}

// Wait blocks until host may be fetched again or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l.perSecond <= 0 {
		return ctx.Err()
	}
	return l.bucket(host).Wait(ctx)
}

func (l *HostLimiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.hosts[host]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.perSecond), 1)
		l.hosts[host] = b
	}
	return b
}
