package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces portal round trips at a fixed minimum interval. It replaces
// scattered sleeps with a token bucket so callers block only as long as the
// remote actually requires.
type Pacer struct {
	limiter *rate.Limiter
}

// New builds a pacer that releases one permit per interval. A zero or
// negative interval disables pacing.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next permit or until the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
