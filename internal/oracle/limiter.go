package oracle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces oracle calls. Wait blocks until the next call may start.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewIntervalLimiter admits one call per interval across the whole batch,
// whether or not earlier calls succeeded. A non-positive interval disables pacing.
func NewIntervalLimiter(interval time.Duration) Limiter {
	if interval <= 0 {
		return Unlimited()
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Unlimited returns a Limiter that never blocks.
func Unlimited() Limiter {
	return unlimited{}
}
