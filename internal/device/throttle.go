package device

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledAccessor rate-limits writes through an inner accessor so a
// burst of scene restores or flash steps cannot swamp the host. Reads
// pass through untouched.
type ThrottledAccessor struct {
	inner   Accessor
	limiter *rate.Limiter
}

// NewThrottled wraps an accessor with a write rate limit. rps <= 0
// disables limiting.
func NewThrottled(inner Accessor, rps float64) *ThrottledAccessor {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return &ThrottledAccessor{inner: inner, limiter: limiter}
}

func (t *ThrottledAccessor) ReadValue(ctx context.Context, entityID string) (Value, error) {
	return t.inner.ReadValue(ctx, entityID)
}

func (t *ThrottledAccessor) WriteValue(ctx context.Context, entityID string, value Value) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return t.inner.WriteValue(ctx, entityID, value)
}
