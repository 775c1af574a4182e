package txn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

var ErrInvalidPolicy = errors.New("txn: invalid retry policy")

// Policy bounds how often a guarded transaction is re-run after losing a race.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   25 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidPolicy, p.MaxAttempts)
	case p.BaseDelay < 0 || p.MaxDelay < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidPolicy)
	case p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay:
		return fmt.Errorf("%w: base delay %s exceeds max delay %s", ErrInvalidPolicy, p.BaseDelay, p.MaxDelay)
	}
	return nil
}

// Delay returns the pause before retry n (1 for the first retry): a random
// duration in [0, min(BaseDelay*2^(n-1), MaxDelay)).
func (p Policy) Delay(retry int) time.Duration {
	d := exponential(p.BaseDelay, retry-1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return fullJitter(d)
}

const maxShift = 62

func exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}
	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}
	return base * time.Duration(multiplier)
}

func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d))) // #nosec G404 -- jitter, not a secret
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
