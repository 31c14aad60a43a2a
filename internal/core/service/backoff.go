package service

import (
	"context"
	"fmt"
	"math"
	"time"
)

// BackoffPolicy spaces out admission retries with capped exponential delays
// and full jitter. The zero value keeps the immediate busy retry.
type BackoffPolicy struct {
	Base   time.Duration
	Cap    time.Duration
	Factor float64
}

func (p BackoffPolicy) Enabled() bool {
	return p.Base > 0
}

func (p BackoffPolicy) validate() error {
	if !p.Enabled() {
		return nil
	}
	if p.Cap < 0 || (p.Cap > 0 && p.Cap < p.Base) {
		return fmt.Errorf("%w: backoff cap %v below base %v", ErrInvalidConfig, p.Cap, p.Base)
	}
	if p.Factor != 0 && p.Factor < 1 {
		return fmt.Errorf("%w: backoff factor %v below 1", ErrInvalidConfig, p.Factor)
	}
	return nil
}

type jitterer interface {
	Jitter(max time.Duration) time.Duration
}

// Ceiling is the largest delay the given failed attempt (1-based) may wait.
func (p BackoffPolicy) Ceiling(attempt int) time.Duration {
	if !p.Enabled() || attempt < 1 {
		return 0
	}
	factor := p.Factor
	if factor == 0 {
		factor = 2
	}
	d := float64(p.Base) * math.Pow(factor, float64(attempt-1))
	if p.Cap > 0 && d > float64(p.Cap) {
		return p.Cap
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p BackoffPolicy) Delay(attempt int, j jitterer) time.Duration {
	return j.Jitter(p.Ceiling(attempt))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
