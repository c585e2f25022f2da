package poll

import (
	"context"
	"time"
)

// Probe inspects the current state once. It returns found=false when the
// target is not there yet; err is reserved for faults that make further
// probing pointless.
type Probe[T any] func(ctx context.Context) (value T, found bool, err error)

// Budget bounds a polling loop.
type Budget struct {
	Interval    time.Duration
	MaxAttempts int
}

// Total is the longest time the budget can wait.
func (b Budget) Total() time.Duration {
	if b.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(b.MaxAttempts-1) * b.Interval
}

// UntilPresent runs probe up to b.MaxAttempts times. The first attempt fires
// immediately and every later one waits b.Interval. It stops on the first
// hit. Exhaustion returns found=false and a nil error.
func UntilPresent[T any](ctx context.Context, clock Clock, b Budget, probe Probe[T]) (T, bool, error) {
	var zero T
	attempts := max(b.MaxAttempts, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := clock.Sleep(ctx, b.Interval); err != nil {
				return zero, false, err
			}
		}

		value, found, err := probe(ctx)
		if err != nil {
			return zero, false, err
		}
		if found {
			return value, true, nil
		}
	}

	return zero, false, nil
}

// SettleThenProbe waits delay once, then probes once. It is meant for the
// step right after an action that is expected to change the view.
func SettleThenProbe[T any](ctx context.Context, clock Clock, delay time.Duration, probe Probe[T]) (T, bool, error) {
	var zero T
	if err := clock.Sleep(ctx, delay); err != nil {
		return zero, false, err
	}
	return probe(ctx)
}
