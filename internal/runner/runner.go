// Package runner provides a generic bounded-concurrency fan-out executor.
// It runs a batch of independent work items under a hard in-flight cap,
// optionally holds each worker slot for a fixed spacing after completion
// (for providers that meter requests per minute), retries transient errors
// with exponential backoff, and returns results in input order regardless
// of completion order. The first item that fails permanently cancels the
// batch; sibling results are discarded.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config tunes one fan-out batch.
type Config struct {
	// MaxConcurrency is the hard cap on simultaneously active workers.
	// Values below 1 are treated as 1.
	MaxConcurrency int

	// Spacing, when set, keeps a worker slot occupied for this long after
	// the worker completes, throttling slot reuse.
	Spacing time.Duration

	// Backoff governs retries of transient worker errors. The zero value
	// means a single attempt with no retry.
	Backoff BackoffPolicy
}

// Worker processes one input item. It must honor ctx cancellation on
// blocking operations.
type Worker[I, O any] func(ctx context.Context, item I) (O, error)

// PermanentError is the terminal failure of a single item, carrying how
// many attempts were made and the last error observed.
type PermanentError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("item %d failed after %d attempt(s): %v", e.Index, e.Attempts, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Run executes worker over items and returns outputs such that out[i] is the
// result for items[i]. On the first permanently failed item, Run cancels the
// remaining work and returns that item's PermanentError (or ctx's error if
// the context was cancelled externally first).
func Run[I, O any](ctx context.Context, items []I, cfg Config, worker Worker[I, O]) ([]O, error) {
	out := make([]O, len(items))
	if len(items) == 0 {
		return out, nil
	}

	maxConc := cfg.MaxConcurrency
	if maxConc < 1 {
		maxConc = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	slots := make(chan struct{}, maxConc)
	for i := range items {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer releaseSlot(ctx, slots, cfg.Spacing)

			res, err := runItem(ctx, i, items[i], cfg.Backoff, worker)
			if err != nil {
				fail(err)
				return
			}
			out[i] = res
		}(i)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// runItem drives the retry loop for a single item.
func runItem[I, O any](ctx context.Context, index int, item I, policy BackoffPolicy, worker Worker[I, O]) (O, error) {
	var (
		zero O
		last error
	)

	maxAttempts := policy.attempts()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := worker(ctx, item)
		if err == nil {
			return res, nil
		}
		if !IsTransient(err) {
			return zero, &PermanentError{Index: index, Attempts: attempt + 1, Err: err}
		}
		last = err

		if attempt+1 < maxAttempts {
			if err := sleep(ctx, policy.Delay(attempt)); err != nil {
				return zero, err
			}
		}
	}

	return zero, &PermanentError{Index: index, Attempts: maxAttempts, Err: last}
}

// releaseSlot frees a worker slot, holding it for the configured spacing
// first. Cancellation skips the hold so a failed batch drains promptly.
func releaseSlot(ctx context.Context, slots chan struct{}, spacing time.Duration) {
	if spacing > 0 {
		_ = sleep(ctx, spacing)
	}
	<-slots
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
