package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type throttleErr struct{ msg string }

func (e *throttleErr) Error() string   { return e.msg }
func (e *throttleErr) Transient() bool { return true }

func TestRun_PreservesInputOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}

	// Later items finish first.
	out, err := Run(context.Background(), items, Config{MaxConcurrency: 8}, func(ctx context.Context, n int) (string, error) {
		time.Sleep(time.Duration(len(items)-n) * 5 * time.Millisecond)
		return fmt.Sprintf("item-%d", n), nil
	})

	require.NoError(t, err)
	require.Len(t, out, len(items))
	for i := range items {
		assert.Equal(t, fmt.Sprintf("item-%d", i), out[i])
	}
}

func TestRun_EmptyInput(t *testing.T) {
	out, err := Run(context.Background(), nil, Config{MaxConcurrency: 4}, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	const maxConc = 3
	var active, peak int64

	items := make([]int, 40)
	_, err := Run(context.Background(), items, Config{MaxConcurrency: maxConc}, func(ctx context.Context, n int) (int, error) {
		cur := atomic.AddInt64(&active, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return n, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(maxConc))
	assert.Greater(t, atomic.LoadInt64(&peak), int64(0))
}

func TestRun_TransientRetrySucceeds(t *testing.T) {
	const failures = 3
	var calls int32

	cfg := Config{
		MaxConcurrency: 1,
		Backoff:        BackoffPolicy{Base: time.Millisecond, MaxAttempts: 5},
	}
	out, err := Run(context.Background(), []string{"a"}, cfg, func(ctx context.Context, s string) (string, error) {
		if atomic.AddInt32(&calls, 1) <= failures {
			return "", &throttleErr{msg: "429 rate limited"}
		}
		return s + "-ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a-ok"}, out)
	assert.EqualValues(t, failures+1, atomic.LoadInt32(&calls))
}

func TestRun_TransientRetryExhausted(t *testing.T) {
	cfg := Config{
		MaxConcurrency: 1,
		Backoff:        BackoffPolicy{Base: time.Millisecond, MaxAttempts: 4},
	}
	_, err := Run(context.Background(), []string{"a"}, cfg, func(ctx context.Context, s string) (string, error) {
		return "", &throttleErr{msg: "429 rate limited"}
	})

	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, 0, perm.Index)
	assert.Equal(t, 4, perm.Attempts)
	assert.True(t, IsTransient(perm.Err))
}

func TestRun_NonTransientFailsImmediately(t *testing.T) {
	var calls int32
	cfg := Config{
		MaxConcurrency: 1,
		Backoff:        BackoffPolicy{Base: time.Millisecond, MaxAttempts: 5},
	}
	_, err := Run(context.Background(), []int{7}, cfg, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("bad input")
	})

	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, 1, perm.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRun_FailFastCancelsSiblings(t *testing.T) {
	var cancelled int32
	items := []int{0, 1, 2, 3}

	_, err := Run(context.Background(), items, Config{MaxConcurrency: 4}, func(ctx context.Context, n int) (int, error) {
		if n == 1 {
			time.Sleep(10 * time.Millisecond)
			return 0, errors.New("boom")
		}
		select {
		case <-ctx.Done():
			atomic.AddInt32(&cancelled, 1)
			return 0, ctx.Err()
		case <-time.After(2 * time.Second):
			return n, nil
		}
	})

	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, 1, perm.Index)
	assert.Greater(t, atomic.LoadInt32(&cancelled), int32(0))
}

func TestRun_SpacingHoldsSlot(t *testing.T) {
	const spacing = 30 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time

	cfg := Config{MaxConcurrency: 1, Spacing: spacing}
	_, err := Run(context.Background(), []int{0, 1, 2}, cfg, func(ctx context.Context, n int) (int, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return n, nil
	})

	require.NoError(t, err)
	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, spacing-5*time.Millisecond, "start %d followed too quickly", i)
	}
}

func TestRun_ExternalCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, []int{0, 1}, Config{MaxConcurrency: 1}, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoffPolicy_Delay(t *testing.T) {
	p := BackoffPolicy{Base: 2 * time.Second, MaxAttempts: 5}
	assert.Equal(t, 2*time.Second, p.Delay(0))
	assert.Equal(t, 4*time.Second, p.Delay(1))
	assert.Equal(t, 8*time.Second, p.Delay(2))
	assert.Equal(t, 16*time.Second, p.Delay(3))
}
