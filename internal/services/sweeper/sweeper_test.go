package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWagers struct {
	expired, paired int
	err             error
	gotWait         time.Duration
	gotLimit        int
	calls           atomic.Int32
}

func (f *fakeWagers) CancelExpired(_ context.Context, maxWait time.Duration, limit int) (int, error) {
	f.calls.Add(1)
	f.gotWait, f.gotLimit = maxWait, limit
	return f.expired, f.err
}

func (f *fakeWagers) RetryPending(_ context.Context, _ int) (int, error) {
	return f.paired, nil
}

type fakeMatches struct {
	disputed, settled int
}

func (f *fakeMatches) DisputeOverdue(context.Context, int) (int, error) { return f.disputed, nil }
func (f *fakeMatches) ResumeSettling(context.Context, int) (int, error) { return f.settled, nil }

func TestSweep_RunsEveryStep(t *testing.T) {
	t.Parallel()

	w := &fakeWagers{expired: 2, paired: 1}
	m := &fakeMatches{disputed: 3, settled: 4}
	s := New(w, m, Config{Interval: time.Second, WagerWait: 10 * time.Minute})

	r := s.Sweep(t.Context())
	assert.Equal(t, Report{Expired: 2, Paired: 1, Disputed: 3, Settled: 4}, r)
	assert.Equal(t, 10*time.Minute, w.gotWait)
	assert.Equal(t, 100, w.gotLimit)
}

func TestSweep_FailingStepDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	w := &fakeWagers{err: errors.New("db down"), paired: 1}
	m := &fakeMatches{disputed: 1}
	s := New(w, m, Config{Interval: time.Second, Batch: 5})

	r := s.Sweep(t.Context())
	assert.Equal(t, Report{Paired: 1, Disputed: 1}, r)
}

func TestRun_TicksUntilCanceled(t *testing.T) {
	t.Parallel()

	w := &fakeWagers{}
	s := New(w, &fakeMatches{}, Config{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return w.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_RejectsZeroInterval(t *testing.T) {
	t.Parallel()

	err := New(&fakeWagers{}, &fakeMatches{}, Config{}).Run(t.Context())
	require.Error(t, err)
}
