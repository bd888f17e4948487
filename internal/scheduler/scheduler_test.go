package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/recurring"
)

type fakeProcessor struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (p *fakeProcessor) ProcessDue(ctx context.Context, _ time.Time) (recurring.Report, error) {
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
		}
	}
	return recurring.Report{Processed: 1, Succeeded: 1}, p.err
}

func TestRunOnce(t *testing.T) {
	proc := &fakeProcessor{}
	s := New(proc, NewLocalLocker(), config.SchedulerConfig{}, nil)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.EqualValues(t, 1, proc.calls.Load())

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err, "lock released after each pass")
	assert.EqualValues(t, 2, proc.calls.Load())
}

func TestRunOnce_LockHeld(t *testing.T) {
	proc := &fakeProcessor{}
	locker := NewLocalLocker()
	s := New(proc, locker, config.SchedulerConfig{LockKey: "tick"}, nil)

	_, err := locker.Acquire(context.Background(), "tick", time.Minute)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Zero(t, proc.calls.Load())
}

func TestRunOnce_ProcessorError(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("db down")}
	s := New(proc, NewLocalLocker(), config.SchedulerConfig{}, nil)

	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")

	proc.err = nil
	_, err = s.RunOnce(context.Background())
	assert.NoError(t, err, "lock released after a failed pass")
}

func TestRunOnce_SharedRedisLock(t *testing.T) {
	_, locker := newRedis(t)
	proc := &fakeProcessor{block: make(chan struct{})}
	a := New(proc, locker, config.SchedulerConfig{}, nil)
	b := New(proc, locker, config.SchedulerConfig{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := a.RunOnce(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := b.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)

	close(proc.block)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, proc.calls.Load())
}

func TestRun(t *testing.T) {
	proc := &fakeProcessor{}
	s := New(proc, NewLocalLocker(), config.SchedulerConfig{Spec: "@every 1s"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return proc.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRun_BadSpec(t *testing.T) {
	s := New(&fakeProcessor{}, NewLocalLocker(), config.SchedulerConfig{Spec: "every tuesday"}, nil)
	assert.Error(t, s.Run(context.Background()))
}
