package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunOnce(_ context.Context) error {
	r.calls.Add(1)
	return r.err
}

type blockingRunner struct {
	started chan struct{}
	ctxErr  chan error
}

func (r *blockingRunner) RunOnce(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	r.ctxErr <- ctx.Err()
	return ctx.Err()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	r := &countingRunner{}
	s := New(r, 50*time.Millisecond, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 500*time.Millisecond, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_FailuresDoNotStopSchedule(t *testing.T) {
	r := &countingRunner{err: errors.New("export failed")}
	s := New(r, 20*time.Millisecond, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StopCancelsRunningExport(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), ctxErr: make(chan error, 1)}
	s := New(r, time.Hour, discardLogger())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-r.started:
	case <-time.After(time.Second):
		t.Fatal("export did not start")
	}
	s.Stop()

	select {
	case err := <-r.ctxErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("running export was not cancelled")
	}
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := New(&countingRunner{}, 0, discardLogger())
	assert.Error(t, s.Start(context.Background()))
}
