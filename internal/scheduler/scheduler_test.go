package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"codeberg.org/mutker/acdcbright/internal/errors"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

type recorder struct {
	mu   sync.Mutex
	cmds []string
}

func (r *recorder) exec(_ context.Context, cmd string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...)
}

func startScheduler(t *testing.T, exec Executor[string], opts ...Option) (*Scheduler[string], *clockz.FakeClock) {
	t.Helper()

	clock := clockz.NewFakeClock()
	s := New(exec, append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	return s, clock
}

func waitReceived(t *testing.T, s *Scheduler[string], n uint64) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Received() == n }, waitFor, tick)
}

func waitExecuted(t *testing.T, s *Scheduler[string], n uint64) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Executed() == n }, waitFor, tick)
}

func TestIdleRunsNothing(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	assert.Equal(t, Idle, s.State())
	clock.Advance(time.Hour)
	clock.BlockUntilReady()

	assert.Never(t, func() bool { return s.Executed() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, rec.got())
}

func TestFiresOnceAfterDelay(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	require.NoError(t, s.Submit("a", 500*time.Millisecond))
	waitReceived(t, s, 1)
	assert.Equal(t, Armed, s.State())

	clock.Advance(499 * time.Millisecond)
	assert.Equal(t, uint64(0), s.Executed())

	clock.Advance(time.Millisecond)
	clock.BlockUntilReady()
	waitExecuted(t, s, 1)

	assert.Equal(t, []string{"a"}, rec.got())
	assert.Equal(t, Idle, s.State())

	clock.Advance(time.Hour)
	assert.Never(t, func() bool { return s.Executed() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLastSubmissionWins(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	for _, cmd := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Submit(cmd, 500*time.Millisecond))
	}
	waitReceived(t, s, 4)

	clock.Advance(500 * time.Millisecond)
	clock.BlockUntilReady()
	waitExecuted(t, s, 1)

	assert.Equal(t, []string{"d"}, rec.got())
}

func TestReplacementRestartsDelay(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	require.NoError(t, s.Submit("a", 500*time.Millisecond))
	waitReceived(t, s, 1)

	clock.Advance(100 * time.Millisecond)
	require.NoError(t, s.Submit("b", 500*time.Millisecond))
	waitReceived(t, s, 2)

	// 550ms after the first submission: the first deadline has passed but was
	// replaced, the second has not been reached.
	clock.Advance(450 * time.Millisecond)
	clock.BlockUntilReady()
	assert.Never(t, func() bool { return s.Executed() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(50 * time.Millisecond)
	clock.BlockUntilReady()
	waitExecuted(t, s, 1)

	assert.Equal(t, []string{"b"}, rec.got())
}

func TestShorterDelayReplacesLonger(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	require.NoError(t, s.Submit("slow", time.Minute))
	require.NoError(t, s.Submit("fast", 10*time.Millisecond))
	waitReceived(t, s, 2)

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	waitExecuted(t, s, 1)

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return s.Executed() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"fast"}, rec.got())
}

func TestExecutorFailureKeepsLoopRunning(t *testing.T) {
	var (
		mu     sync.Mutex
		failed []error
	)
	rec := &recorder{}
	exec := func(ctx context.Context, cmd string) error {
		if cmd == "bad" {
			return stderrors.New("device busy")
		}
		return rec.exec(ctx, cmd)
	}

	s, clock := startScheduler(t, exec, WithErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	}))

	require.NoError(t, s.Submit("bad", time.Second))
	waitReceived(t, s, 1)
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	waitExecuted(t, s, 1)

	mu.Lock()
	require.Len(t, failed, 1)
	assert.True(t, errors.HasCode(failed[0], errors.ErrActionFailure))
	assert.Contains(t, failed[0].Error(), "device busy")
	mu.Unlock()

	require.NoError(t, s.Submit("good", time.Second))
	waitReceived(t, s, 2)
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	waitExecuted(t, s, 2)

	assert.Equal(t, []string{"good"}, rec.got())
}

func TestExecutorPanicIsRecovered(t *testing.T) {
	errs := make(chan error, 1)
	exec := func(context.Context, string) error {
		panic("boom")
	}

	s, clock := startScheduler(t, exec, WithErrorHandler(func(err error) { errs <- err }))

	require.NoError(t, s.Submit("x", time.Second))
	waitReceived(t, s, 1)
	clock.Advance(time.Second)
	clock.BlockUntilReady()

	select {
	case err := <-errs:
		assert.Equal(t, errors.ErrActionFailure, errors.CodeOf(err))
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(waitFor):
		t.Fatal("panic not reported")
	}

	require.NoError(t, s.Submit("y", time.Second))
	waitReceived(t, s, 2)
	assert.Equal(t, Armed, s.State())

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	waitExecuted(t, s, 2)

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(waitFor):
		t.Fatal("second panic not reported")
	}
	assert.Equal(t, Idle, s.State())
}

func TestRearmsAfterFiring(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	for i, cmd := range []string{"a", "b", "c"} {
		require.NoError(t, s.Submit(cmd, 500*time.Millisecond))
		waitReceived(t, s, uint64(i+1))
		assert.Equal(t, Armed, s.State())

		clock.Advance(500 * time.Millisecond)
		clock.BlockUntilReady()
		waitExecuted(t, s, uint64(i+1))
		assert.Equal(t, Idle, s.State())
	}

	assert.Equal(t, []string{"a", "b", "c"}, rec.got())
}

func TestRearmsAfterFiringOnRealClock(t *testing.T) {
	rec := &recorder{}
	s := New(rec.exec)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Submit("a", time.Millisecond))
	waitExecuted(t, s, 1)
	require.NoError(t, s.Submit("b", time.Millisecond))
	waitExecuted(t, s, 2)

	assert.Equal(t, []string{"a", "b"}, rec.got())
}

func TestSubmitAfterCloseFails(t *testing.T) {
	s, _ := startScheduler(t, (&recorder{}).exec)

	require.NoError(t, s.Close())

	err := s.Submit("late", time.Second)
	require.Error(t, err)
	assert.Equal(t, errors.ErrSchedulerUnavailable, errors.CodeOf(err))
	assert.Error(t, s.Start(context.Background()))
}

func TestSubmitAfterContextCancelFails(t *testing.T) {
	clock := clockz.NewFakeClock()
	s := New((&recorder{}).exec, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)

	err := s.Submit("late", time.Second)
	assert.True(t, errors.HasCode(err, errors.ErrSchedulerUnavailable))
}

func TestCloseDiscardsPending(t *testing.T) {
	rec := &recorder{}
	s, clock := startScheduler(t, rec.exec)

	require.NoError(t, s.Submit("a", time.Second))
	waitReceived(t, s, 1)

	require.NoError(t, s.Close())
	clock.Advance(time.Second)

	assert.Empty(t, rec.got())
	assert.Equal(t, Idle, s.State())
}

func TestStartTwiceFails(t *testing.T) {
	s, _ := startScheduler(t, (&recorder{}).exec)
	assert.Error(t, s.Start(context.Background()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "armed", Armed.String())
	assert.Equal(t, "invalid", State(9).String())
}
