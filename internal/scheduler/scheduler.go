package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"

	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/logger"
)

type submission[T any] struct {
	cmd   T
	delay time.Duration
}

// Scheduler is a single-slot debouncer. Submit never blocks; the pending
// command and its timer are owned by the Run loop alone.
type Scheduler[T any] struct {
	exec    Executor[T]
	clock   clockz.Clock
	onError ErrorHandler
	logger  logger.Logger

	mu     sync.Mutex
	inbox  []submission[T]
	closed bool
	cancel context.CancelFunc
	done   chan struct{}

	notify chan struct{}

	state    atomic.Int32
	received atomic.Uint64
	executed atomic.Uint64
}

// New creates a Scheduler that runs commands with exec.
func New[T any](exec Executor[T], opts ...Option) *Scheduler[T] {
	o := options{
		clock:  clockz.RealClock,
		logger: logger.New("scheduler"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler[T]{
		exec:    exec,
		clock:   o.clock,
		onError: o.onError,
		logger:  o.logger,
		notify:  make(chan struct{}, 1),
	}
	if s.onError == nil {
		s.onError = s.logError
	}

	return s
}

// Submit replaces the pending command with cmd, to run after delay. It
// returns scheduler_unavailable once the scheduler has stopped.
func (s *Scheduler[T]) Submit(cmd T, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New().New(errors.ErrSchedulerUnavailable)
	}
	s.inbox = append(s.inbox, submission[T]{cmd: cmd, delay: delay})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}

	return nil
}

// Start runs the loop in its own goroutine until ctx is done or Close is
// called.
func (s *Scheduler[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New().New(errors.ErrSchedulerUnavailable)
	}
	if s.done != nil {
		return errors.New().WithMessage(errors.ErrInternal, "scheduler already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		_ = s.Run(ctx)
	}(s.done)

	return nil
}

// Close stops the loop and waits for it to exit. A command that has not
// fired yet is discarded.
func (s *Scheduler[T]) Close() error {
	s.mu.Lock()
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	return nil
}

// Run is the scheduling loop. It returns nil when ctx is done; after that
// every Submit fails.
func (s *Scheduler[T]) Run(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.closed = true
		s.inbox = nil
		s.mu.Unlock()
		s.state.Store(int32(Idle))
	}()

	var (
		timer   clockz.Timer
		pending T
		armed   bool
	)

	for {
		var timerC <-chan time.Time
		if armed {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if armed {
				s.logger.Debug().Msg("Discarding pending command on shutdown")
			}
			return nil

		case <-s.notify:
			for _, sub := range s.drain() {
				if armed {
					s.logger.Debug().Msg("Replacing pending command")
				}
				pending = sub.cmd
				armed = true
				timer = s.arm(timer, sub.delay)
				s.state.Store(int32(Armed))
				s.received.Add(1)
			}

		case <-timerC:
			cmd := pending
			var zero T
			pending = zero
			armed = false
			// A fired timer is not reused; the next submission arms a new one.
			timer = nil
			s.state.Store(int32(Idle))

			s.execute(ctx, cmd)
		}
	}
}

// State reports whether a command is pending.
func (s *Scheduler[T]) State() State {
	return State(s.state.Load())
}

// Received returns how many submissions the loop has taken from the inbox.
func (s *Scheduler[T]) Received() uint64 {
	return s.received.Load()
}

// Executed returns how many commands have run, successfully or not.
func (s *Scheduler[T]) Executed() uint64 {
	return s.executed.Load()
}

func (s *Scheduler[T]) drain() []submission[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.inbox
	s.inbox = nil

	return subs
}

func (s *Scheduler[T]) arm(timer clockz.Timer, delay time.Duration) clockz.Timer {
	if timer == nil {
		return s.clock.NewTimer(delay)
	}

	if timer.Stop() {
		timer.Reset(delay)
		return timer
	}

	// Fired but not yet received: drop the stale tick and start over.
	select {
	case <-timer.C():
	default:
	}

	return s.clock.NewTimer(delay)
}

func (s *Scheduler[T]) execute(ctx context.Context, cmd T) {
	defer s.executed.Add(1)

	if err := s.safeExec(ctx, cmd); err != nil {
		s.onError(errors.New().Wrap(errors.ErrActionFailure, err))
	}
}

func (s *Scheduler[T]) safeExec(ctx context.Context, cmd T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return s.exec(ctx, cmd)
}

func (s *Scheduler[T]) logError(err error) {
	var coded errors.Error
	if errors.As(err, &coded) {
		s.logger.ErrorWithContext(coded, "execute").Msg("Scheduled command failed")
		return
	}
	s.logger.Error().Err(err).Msg("Scheduled command failed")
}
