// Package scheduler runs at most one pending command after a delay. Every
// submission replaces whatever was pending, so a burst of submissions
// collapses into a single execution of the last one.
package scheduler

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"

	"codeberg.org/mutker/acdcbright/internal/logger"
)

// Executor runs a command when its delay has elapsed.
type Executor[T any] func(ctx context.Context, cmd T) error

// ErrorHandler receives failures of executed commands.
type ErrorHandler func(err error)

// Submitter is the producer side of a Scheduler.
type Submitter[T any] interface {
	Submit(cmd T, delay time.Duration) error
}

// State of the pending slot.
type State int32

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	default:
		return "invalid"
	}
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	clock   clockz.Clock
	onError ErrorHandler
	logger  logger.Logger
}

// WithClock sets the time source. Tests pass a clockz.FakeClock.
func WithClock(clock clockz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithErrorHandler replaces the default handler, which logs the error.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.onError = h
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
