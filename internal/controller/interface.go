// Package controller turns power source transitions into brightness
// changes: it remembers the brightness in effect when leaving AC or DC and
// schedules the brightness stored for the new source.
package controller

import (
	"time"

	"github.com/zoobzio/clockz"

	"codeberg.org/mutker/acdcbright/internal/history"
	"codeberg.org/mutker/acdcbright/internal/logger"
	"codeberg.org/mutker/acdcbright/internal/power"
	"codeberg.org/mutker/acdcbright/internal/scheduler"
)

// DefaultDelay lets a flapping power connector settle before brightness
// changes.
const DefaultDelay = 500 * time.Millisecond

// ApplyBrightness sets the stored brightness for ForCondition. The value is
// looked up when the command runs, not when it is submitted.
type ApplyBrightness struct {
	ForCondition power.Condition
}

// Submitter accepts delayed commands; a *scheduler.Scheduler[ApplyBrightness]
// satisfies it.
type Submitter = scheduler.Submitter[ApplyBrightness]

// Option configures a Controller or an Applier.
type Option func(*options)

type options struct {
	delay    time.Duration
	recorder history.Recorder
	logger   logger.Logger
	clock    clockz.Clock
}

func defaultOptions(component string) options {
	return options{
		delay:  DefaultDelay,
		logger: logger.New(component),
		clock:  clockz.RealClock,
	}
}

// WithDelay sets the debounce delay used for every submission.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithRecorder records transitions and applied brightness.
func WithRecorder(r history.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used for history timestamps.
func WithClock(c clockz.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}
