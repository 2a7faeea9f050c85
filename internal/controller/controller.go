package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"

	"codeberg.org/mutker/acdcbright/internal/display"
	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/history"
	"codeberg.org/mutker/acdcbright/internal/logger"
	"codeberg.org/mutker/acdcbright/internal/power"
	"codeberg.org/mutker/acdcbright/internal/settings"
)

// Controller handles power notifications. Handle is serialized; the
// previous condition only changes once a notification was fully handled.
type Controller struct {
	accessor  display.Accessor
	settings  *settings.Shared
	submitter Submitter
	recorder  history.Recorder
	logger    logger.Logger
	clock     clockz.Clock

	delay atomic.Int64

	mu       sync.Mutex
	previous power.Condition
}

func New(accessor display.Accessor, shared *settings.Shared, submitter Submitter, opts ...Option) *Controller {
	o := defaultOptions("controller")
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		accessor:  accessor,
		settings:  shared,
		submitter: submitter,
		recorder:  o.recorder,
		logger:    o.logger,
		clock:     o.clock,
	}
	c.SetDelay(o.delay)

	return c
}

// Handle reacts to a power notification. Conditions other than AC and DC
// are ignored and leave the previous condition as it was.
func (c *Controller) Handle(ctx context.Context, cond power.Condition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !cond.Actionable() {
		c.logger.Debug().
			Stringer("condition", cond).
			Stringer("previous", c.previous).
			Msg("Ignoring power condition")
		return nil
	}

	prev := c.previous

	if isSwitch(prev, cond) {
		if err := c.snapshot(prev); err != nil {
			c.record(ctx, cond, prev, err)
			return err
		}
	}

	if err := c.submitter.Submit(ApplyBrightness{ForCondition: cond}, c.Delay()); err != nil {
		err = ensureCode(err, errors.ErrSchedulerUnavailable)
		c.record(ctx, cond, prev, err)
		return err
	}

	c.previous = cond
	c.record(ctx, cond, prev, nil)

	c.logger.Info().
		Stringer("from", prev).
		Stringer("to", cond).
		Dur("delay", c.Delay()).
		Msg("Power source changed")

	return nil
}

// snapshot stores the brightness in effect as the preference for the
// outgoing condition.
func (c *Controller) snapshot(outgoing power.Condition) error {
	current, err := readBrightness(c.accessor)
	if err != nil {
		return err
	}

	saved, err := c.settings.Update(func(s *settings.Settings) {
		setTarget(s, outgoing, current)
	})
	if err != nil {
		return ensureCode(err, errors.ErrPersistence)
	}

	c.logger.Debug().
		Stringer("condition", outgoing).
		Int("brightness", int(current)).
		Int("ac_brightness", int(saved.ACBrightness)).
		Int("dc_brightness", int(saved.DCBrightness)).
		Msg("Saved brightness for outgoing power source")

	return nil
}

// Previous returns the last handled AC or DC condition, Unknown before the
// first one.
func (c *Controller) Previous() power.Condition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// SetDelay changes the debounce delay for later submissions.
func (c *Controller) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.delay.Store(int64(d))
}

func (c *Controller) Delay() time.Duration {
	return time.Duration(c.delay.Load())
}

func (c *Controller) record(ctx context.Context, cond, prev power.Condition, err error) {
	if c.recorder == nil {
		return
	}

	entry := &history.Entry{
		Timestamp:  c.clock.Now(),
		Kind:       history.KindTransition,
		Condition:  cond,
		Previous:   prev,
		Brightness: int(target(c.settings.Get(), cond)),
		ErrorCode:  string(errors.CodeOf(err)),
	}
	if rerr := c.recorder.Record(ctx, entry); rerr != nil {
		c.logger.Warn().Err(rerr).Msg("Failed to record transition")
	}
}

func isSwitch(prev, cond power.Condition) bool {
	return (prev == power.DC && cond == power.AC) || (prev == power.AC && cond == power.DC)
}

func readBrightness(accessor display.Accessor) (display.Brightness, error) {
	errFactory := errors.New()

	h, err := accessor.Open()
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrHardware, err)
	}
	defer h.Close()

	b, err := h.Get()
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrHardware, err)
	}

	return b, nil
}

func target(s settings.Settings, cond power.Condition) display.Brightness {
	if cond == power.DC {
		return s.DCBrightness
	}
	return s.ACBrightness
}

func setTarget(s *settings.Settings, cond power.Condition, b display.Brightness) {
	if cond == power.DC {
		s.DCBrightness = b
		return
	}
	s.ACBrightness = b
}

// ensureCode wraps err with code unless it already carries it.
func ensureCode(err error, code errors.ErrorCode) error {
	if errors.HasCode(err, code) {
		return err
	}
	return errors.New().Wrap(code, err)
}
