package controller

import (
	"context"

	"github.com/zoobzio/clockz"

	"codeberg.org/mutker/acdcbright/internal/display"
	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/history"
	"codeberg.org/mutker/acdcbright/internal/logger"
	"codeberg.org/mutker/acdcbright/internal/settings"
)

// Applier executes ApplyBrightness commands for the scheduler.
type Applier struct {
	accessor display.Accessor
	settings *settings.Shared
	recorder history.Recorder
	logger   logger.Logger
	clock    clockz.Clock
}

func NewApplier(accessor display.Accessor, shared *settings.Shared, opts ...Option) *Applier {
	o := defaultOptions("applier")
	for _, opt := range opts {
		opt(&o)
	}

	return &Applier{
		accessor: accessor,
		settings: shared,
		recorder: o.recorder,
		logger:   o.logger,
		clock:    o.clock,
	}
}

// Apply writes the brightness currently stored for cmd.ForCondition through
// a freshly opened handle.
func (a *Applier) Apply(ctx context.Context, cmd ApplyBrightness) error {
	errFactory := errors.New()

	if !cmd.ForCondition.Actionable() {
		return errFactory.WithData(errors.ErrInvalidArgument, "no brightness for "+cmd.ForCondition.String())
	}

	b := target(a.settings.Get(), cmd.ForCondition)
	err := a.write(b)
	a.record(ctx, cmd, b, err)
	if err != nil {
		return err
	}

	a.logger.Info().
		Stringer("condition", cmd.ForCondition).
		Int("brightness", int(b)).
		Msg("Brightness applied")

	return nil
}

func (a *Applier) write(b display.Brightness) error {
	errFactory := errors.New()

	h, err := a.accessor.Open()
	if err != nil {
		return errFactory.Wrap(errors.ErrHardware, err)
	}
	defer h.Close()

	if err := h.Set(b); err != nil {
		return errFactory.Wrap(errors.ErrHardware, err)
	}

	return nil
}

func (a *Applier) record(ctx context.Context, cmd ApplyBrightness, b display.Brightness, err error) {
	if a.recorder == nil {
		return
	}

	entry := &history.Entry{
		Timestamp:  a.clock.Now(),
		Kind:       history.KindApply,
		Condition:  cmd.ForCondition,
		Brightness: int(b),
		ErrorCode:  string(errors.CodeOf(err)),
	}
	if rerr := a.recorder.Record(ctx, entry); rerr != nil {
		a.logger.Warn().Err(rerr).Msg("Failed to record applied brightness")
	}
}
