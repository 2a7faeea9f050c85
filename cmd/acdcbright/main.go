// Copyright © 2024 Mutker Telag <witty.text5011@fastmail.com>
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"codeberg.org/mutker/acdcbright/internal/config"
	"codeberg.org/mutker/acdcbright/internal/controller"
	"codeberg.org/mutker/acdcbright/internal/display"
	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/history"
	"codeberg.org/mutker/acdcbright/internal/logger"
	"codeberg.org/mutker/acdcbright/internal/pid"
	"codeberg.org/mutker/acdcbright/internal/power"
	"codeberg.org/mutker/acdcbright/internal/scheduler"
	"codeberg.org/mutker/acdcbright/internal/settings"
)

const (
	printStateTimeout = 3 * time.Second
	printHistoryLimit = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	manager := config.NewManager(args)
	cfg, err := manager.Load(context.Background())
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger.Init(cfg.IsDebug(), cfg.IsVerbose(), logger.IsService())
	applyLogLevel(cfg)
	logger.Debug().Msg("Config loaded")

	store := settings.NewFileStore(cfg.GetSettingsPath())
	initial, err := store.Load()
	if err != nil {
		logError(err, "failed to load settings")
		return 1
	}

	accessor, closeAccessor, err := newAccessor(cfg)
	if err != nil {
		logError(err, "failed to initialize display")
		return 1
	}
	defer closeAccessor()

	hist, err := history.NewService(historyConfig(cfg), logger.New("history"))
	if err != nil {
		logError(err, "failed to initialize history")
		return 1
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logError(err, "failed to close history")
		}
	}()

	source := newSource(cfg)

	if cfg.IsPrintState() {
		if err := printState(os.Stdout, source, accessor, initial, hist); err != nil {
			logError(err, "failed to read state")
			return 1
		}
		return 0
	}

	if err := pid.Write(cfg.GetPIDFile()); err != nil {
		logError(err, "failed to write PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(cfg.GetPIDFile()); err != nil {
			logError(err, "failed to remove PID file")
		}
	}()

	shared := settings.NewShared(initial, store)
	applier := controller.NewApplier(accessor, shared, controller.WithRecorder(hist))
	sched := scheduler.New(applier.Apply)
	ctrl := controller.New(accessor, shared, sched,
		controller.WithDelay(cfg.GetDelay()),
		controller.WithRecorder(hist))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel)

	logger.Info().
		Int("ac_brightness", int(initial.ACBrightness)).
		Int("dc_brightness", int(initial.DCBrightness)).
		Dur("delay", cfg.GetDelay()).
		Str("source", string(cfg.GetSource())).
		Msg("Starting")

	if err := sched.Start(ctx); err != nil {
		logError(errors.New().Wrap(errors.ErrInitFailed, err), "failed to start scheduler")
		return 1
	}
	defer sched.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Watch(ctx, func(p config.Provider) {
			applyLogLevel(p)
			ctrl.SetDelay(p.GetDelay())
		})
	})
	g.Go(func() error {
		return loop(ctx, source, ctrl)
	})

	if err := g.Wait(); err != nil {
		logError(err, "stopped with error")
		return 1
	}

	logger.Info().Msg("Exiting...")
	return 0
}

// loop delivers power notifications to the controller until ctx is done.
func loop(ctx context.Context, source power.Source, ctrl *controller.Controller) error {
	conditions, err := source.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case cond, ok := <-conditions:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New().WithMessage(errors.ErrUnavailable, "power source stopped")
			}

			if err := ctrl.Handle(ctx, cond); err != nil {
				logError(err, "failed to handle power source change")
			}
		}
	}
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}

func newAccessor(cfg config.Provider) (display.Accessor, func(), error) {
	opts := []display.Option{display.WithDevice(cfg.GetBacklight())}
	closer := func() {}

	if cfg.UseLogind() {
		w, err := display.NewLogindWriter()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, display.WithWriter(w))
		closer = func() {
			if err := w.Close(); err != nil {
				logger.Debug().Err(err).Msg("Failed to close logind connection")
			}
		}
	}

	accessor := display.NewSysfs(opts...)
	if _, err := accessor.Device(); err != nil {
		closer()
		return nil, nil, err
	}

	return accessor, closer, nil
}

func newSource(cfg config.Provider) power.Source {
	if cfg.GetSource() == config.SourceSysfs {
		return power.NewSysfsSource("", cfg.GetPollInterval())
	}
	return power.NewUPowerSource()
}

func historyConfig(cfg config.Provider) history.Config {
	hc := history.DefaultConfig()
	hc.Enabled = cfg.IsHistoryEnabled()
	hc.DBPath = cfg.GetHistoryDBPath()
	return hc
}

func applyLogLevel(cfg config.Provider) {
	if level := cfg.GetLogLevel(); level != "" {
		logger.SetLevelString(level.String())
	}
}

// printState reports the current power source, brightness, stored settings
// and recent history.
func printState(w io.Writer, source power.Source, accessor display.Accessor, s settings.Settings, hist history.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), printStateTimeout)
	defer cancel()

	cond := power.Unknown
	conditions, err := source.Watch(ctx)
	if err != nil {
		return err
	}
	select {
	case c, ok := <-conditions:
		if ok {
			cond = c
		}
	case <-ctx.Done():
	}

	h, err := accessor.Open()
	if err != nil {
		return err
	}
	current, err := h.Get()
	h.Close()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Power: %s, Brightness: %d%%\n", cond, current)
	fmt.Fprintf(w, "Stored: AC %d%%, DC %d%%\n", s.ACBrightness, s.DCBrightness)

	entries, err := hist.Recent(context.Background(), printHistoryLimit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s %-10s %-5s -> %-5s %3d%%",
			e.Timestamp.Format(time.RFC3339), e.Kind, e.Previous, e.Condition, e.Brightness)
		if e.ErrorCode != "" {
			line += " " + e.ErrorCode
		}
		fmt.Fprintln(w, line)
	}

	return nil
}

func logError(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.ErrorWithCode(coded).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
