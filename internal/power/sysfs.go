package power

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/logger"
)

const (
	DefaultSysfsRoot    = "/sys/class/power_supply"
	DefaultPollInterval = 2 * time.Second
)

// SysfsSource polls /sys/class/power_supply. It is the fallback for systems
// without UPower.
type SysfsSource struct {
	root     string
	interval time.Duration
	logger   logger.Logger
}

// NewSysfsSource returns a polling Source. A zero root or interval selects
// the defaults.
func NewSysfsSource(root string, interval time.Duration) *SysfsSource {
	if root == "" {
		root = DefaultSysfsRoot
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &SysfsSource{
		root:     root,
		interval: interval,
		logger:   logger.New("power_supply"),
	}
}

// Read returns the current condition: AC if any external supply is online,
// DC if a battery is present otherwise, Other if neither applies.
func (s *SysfsSource) Read() (Condition, error) {
	errFactory := errors.New()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return Unknown, errFactory.Wrap(ErrReadFailed, err)
	}

	battery := false
	for _, e := range entries {
		dir := filepath.Join(s.root, e.Name())

		kind, err := readTrimmed(filepath.Join(dir, "type"))
		if err != nil {
			s.logger.Debug().Err(err).Str("supply", e.Name()).Msg("Skipping power supply without type")
			continue
		}

		switch {
		case kind == "Battery":
			present, err := readTrimmed(filepath.Join(dir, "present"))
			if err != nil || present == "1" {
				battery = true
			}
		case isExternal(kind):
			online, err := readTrimmed(filepath.Join(dir, "online"))
			if err == nil && online == "1" {
				return AC, nil
			}
		}
	}

	if battery {
		return DC, nil
	}

	return Other, nil
}

// Watch reports the current condition, then every change seen on the poll
// interval.
func (s *SysfsSource) Watch(ctx context.Context) (<-chan Condition, error) {
	initial, err := s.Read()
	if err != nil {
		return nil, err
	}

	out := make(chan Condition)
	go s.poll(ctx, initial, out)

	s.logger.Info().
		Stringer("condition", initial).
		Dur("interval", s.interval).
		Msg("Polling power supplies")

	return out, nil
}

func (s *SysfsSource) poll(ctx context.Context, last Condition, out chan<- Condition) {
	defer close(out)

	if !send(ctx, out, last) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cond, err := s.Read()
			if err != nil {
				s.logger.Warn().Err(err).Msg("Failed to read power supplies")
				continue
			}
			if cond == last {
				continue
			}

			s.logger.Debug().
				Stringer("from", last).
				Stringer("to", cond).
				Msg("Power supply changed")
			last = cond
			if !send(ctx, out, cond) {
				return
			}
		}
	}
}

func isExternal(kind string) bool {
	return kind == "Mains" || kind == "Wireless" || strings.HasPrefix(kind, "USB")
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
