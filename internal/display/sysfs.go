package display

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/logger"
)

const (
	DefaultSysfsRoot = "/sys/class/backlight"

	brightnessFile    = "brightness"
	maxBrightnessFile = "max_brightness"
)

// Writer writes a raw backlight value for the named device. The sysfs
// accessor writes the brightness file directly unless a Writer is set.
type Writer interface {
	WriteBrightness(device string, raw int) error
}

// SysfsAccessor reads and writes /sys/class/backlight/<device>.
type SysfsAccessor struct {
	root   string
	device string
	writer Writer
	logger logger.Logger

	once     sync.Once
	resolved string
	err      error
}

// Option configures a SysfsAccessor.
type Option func(*SysfsAccessor)

// WithRoot overrides the backlight class directory.
func WithRoot(root string) Option {
	return func(a *SysfsAccessor) {
		a.root = root
	}
}

// WithDevice selects a backlight device by name instead of the first one found.
func WithDevice(name string) Option {
	return func(a *SysfsAccessor) {
		a.device = name
	}
}

// WithWriter routes brightness writes through w (for example logind).
func WithWriter(w Writer) Option {
	return func(a *SysfsAccessor) {
		a.writer = w
	}
}

// NewSysfs returns an accessor for the Linux backlight class.
func NewSysfs(opts ...Option) *SysfsAccessor {
	a := &SysfsAccessor{
		root:   DefaultSysfsRoot,
		logger: logger.New("display"),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Device returns the resolved device name.
func (a *SysfsAccessor) Device() (string, error) {
	a.once.Do(func() {
		a.resolved, a.err = a.resolve()
		if a.err == nil {
			a.logger.Info().Str("device", a.resolved).Msg("Using backlight device")
		}
	})

	return a.resolved, a.err
}

func (a *SysfsAccessor) resolve() (string, error) {
	errFactory := errors.New()

	if a.device != "" {
		if _, err := os.Stat(filepath.Join(a.root, a.device, brightnessFile)); err != nil {
			return "", errFactory.Wrap(ErrDeviceNotFound, err)
		}
		return a.device, nil
	}

	entries, err := os.ReadDir(a.root)
	if err != nil {
		return "", errFactory.Wrap(ErrDeviceNotFound, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := os.Stat(filepath.Join(a.root, name, brightnessFile)); err == nil {
			return name, nil
		}
	}

	return "", errFactory.WithData(ErrDeviceNotFound, a.root)
}

// Open reads the device's max_brightness and returns a handle to it.
func (a *SysfsAccessor) Open() (Handle, error) {
	errFactory := errors.New()

	name, err := a.Device()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(a.root, name)
	maxRaw, err := readInt(filepath.Join(dir, maxBrightnessFile))
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}
	if maxRaw <= 0 {
		return nil, errFactory.WithData(ErrOpenFailed, fmt.Sprintf("max_brightness is %d", maxRaw))
	}

	return &sysfsHandle{
		name:   name,
		dir:    dir,
		maxRaw: maxRaw,
		writer: a.writer,
	}, nil
}

type sysfsHandle struct {
	name   string
	dir    string
	maxRaw int
	writer Writer
	closed bool
}

func (h *sysfsHandle) Get() (Brightness, error) {
	errFactory := errors.New()
	if h.closed {
		return 0, errFactory.New(ErrHandleClosed)
	}

	raw, err := readInt(filepath.Join(h.dir, brightnessFile))
	if err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	return toPercent(raw, h.maxRaw), nil
}

func (h *sysfsHandle) Set(b Brightness) error {
	errFactory := errors.New()
	if h.closed {
		return errFactory.New(ErrHandleClosed)
	}
	if !b.Valid() {
		return errFactory.WithData(errors.ErrInvalidArgument, fmt.Sprintf("brightness %d out of range", b))
	}

	raw := toRaw(b, h.maxRaw)
	if h.writer != nil {
		if err := h.writer.WriteBrightness(h.name, raw); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
		return nil
	}

	path := filepath.Join(h.dir, brightnessFile)
	if err := os.WriteFile(path, []byte(strconv.Itoa(raw)), 0o644); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

func (h *sysfsHandle) Close() error {
	h.closed = true
	return nil
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// toPercent maps a raw value onto 0..=100, rounding to nearest.
func toPercent(raw, maxRaw int) Brightness {
	raw = clamp(raw, 0, maxRaw)
	return Brightness((raw*100 + maxRaw/2) / maxRaw)
}

// toRaw maps a percentage onto 0..=maxRaw, rounding to nearest.
func toRaw(b Brightness, maxRaw int) int {
	return (int(b)*maxRaw + 50) / 100
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
