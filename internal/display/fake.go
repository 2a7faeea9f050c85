package display

import (
	"sync"

	"codeberg.org/mutker/acdcbright/internal/errors"
)

// FakeAccessor is a test double holding a single brightness value in memory.
// It is safe for concurrent use, since the scheduler applies brightness from
// its own goroutine.
type FakeAccessor struct {
	mu sync.Mutex

	current Brightness
	writes  []Brightness
	opens   int

	// OpenError, if set, is returned by Open.
	OpenError error
	// GetError, if set, is returned by Handle.Get.
	GetError error
	// SetError, if set, is returned by Handle.Set.
	SetError error
}

// NewFakeAccessor creates a FakeAccessor reporting the given brightness.
func NewFakeAccessor(current Brightness) *FakeAccessor {
	return &FakeAccessor{current: current}
}

// Open returns a handle to the fake device.
func (f *FakeAccessor) Open() (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenError != nil {
		return nil, f.OpenError
	}
	f.opens++

	return &fakeHandle{f: f}, nil
}

// SetCurrent changes the brightness reported by Get, as if the user moved
// the slider.
func (f *FakeAccessor) SetCurrent(b Brightness) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = b
}

// Current returns the brightness last written or set.
func (f *FakeAccessor) Current() Brightness {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Writes returns every brightness written through a handle, in order.
func (f *FakeAccessor) Writes() []Brightness {
	f.mu.Lock()
	defer f.mu.Unlock()

	writes := make([]Brightness, len(f.writes))
	copy(writes, f.writes)

	return writes
}

// Opens returns how many handles were opened.
func (f *FakeAccessor) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type fakeHandle struct {
	f      *FakeAccessor
	closed bool
}

func (h *fakeHandle) Get() (Brightness, error) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()

	if h.closed {
		return 0, errors.New().New(ErrHandleClosed)
	}
	if h.f.GetError != nil {
		return 0, h.f.GetError
	}

	return h.f.current, nil
}

func (h *fakeHandle) Set(b Brightness) error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()

	if h.closed {
		return errors.New().New(ErrHandleClosed)
	}
	if h.f.SetError != nil {
		return h.f.SetError
	}

	h.f.current = b
	h.f.writes = append(h.f.writes, b)

	return nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}
