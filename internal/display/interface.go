// Package display reads and writes the panel backlight brightness.
package display

// Accessor opens handles to the display device. A handle is acquired fresh
// for every operation and closed right after, so no handle is shared across
// goroutines.
type Accessor interface {
	Open() (Handle, error)
}

// Handle is an open display device.
type Handle interface {
	// Get returns the brightness currently in effect.
	Get() (Brightness, error)
	// Set writes a new brightness.
	Set(Brightness) error
	Close() error
}

// Brightness is a backlight level in percent.
type Brightness int

const (
	MinBrightness Brightness = 0
	MaxBrightness Brightness = 100
)

// Valid reports whether b is within 0..=100.
func (b Brightness) Valid() bool {
	return b >= MinBrightness && b <= MaxBrightness
}
