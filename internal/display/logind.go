package display

import (
	"github.com/godbus/dbus/v5"
)

const (
	logindDest          = "org.freedesktop.login1"
	logindSessionPath   = "/org/freedesktop/login1/session/auto"
	logindSetBrightness = "org.freedesktop.login1.Session.SetBrightness"

	backlightSubsystem = "backlight"
)

// busObject is the subset of dbus.BusObject the logind writer calls.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// LogindWriter writes brightness through systemd-logind, which lets an
// unprivileged session user change the backlight without write access to
// sysfs.
type LogindWriter struct {
	conn *dbus.Conn
	obj  busObject
}

// NewLogindWriter connects to the system bus.
func NewLogindWriter() (*LogindWriter, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}

	return &LogindWriter{
		conn: conn,
		obj:  conn.Object(logindDest, logindSessionPath),
	}, nil
}

// WriteBrightness calls Session.SetBrightness("backlight", device, raw).
func (w *LogindWriter) WriteBrightness(device string, raw int) error {
	//nolint:gosec // G115: raw is derived from a 0..=100 percentage and max_brightness
	return w.obj.Call(logindSetBrightness, 0, backlightSubsystem, device, uint32(raw)).Err
}

// Close releases the bus connection.
func (w *LogindWriter) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}
