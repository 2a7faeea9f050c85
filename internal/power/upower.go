package power

import (
	"context"

	"github.com/godbus/dbus/v5"

	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/logger"
)

const (
	upowerDest       = "org.freedesktop.UPower"
	upowerPath       = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerIface      = "org.freedesktop.UPower"
	onBatteryProp    = "OnBattery"
	propertiesIface  = "org.freedesktop.DBus.Properties"
	propertiesMember = "PropertiesChanged"

	signalBuffer = 16
)

// UPowerSource follows UPower's OnBattery property on the system bus.
type UPowerSource struct {
	logger logger.Logger
}

// NewUPowerSource returns a Source backed by UPower.
func NewUPowerSource() *UPowerSource {
	return &UPowerSource{logger: logger.New("upower")}
}

// Watch connects to the system bus, reports the current condition and then
// every OnBattery change.
func (s *UPowerSource) Watch(ctx context.Context) (<-chan Condition, error) {
	errFactory := errors.New()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, err)
	}

	initial, err := s.query(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(upowerPath),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember(propertiesMember),
	); err != nil {
		conn.Close()
		return nil, errFactory.Wrap(ErrSubscribeFailed, err)
	}

	signals := make(chan *dbus.Signal, signalBuffer)
	conn.Signal(signals)

	out := make(chan Condition)
	go func() {
		defer conn.Close()
		defer conn.RemoveSignal(signals)
		s.forward(ctx, initial, signals, out)
	}()

	s.logger.Info().Stringer("condition", initial).Msg("Watching UPower")

	return out, nil
}

func (s *UPowerSource) query(conn *dbus.Conn) (Condition, error) {
	errFactory := errors.New()

	v, err := conn.Object(upowerDest, upowerPath).GetProperty(upowerIface + "." + onBatteryProp)
	if err != nil {
		return Unknown, errFactory.Wrap(ErrQueryFailed, err)
	}

	onBattery, ok := v.Value().(bool)
	if !ok {
		return Unknown, errFactory.WithData(ErrQueryFailed, v.String())
	}

	return conditionFromOnBattery(onBattery), nil
}

// forward emits initial, then one condition per relevant signal, until ctx
// is done or signals is closed. It closes out on return.
func (s *UPowerSource) forward(ctx context.Context, initial Condition, signals <-chan *dbus.Signal, out chan<- Condition) {
	defer close(out)

	if !send(ctx, out, initial) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok || sig == nil {
				s.logger.Warn().Msg("System bus connection closed")
				return
			}

			cond, ok := conditionFromSignal(sig)
			if !ok {
				continue
			}

			s.logger.Debug().Stringer("condition", cond).Msg("OnBattery changed")
			if !send(ctx, out, cond) {
				return
			}
		}
	}
}

// conditionFromSignal extracts OnBattery from a PropertiesChanged signal.
// It reports false for signals that do not carry the property.
func conditionFromSignal(sig *dbus.Signal) (Condition, bool) {
	if sig.Path != upowerPath || sig.Name != propertiesIface+"."+propertiesMember {
		return Unknown, false
	}
	if len(sig.Body) < 2 {
		return Unknown, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != upowerIface {
		return Unknown, false
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return Unknown, false
	}

	v, ok := changed[onBatteryProp]
	if !ok {
		return Unknown, false
	}

	onBattery, ok := v.Value().(bool)
	if !ok {
		return Unknown, false
	}

	return conditionFromOnBattery(onBattery), true
}

func conditionFromOnBattery(onBattery bool) Condition {
	if onBattery {
		return DC
	}
	return AC
}

func send(ctx context.Context, out chan<- Condition, c Condition) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
