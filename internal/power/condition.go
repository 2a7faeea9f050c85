// Package power reports which source the machine is running from.
package power

import "context"

// Condition is the power source reported by the OS.
type Condition int

const (
	// Unknown means no notification has been seen yet.
	Unknown Condition = iota
	// AC is mains power (or an equivalent external supply).
	AC
	// DC is the onboard battery.
	DC
	// Other covers sources that are not acted on, such as a UPS.
	Other
)

func (c Condition) String() string {
	switch c {
	case Unknown:
		return "unknown"
	case AC:
		return "ac"
	case DC:
		return "dc"
	case Other:
		return "other"
	default:
		return "invalid"
	}
}

// Actionable reports whether brightness is managed for this condition.
func (c Condition) Actionable() bool {
	return c == AC || c == DC
}

// Source delivers power condition changes. The returned channel is closed
// when ctx is done or the source fails irrecoverably. Conditions are
// delivered one at a time, in the order the OS reported them, starting with
// the condition in effect when Watch was called.
type Source interface {
	Watch(ctx context.Context) (<-chan Condition, error)
}

// ParseCondition is the inverse of String. Unrecognised names give Unknown.
func ParseCondition(name string) Condition {
	switch name {
	case "ac":
		return AC
	case "dc":
		return DC
	case "other":
		return Other
	default:
		return Unknown
	}
}
