// Package history keeps an optional sqlite log of power transitions and the
// brightness applied for them.
package history

import (
	"context"
	"time"

	"codeberg.org/mutker/acdcbright/internal/power"
)

// Recorder is the write side used by the controller.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// Store is the full history service.
type Store interface {
	Recorder
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Repository defines the interface for history data storage
type Repository interface {
	Record(entry *Entry) error
	Recent(limit int) ([]Entry, error)
	Close() error
}

type Kind string

const (
	// KindTransition is a handled power source change.
	KindTransition Kind = "transition"
	// KindApply is a brightness written by the scheduler.
	KindApply Kind = "apply"
)

// Entry is a single history record. ErrorCode is empty on success.
type Entry struct {
	Timestamp  time.Time
	Kind       Kind
	Condition  power.Condition
	Previous   power.Condition
	Brightness int
	ErrorCode  string
}
