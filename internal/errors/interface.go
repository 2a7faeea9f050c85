// Package errors carries the coded errors shared by every acdcbright
// package. Callers branch on Code, never on message text.
package errors

// ErrorCode names one failure kind, e.g. hardware_failure.
type ErrorCode string

// Coded is anything that reports an ErrorCode.
type Coded interface {
	Code() ErrorCode
}

// Error is a coded error with an optional message, payload and cause.
type Error interface {
	error
	Coded
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds Errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
