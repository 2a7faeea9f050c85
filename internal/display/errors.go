package display

import "codeberg.org/mutker/acdcbright/internal/errors"

const (
	ErrDeviceNotFound = errors.ErrorCode("display_device_not_found")
	ErrOpenFailed     = errors.ErrorCode("display_open_failed")
	ErrReadFailed     = errors.ErrorCode("display_read_failed")
	ErrWriteFailed    = errors.ErrorCode("display_write_failed")
	ErrHandleClosed   = errors.ErrorCode("display_handle_closed")
)
