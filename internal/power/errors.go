package power

import "codeberg.org/mutker/acdcbright/internal/errors"

const (
	ErrConnectFailed   = errors.ErrorCode("power_connect_failed")
	ErrQueryFailed     = errors.ErrorCode("power_query_failed")
	ErrSubscribeFailed = errors.ErrorCode("power_subscribe_failed")
	ErrReadFailed      = errors.ErrorCode("power_read_failed")
)
