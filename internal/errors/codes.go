package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidDelay    ErrorCode = "invalid_delay"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidSource   ErrorCode = "invalid_source"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Transition errors
	ErrHardware             ErrorCode = "hardware_failure"
	ErrPersistence          ErrorCode = "persistence_failure"
	ErrSchedulerUnavailable ErrorCode = "scheduler_unavailable"
	ErrActionFailure        ErrorCode = "action_failure"

	// Operation errors
	ErrTimeout ErrorCode = "operation_timeout"

	// History errors
	ErrInitHistory   ErrorCode = "init_history_failed"
	ErrRecordHistory ErrorCode = "record_history_failed"
	ErrCloseHistory  ErrorCode = "close_history_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:             "Internal error occurred",
	ErrInvalidArgument:      "Invalid argument provided",
	ErrUnavailable:          "Service unavailable",
	ErrInvalidConfig:        "Invalid configuration",
	ErrBindFlags:            "Failed to bind flags",
	ErrReadConfig:           "Failed to read config file",
	ErrInvalidDelay:         "Invalid debounce delay",
	ErrInvalidInterval:      "Invalid interval value",
	ErrInvalidSource:        "Invalid power source",
	ErrInvalidLogLevel:      "Invalid log level",
	ErrInitFailed:           "Initialization failed",
	ErrShutdownFailed:       "Shutdown failed",
	ErrAlreadyRunning:       "Another instance is already running",
	ErrHardware:             "Display hardware operation failed",
	ErrPersistence:          "Settings persistence failed",
	ErrSchedulerUnavailable: "Scheduler unavailable",
	ErrActionFailure:        "Scheduled action failed",
	ErrTimeout:              "Operation timed out",
	ErrInitHistory:          "Failed to initialize history",
	ErrRecordHistory:        "Failed to record history",
	ErrCloseHistory:         "Failed to close history",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
