package config

import (
	"context"
	"time"
)

// Provider defines the interface for accessing configuration values.
// A Provider is a snapshot; a reload produces a new one.
type Provider interface {
	IsDebug() bool
	IsVerbose() bool

	// GetLogLevel returns the configured logging level. Empty means the
	// level follows the debug and verbose switches.
	GetLogLevel() LogLevel

	// GetDelay returns how long a brightness change waits for the power
	// source to settle
	GetDelay() time.Duration

	// GetSettingsPath returns the path of the brightness settings file
	GetSettingsPath() string

	// GetBacklight returns the backlight device name, empty for the first one found
	GetBacklight() string

	// UseLogind returns whether brightness is written through logind
	UseLogind() bool

	// GetSource returns which power notification source to use
	GetSource() SourceKind

	// GetPollInterval returns the sysfs source polling interval
	GetPollInterval() time.Duration

	// IsHistoryEnabled returns whether transitions are recorded
	IsHistoryEnabled() bool

	// GetHistoryDBPath returns the path to the history database
	GetHistoryDBPath() string

	GetPIDFile() string

	// IsPrintState returns whether to print the current state and exit
	IsPrintState() bool
}

// Loader handles the loading and validation of configuration from
// various sources (files, environment variables, flags)
type Loader interface {
	// Load loads configuration from all sources and validates it
	// Returns a Provider interface for accessing the configuration
	// If loading fails, returns an error with appropriate context
	Load(ctx context.Context, opts ...Option) (Provider, error)

	// Validate checks if the current configuration is valid
	// Returns nil if valid, error with validation details otherwise
	Validate() error
}

// Watcher enables live configuration updates
type Watcher interface {
	// Watch calls callback with the new configuration every time the
	// config file changes, until ctx is done
	Watch(ctx context.Context, callback func(Provider)) error
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "ACDCBRIGHT"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// SourceKind selects the power notification source
type SourceKind string

const (
	SourceUPower SourceKind = "upower"
	SourceSysfs  SourceKind = "sysfs"
)

func (s SourceKind) IsValid() bool {
	return s == SourceUPower || s == SourceSysfs
}

// ValidationError represents a configuration validation error
type ValidationError interface {
	error
	// Field returns the name of the invalid field
	Field() string
	// Value returns the invalid value
	Value() interface{}
	// Reason returns why the value is invalid
	Reason() string
}

// Status represents the current state of the configuration
type Status struct {
	// Valid indicates whether the current configuration is valid
	Valid bool
	// ValidationErrors contains any validation errors if Valid is false
	ValidationErrors []ValidationError
}
