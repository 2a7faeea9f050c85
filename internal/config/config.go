package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/logger"
)

const (
	DefaultConfigName   = "acdcbright.conf"
	DefaultConfigDir    = "/etc"
	DefaultEnvPrefix    = "ACDCBRIGHT"
	DefaultDelay        = 500 * time.Millisecond
	DefaultPollInterval = 2 * time.Second
	DefaultSettingsPath = "settings.json"
	DefaultHistoryDB    = "/var/lib/acdcbright/history.db"
	DefaultPIDFile      = "/run/acdcbright.pid"
)

type Config struct {
	Debug        bool          `mapstructure:"debug"`
	Verbose      bool          `mapstructure:"verbose"`
	LogLevel     LogLevel      `mapstructure:"log_level"`
	Delay        time.Duration `mapstructure:"delay"`
	SettingsPath string        `mapstructure:"settings"`
	Backlight    string        `mapstructure:"backlight"`
	Logind       bool          `mapstructure:"logind"`
	Source       SourceKind    `mapstructure:"source"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	History      bool          `mapstructure:"history"`
	HistoryDB    string        `mapstructure:"history_db"`
	PIDFile      string        `mapstructure:"pid_file"`
	PrintState   bool          `mapstructure:"print_state"`
}

func (c *Config) IsDebug() bool                  { return c.Debug }
func (c *Config) IsVerbose() bool                { return c.Verbose }
func (c *Config) GetLogLevel() LogLevel          { return c.LogLevel }
func (c *Config) GetDelay() time.Duration        { return c.Delay }
func (c *Config) GetSettingsPath() string        { return c.SettingsPath }
func (c *Config) GetBacklight() string           { return c.Backlight }
func (c *Config) UseLogind() bool                { return c.Logind }
func (c *Config) GetSource() SourceKind          { return c.Source }
func (c *Config) GetPollInterval() time.Duration { return c.PollInterval }
func (c *Config) IsHistoryEnabled() bool         { return c.History }
func (c *Config) GetHistoryDBPath() string       { return c.HistoryDB }
func (c *Config) GetPIDFile() string             { return c.PIDFile }
func (c *Config) IsPrintState() bool             { return c.PrintState }

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if errs := c.validationErrors(); len(errs) > 0 {
		return errors.New().Wrap(errs[0].code, errs[0])
	}
	return nil
}

func (c *Config) validationErrors() []codedValidationError {
	var errs []codedValidationError

	if c.LogLevel != "" && !c.LogLevel.IsValid() {
		errs = append(errs, invalid(errors.ErrInvalidLogLevel, "log_level", c.LogLevel, "must be one of debug, info, warning, error"))
	}
	if c.Delay <= 0 {
		errs = append(errs, invalid(errors.ErrInvalidDelay, "delay", c.Delay, "must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, invalid(errors.ErrInvalidInterval, "poll_interval", c.PollInterval, "must be positive"))
	}
	if !c.Source.IsValid() {
		errs = append(errs, invalid(errors.ErrInvalidSource, "source", c.Source, "must be upower or sysfs"))
	}
	if c.SettingsPath == "" {
		errs = append(errs, invalid(errors.ErrInvalidConfig, "settings", c.SettingsPath, "must not be empty"))
	}
	if c.History && c.HistoryDB == "" {
		errs = append(errs, invalid(errors.ErrInvalidConfig, "history_db", c.HistoryDB, "required when history is enabled"))
	}

	return errs
}

// Manager loads configuration from defaults, the config file, the
// environment and command line flags, in increasing order of precedence.
type Manager struct {
	v      *viper.Viper
	flags  *pflag.FlagSet
	args   []string
	logger logger.Logger

	mu  sync.RWMutex
	cfg *Config
}

// NewManager returns a Manager that parses args (without the program name).
func NewManager(args []string) *Manager {
	m := &Manager{
		v:      viper.New(),
		flags:  pflag.NewFlagSet("acdcbright", pflag.ContinueOnError),
		args:   args,
		logger: logger.New("config"),
	}
	m.defineFlags()

	return m
}

// Flags exposes the flag set, for usage output.
func (m *Manager) Flags() *pflag.FlagSet {
	return m.flags
}

func (m *Manager) defineFlags() {
	f := m.flags
	f.String("config", "", "Path to the configuration file")
	f.Bool("debug", false, "Enable debugging mode")
	f.Bool("verbose", false, "Enable verbose logging")
	f.String("log-level", "", "Log level: debug, info, warning, error")
	f.Duration("delay", DefaultDelay, "Time to wait for the power source to settle")
	f.String("settings", DefaultSettingsPath, "Path to the brightness settings file")
	f.String("backlight", "", "Backlight device name (default: first found)")
	f.Bool("logind", false, "Write brightness through systemd-logind")
	f.String("source", string(SourceUPower), "Power source: upower or sysfs")
	f.Duration("poll-interval", DefaultPollInterval, "Polling interval of the sysfs source")
	f.Bool("history", false, "Record transitions in the history database")
	f.String("history-db", DefaultHistoryDB, "Path to the history database")
	f.String("pid-file", DefaultPIDFile, "Path to the PID file")
	f.Bool("print-state", false, "Print power source, brightness and settings, then exit")
}

// flagKeys maps config keys to flag names.
var flagKeys = map[string]string{
	"debug":         "debug",
	"verbose":       "verbose",
	"log_level":     "log-level",
	"delay":         "delay",
	"settings":      "settings",
	"backlight":     "backlight",
	"logind":        "logind",
	"source":        "source",
	"poll_interval": "poll-interval",
	"history":       "history",
	"history_db":    "history-db",
	"pid_file":      "pid-file",
	"print_state":   "print-state",
}

func (m *Manager) setDefaults() {
	m.v.SetDefault("debug", false)
	m.v.SetDefault("verbose", false)
	m.v.SetDefault("log_level", "")
	m.v.SetDefault("delay", DefaultDelay)
	m.v.SetDefault("settings", DefaultSettingsPath)
	m.v.SetDefault("backlight", "")
	m.v.SetDefault("logind", false)
	m.v.SetDefault("source", string(SourceUPower))
	m.v.SetDefault("poll_interval", DefaultPollInterval)
	m.v.SetDefault("history", false)
	m.v.SetDefault("history_db", DefaultHistoryDB)
	m.v.SetDefault("pid_file", DefaultPIDFile)
	m.v.SetDefault("print_state", false)
}

// Load parses flags, reads the config file and returns the validated
// configuration.
func (m *Manager) Load(_ context.Context, opts ...Option) (Provider, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if err := m.flags.Parse(m.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	m.setDefaults()

	m.v.SetEnvPrefix(o.envPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.v.AutomaticEnv()

	for key, name := range flagKeys {
		if err := m.v.BindPFlag(key, m.flags.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if err := m.readConfigFile(m.configPath(o)); err != nil {
		return nil, err
	}

	cfg, err := m.unmarshal()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	m.logger.Debug().
		Str("file", m.v.ConfigFileUsed()).
		Dur("delay", cfg.Delay).
		Str("source", string(cfg.Source)).
		Msg("Configuration loaded")

	return cfg, nil
}

// configPath resolves the config file: option, then --config, then the
// <PREFIX>_CONFIG environment variable. Empty means the default location.
func (m *Manager) configPath(o options) string {
	if o.configPath != "" {
		return o.configPath
	}
	if path, _ := m.flags.GetString("config"); path != "" {
		return path
	}

	return os.Getenv(o.envPrefix + "_CONFIG")
}

func (m *Manager) readConfigFile(path string) error {
	errFactory := errors.New()

	if path != "" {
		m.v.SetConfigFile(path)
		m.v.SetConfigType("toml")
		if err := m.v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	m.v.SetConfigName(DefaultConfigName)
	m.v.SetConfigType("toml")
	m.v.AddConfigPath(DefaultConfigDir)
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		m.logger.Debug().Msg("No configuration file found, using defaults")
	}

	return nil
}

func (m *Manager) unmarshal() (*Config, error) {
	errFactory := errors.New()

	cfg := &Config{}
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.LogLevel = LogLevel(strings.ToLower(string(cfg.LogLevel)))
	if cfg.LogLevel == "warn" {
		cfg.LogLevel = LogLevelWarning
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the most recently loaded configuration.
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg == nil {
		return errors.New().WithMessage(errors.ErrInvalidConfig, "configuration not loaded")
	}

	return m.cfg.Validate()
}

// Status returns the validation state of the loaded configuration.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg == nil {
		return Status{}
	}

	errs := m.cfg.validationErrors()
	status := Status{Valid: len(errs) == 0}
	for _, e := range errs {
		status.ValidationErrors = append(status.ValidationErrors, e)
	}

	return status
}

// Current returns the most recently loaded configuration.
func (m *Manager) Current() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch reloads the configuration whenever the config file changes and
// hands valid results to callback. Invalid files are logged and ignored.
// It blocks until ctx is done. Without a config file it only waits.
func (m *Manager) Watch(ctx context.Context, callback func(Provider)) error {
	file := m.v.ConfigFileUsed()
	if file == "" {
		m.logger.Debug().Msg("No configuration file to watch")
		<-ctx.Done()
		return nil
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}

		cfg, err := m.unmarshal()
		if err != nil {
			m.logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid configuration")
			return
		}

		m.mu.Lock()
		m.cfg = cfg
		m.mu.Unlock()

		m.logger.Info().Str("file", e.Name).Msg("Configuration reloaded")
		callback(cfg)
	})
	m.v.WatchConfig()

	m.logger.Debug().Str("file", file).Msg("Watching configuration file")
	<-ctx.Done()

	return nil
}

type codedValidationError struct {
	code   errors.ErrorCode
	field  string
	value  interface{}
	reason string
}

func invalid(code errors.ErrorCode, field string, value interface{}, reason string) codedValidationError {
	return codedValidationError{code: code, field: field, value: value, reason: reason}
}

func (e codedValidationError) Error() string {
	return fmt.Sprintf("%s %v %s", e.field, e.value, e.reason)
}

func (e codedValidationError) Field() string      { return e.field }
func (e codedValidationError) Value() interface{} { return e.value }
func (e codedValidationError) Reason() string     { return e.reason }
