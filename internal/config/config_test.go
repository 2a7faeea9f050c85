package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/acdcbright/internal/config"
	"codeberg.org/mutker/acdcbright/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acdcbright.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
delay = "750ms"
settings = "/var/lib/acdcbright/settings.json"
backlight = "intel_backlight"
logind = true
source = "sysfs"
poll_interval = "5s"
log_level = "info"
history = true
history_db = "/tmp/history.db"
`)

	cfg, err := config.NewManager(nil).Load(context.Background(), config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.GetDelay())
	assert.Equal(t, "/var/lib/acdcbright/settings.json", cfg.GetSettingsPath())
	assert.Equal(t, "intel_backlight", cfg.GetBacklight())
	assert.True(t, cfg.UseLogind())
	assert.Equal(t, config.SourceSysfs, cfg.GetSource())
	assert.Equal(t, 5*time.Second, cfg.GetPollInterval())
	assert.Equal(t, config.LogLevelInfo, cfg.GetLogLevel())
	assert.True(t, cfg.IsHistoryEnabled())
	assert.Equal(t, "/tmp/history.db", cfg.GetHistoryDBPath())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := config.NewManager(nil).Load(context.Background(), config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultDelay, cfg.GetDelay())
	assert.Equal(t, config.DefaultSettingsPath, cfg.GetSettingsPath())
	assert.Equal(t, config.SourceUPower, cfg.GetSource())
	assert.Equal(t, config.DefaultPollInterval, cfg.GetPollInterval())
	assert.Equal(t, config.DefaultPIDFile, cfg.GetPIDFile())
	assert.Equal(t, config.LogLevel(""), cfg.GetLogLevel())
	assert.Empty(t, cfg.GetBacklight())
	assert.False(t, cfg.UseLogind())
	assert.False(t, cfg.IsHistoryEnabled())
	assert.False(t, cfg.IsPrintState())
	assert.False(t, cfg.IsDebug())
	assert.False(t, cfg.IsVerbose())
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
delay = "750ms"
source = "sysfs"
`)
	t.Setenv("ACDCBRIGHT_SOURCE", "upower")
	t.Setenv("ACDCBRIGHT_BACKLIGHT", "acpi_video0")

	m := config.NewManager([]string{"--delay", "1s", "--debug", "--print-state"})
	cfg, err := m.Load(context.Background(), config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.GetDelay(), "flag beats file")
	assert.Equal(t, config.SourceUPower, cfg.GetSource(), "env beats file")
	assert.Equal(t, "acpi_video0", cfg.GetBacklight())
	assert.True(t, cfg.IsDebug())
	assert.True(t, cfg.IsPrintState())
}

func TestConfigFileFromEnvironment(t *testing.T) {
	path := writeConfig(t, `delay = "2s"`)
	t.Setenv("ACDCBRIGHT_CONFIG", path)

	cfg, err := config.NewManager(nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.GetDelay())
}

func TestConfigFileFromFlag(t *testing.T) {
	path := writeConfig(t, `delay = "3s"`)

	cfg, err := config.NewManager([]string{"--config", path}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.GetDelay())
}

func TestCustomEnvPrefix(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("BRIGHT_DELAY", "250ms")

	cfg, err := config.NewManager(nil).Load(context.Background(),
		config.WithConfigFile(path),
		config.WithEnvPrefix("BRIGHT"))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.GetDelay())
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, "This is not a valid TOML file")

	_, err := config.NewManager(nil).Load(context.Background(), config.WithConfigFile(path))
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.NewManager(nil).Load(context.Background(),
		config.WithConfigFile(filepath.Join(t.TempDir(), "missing.conf")))
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := config.NewManager([]string{"--temperature", "80"}).Load(context.Background(),
		config.WithConfigFile(writeConfig(t, "")))
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"bad log level", `log_level = "loud"`, errors.ErrInvalidLogLevel},
		{"zero delay", `delay = "0s"`, errors.ErrInvalidDelay},
		{"negative delay", `delay = "-1s"`, errors.ErrInvalidDelay},
		{"zero poll interval", `poll_interval = "0s"`, errors.ErrInvalidInterval},
		{"unknown source", `source = "acpi"`, errors.ErrInvalidSource},
		{"history without database", "history = true\nhistory_db = \"\"", errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.NewManager(nil).Load(context.Background(), config.WithConfigFile(writeConfig(t, tt.content)))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestLogLevelNormalised(t *testing.T) {
	cfg, err := config.NewManager(nil).Load(context.Background(), config.WithConfigFile(writeConfig(t, `log_level = "WARN"`)))
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelWarning, cfg.GetLogLevel())
}

func TestManagerStatus(t *testing.T) {
	m := config.NewManager(nil)
	assert.False(t, m.Status().Valid)
	assert.Error(t, m.Validate())

	_, err := m.Load(context.Background(), config.WithConfigFile(writeConfig(t, "")))
	require.NoError(t, err)

	assert.True(t, m.Status().Valid)
	assert.Empty(t, m.Status().ValidationErrors)
	assert.NoError(t, m.Validate())
	assert.Equal(t, config.DefaultDelay, m.Current().GetDelay())
}

func TestLogLevelIsValid(t *testing.T) {
	assert.True(t, config.LogLevelDebug.IsValid())
	assert.True(t, config.LogLevelWarning.IsValid())
	assert.False(t, config.LogLevel("warn").IsValid())
	assert.Equal(t, "error", config.LogLevelError.String())
}

func TestWatchReloadsDelay(t *testing.T) {
	path := writeConfig(t, `delay = "500ms"`)

	m := config.NewManager(nil)
	_, err := m.Load(context.Background(), config.WithConfigFile(path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan config.Provider, 4)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(p config.Provider) {
			select {
			case reloaded <- p:
			default:
			}
		})
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`delay = "1500ms"`), 0o600)
		select {
		case p := <-reloaded:
			return p.GetDelay() == 1500*time.Millisecond
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchWithoutFileWaitsForCancel(t *testing.T) {
	m := config.NewManager(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, func(config.Provider) {}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return")
	}
}
