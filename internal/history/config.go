package history

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/acdcbright/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/acdcbright/history.db"
	defaultBatchSize    = 16
	defaultBatchTimeout = 5 * time.Second
	maxBufferedBatches  = 4
)

type Config struct {
	DBPath  string
	Enabled bool
	// BatchSize entries are buffered before a write; BatchTimeout bounds how
	// long an entry may wait in the buffer.
	BatchSize    int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if history is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, "negative batch settings")
	}
	return nil
}

// backupDir is next to the database.
func (c Config) backupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}
