package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/logger"
)

const DefaultPath = "settings.json"

// Validate checks that both values are within 0..=100.
func (s Settings) Validate() error {
	errFactory := errors.New()

	if !s.ACBrightness.Valid() {
		return errFactory.WithData(errors.ErrInvalidArgument, fmt.Sprintf("ac_brightness %d out of range", s.ACBrightness))
	}
	if !s.DCBrightness.Valid() {
		return errFactory.WithData(errors.ErrInvalidArgument, fmt.Sprintf("dc_brightness %d out of range", s.DCBrightness))
	}

	return nil
}

// FileStore keeps Settings as JSON in a single file.
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore returns a store for path, or DefaultPath if path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}

	return &FileStore{
		path:   path,
		logger: logger.New("settings"),
	}
}

func (f *FileStore) Path() string {
	return f.path
}

// Load reads the file. A missing file yields Default with no error; keys
// absent from the file keep their defaults.
func (f *FileStore) Load() (Settings, error) {
	errFactory := errors.New()
	s := Default()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Info().Str("path", f.path).Msg("No settings file, using defaults")
			return s, nil
		}
		return s, errFactory.Wrap(errors.ErrPersistence, err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), errFactory.Wrap(errors.ErrPersistence, err)
	}

	if err := s.Validate(); err != nil {
		return Default(), errFactory.Wrap(errors.ErrPersistence, err)
	}

	f.logger.Debug().
		Str("path", f.path).
		Int("ac_brightness", int(s.ACBrightness)).
		Int("dc_brightness", int(s.DCBrightness)).
		Msg("Loaded settings")

	return s, nil
}

// Save writes s to a temporary file next to the target and renames it into
// place.
func (f *FileStore) Save(s Settings) error {
	errFactory := errors.New()

	if err := s.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrPersistence, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errFactory.Wrap(errors.ErrPersistence, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return errFactory.Wrap(errors.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrPersistence, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrPersistence, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrPersistence, err)
	}

	f.logger.Debug().
		Str("path", f.path).
		Int("ac_brightness", int(s.ACBrightness)).
		Int("dc_brightness", int(s.DCBrightness)).
		Msg("Saved settings")

	return nil
}

// Shared guards the settings used by both the transition handler and the
// scheduled brightness command.
type Shared struct {
	mu      sync.Mutex
	current Settings
	store   Store
}

func NewShared(initial Settings, store Store) *Shared {
	return &Shared{
		current: initial,
		store:   store,
	}
}

// Get returns a copy of the current settings.
func (s *Shared) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to a copy, saves the result and only then makes it
// current. On error the in-memory settings are unchanged.
func (s *Shared) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)

	if err := s.store.Save(next); err != nil {
		return s.current, err
	}
	s.current = next

	return next, nil
}
