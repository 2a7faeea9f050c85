// Package settings holds the per-source brightness the user last chose.
package settings

import "codeberg.org/mutker/acdcbright/internal/display"

// Settings is the persisted brightness for each power source.
type Settings struct {
	ACBrightness display.Brightness `json:"ac_brightness"`
	DCBrightness display.Brightness `json:"dc_brightness"`
}

// Store loads and saves Settings.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// Default returns full brightness on mains and zero on battery.
func Default() Settings {
	return Settings{
		ACBrightness: display.MaxBrightness,
		DCBrightness: display.MinBrightness,
	}
}
