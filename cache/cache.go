// Package cache persists the list of known base stations as a single JSON
// file in the per-user application data directory. Writes replace the whole
// file; there is no locking, concurrent invocations race and the last writer
// wins.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/matty/go-lighthouse-manager/lighthouse"
)

const (
	Filename = "lighthouse_devices.json"

	appDirName = "lighthouse-manager"
)

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore roots the cache in the user's configuration directory.
func DefaultStore() (*Store, error) {
	base, err := os.UserConfigDir()

	if err != nil {
		return nil, errors.Wrap(err, "failed to locate user config directory")
	}

	return NewStore(filepath.Join(base, appDirName)), nil
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, Filename)
}

// Load reads the cached device list. A missing file means no cached devices,
// not an error.
func (s *Store) Load() ([]lighthouse.DeviceRecord, error) {
	data, err := os.ReadFile(s.Path())

	if err != nil {
		if os.IsNotExist(err) {
			return []lighthouse.DeviceRecord{}, nil
		}

		return nil, errors.Wrap(err, "failed to read device cache")
	}

	log.Debug().Str("Path", s.Path()).Msg("cache: loading device list")

	var devices []lighthouse.DeviceRecord

	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, errors.Wrap(err, "failed to parse device cache")
	}

	return devices, nil
}

// Save replaces the cache file with the given device list, creating the
// cache directory if needed.
func (s *Store) Save(devices []lighthouse.DeviceRecord) error {
	if devices == nil {
		devices = []lighthouse.DeviceRecord{}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}

	data, err := json.MarshalIndent(devices, "", "  ")

	if err != nil {
		return errors.Wrap(err, "failed to serialize device cache")
	}

	log.Debug().
		Str("Path", s.Path()).
		Int("Devices", len(devices)).
		Msg("cache: saving device list")

	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write device cache")
	}

	return nil
}

// Clear removes the cache file. Clearing an absent cache is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.Path())

	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove device cache")
	}

	return nil
}
