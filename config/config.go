// Package config loads the optional YAML settings file. Everything has a
// working default; the file only exists for users who need to pin a
// different HCI device or tune the scan windows.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	Filename = "config.yaml"

	appDirName = "lighthouse-manager"
)

// Settings mirrors the YAML settings file. Durations are expressed in
// seconds to keep the file format obvious.
type Settings struct {
	BluetoothDeviceID           int    `yaml:"bluetooth_device_id"`
	ScanWindowSeconds           int    `yaml:"scan_window_seconds"`
	PowerEventScanWindowSeconds int    `yaml:"power_event_scan_window_seconds"`
	PassiveScan                 bool   `yaml:"passive_scan"`
	LogLevel                    string `yaml:"log_level"`
}

func Default() Settings {
	return Settings{
		BluetoothDeviceID:           0,
		ScanWindowSeconds:           5,
		PowerEventScanWindowSeconds: 3,
	}
}

// DefaultPath returns the well-known settings file location next to the
// device cache.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()

	if err != nil {
		return "", errors.Wrap(err, "failed to locate user config directory")
	}

	return filepath.Join(base, appDirName, Filename), nil
}

// Load reads the settings file at path, falling back to defaults when the
// file does not exist. Unknown keys are ignored; invalid YAML is an error.
func Load(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)

	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}

		return settings, errors.Wrap(err, "failed to read settings file")
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Default(), errors.Wrap(err, "failed to parse settings file")
	}

	if settings.ScanWindowSeconds <= 0 {
		settings.ScanWindowSeconds = Default().ScanWindowSeconds
	}

	if settings.PowerEventScanWindowSeconds <= 0 {
		settings.PowerEventScanWindowSeconds = Default().PowerEventScanWindowSeconds
	}

	return settings, nil
}

func (s Settings) UserScanWindow() time.Duration {
	return time.Duration(s.ScanWindowSeconds) * time.Second
}

func (s Settings) PowerEventScanWindow() time.Duration {
	return time.Duration(s.PowerEventScanWindowSeconds) * time.Second
}
