package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), settings)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
bluetooth_device_id: 1
scan_window_seconds: 10
power_event_scan_window_seconds: 7
passive_scan: true
log_level: debug
`)

	settings, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 1, settings.BluetoothDeviceID)
	assert.Equal(t, 10*time.Second, settings.UserScanWindow())
	assert.Equal(t, 7*time.Second, settings.PowerEventScanWindow())
	assert.True(t, settings.PassiveScan)
	assert.Equal(t, "debug", settings.LogLevel)
}

func TestLoad_PartialFileKeepsRemainingDefaults(t *testing.T) {
	path := writeSettings(t, "scan_window_seconds: 12\n")

	settings, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 12, settings.ScanWindowSeconds)
	assert.Equal(t, Default().PowerEventScanWindowSeconds, settings.PowerEventScanWindowSeconds)
	assert.Equal(t, Default().BluetoothDeviceID, settings.BluetoothDeviceID)
}

func TestLoad_InvalidYAMLIsAnErrorWithDefaults(t *testing.T) {
	path := writeSettings(t, "scan_window_seconds: [oops\n")

	settings, err := Load(path)

	assert.Error(t, err)
	assert.Equal(t, Default(), settings)
}

func TestLoad_NonPositiveWindowsFallBack(t *testing.T) {
	path := writeSettings(t, `
scan_window_seconds: 0
power_event_scan_window_seconds: -2
`)

	settings, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, Default().ScanWindowSeconds, settings.ScanWindowSeconds)
	assert.Equal(t, Default().PowerEventScanWindowSeconds, settings.PowerEventScanWindowSeconds)
}
