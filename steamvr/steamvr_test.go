package steamvr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntegration(t *testing.T) *Integration {
	t.Helper()

	base := t.TempDir()

	return &Integration{
		DataDir:   filepath.Join(base, "lighthouse-manager"),
		OpenVRDir: filepath.Join(base, "openvr"),
		ExePath:   "/usr/local/bin/lighthouse-manager",
	}
}

func readManifests(t *testing.T, i *Integration) []string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(i.OpenVRDir, "appconfig.json"))
	require.NoError(t, err)

	var cfg struct {
		ManifestPaths []string `json:"manifest_paths"`
	}

	require.NoError(t, json.Unmarshal(data, &cfg))

	return cfg.ManifestPaths
}

func TestWriteManifest(t *testing.T) {
	i := testIntegration(t)

	require.NoError(t, i.WriteManifest())

	data, err := os.ReadFile(i.ManifestPath())
	require.NoError(t, err)

	var m struct {
		Source       string `json:"source"`
		Applications []struct {
			AppKey          string `json:"app_key"`
			BinaryPathLinux string `json:"binary_path_linux"`
			Arguments       string `json:"arguments"`
		} `json:"applications"`
	}

	require.NoError(t, json.Unmarshal(data, &m))
	require.Len(t, m.Applications, 1)
	assert.Equal(t, AppKey, m.Applications[0].AppKey)
	assert.Equal(t, i.ExePath, m.Applications[0].BinaryPathLinux)
	assert.Equal(t, "--steamvr-started", m.Applications[0].Arguments)
}

func TestRegister_CreatesManifestAndAppConfig(t *testing.T) {
	i := testIntegration(t)

	require.NoError(t, i.Register())

	_, err := os.Stat(i.ManifestPath())
	assert.NoError(t, err)
	assert.Equal(t, []string{i.ManifestPath()}, readManifests(t, i))

	registered, err := i.Registered()
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestRegister_IsIdempotent(t *testing.T) {
	i := testIntegration(t)

	require.NoError(t, i.Register())
	require.NoError(t, i.Register())

	assert.Equal(t, []string{i.ManifestPath()}, readManifests(t, i))
}

func TestRegister_PreservesUnrelatedAppConfigKeys(t *testing.T) {
	i := testIntegration(t)

	require.NoError(t, os.MkdirAll(i.OpenVRDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(i.OpenVRDir, "appconfig.json"),
		[]byte(`{"jsonid": "vrappconfig", "version": 1, "manifest_paths": ["/other/app.vrmanifest"]}`),
		0o644,
	))

	require.NoError(t, i.Register())

	data, err := os.ReadFile(filepath.Join(i.OpenVRDir, "appconfig.json"))
	require.NoError(t, err)

	var cfg map[string]any

	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, "vrappconfig", cfg["jsonid"])
	assert.Equal(t, float64(1), cfg["version"])
	assert.Equal(t,
		[]string{"/other/app.vrmanifest", i.ManifestPath()},
		readManifests(t, i),
	)
}

func TestUnregister_RemovesEntryAndManifest(t *testing.T) {
	i := testIntegration(t)

	require.NoError(t, i.Register())
	require.NoError(t, i.Unregister())

	assert.Empty(t, readManifests(t, i))

	_, err := os.Stat(i.ManifestPath())
	assert.True(t, os.IsNotExist(err))

	registered, err := i.Registered()
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestUnregister_KeepsOtherManifests(t *testing.T) {
	i := testIntegration(t)

	require.NoError(t, os.MkdirAll(i.OpenVRDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(i.OpenVRDir, "appconfig.json"),
		[]byte(`{"manifest_paths": ["/other/app.vrmanifest"]}`),
		0o644,
	))

	require.NoError(t, i.Register())
	require.NoError(t, i.Unregister())

	assert.Equal(t, []string{"/other/app.vrmanifest"}, readManifests(t, i))
}

func TestUnregister_WhenNeverRegistered(t *testing.T) {
	i := testIntegration(t)

	assert.NoError(t, i.Unregister())
}

func TestRegistered_NoAppConfig(t *testing.T) {
	i := testIntegration(t)

	registered, err := i.Registered()

	require.NoError(t, err)
	assert.False(t, registered)
}

func TestRuntimeFromPathsFile_StringForm(t *testing.T) {
	dir := t.TempDir()
	runtime := filepath.Join(dir, "SteamVR")
	require.NoError(t, os.MkdirAll(runtime, 0o755))

	path := filepath.Join(dir, "openvrpaths.vrpath")
	contents, err := json.Marshal(map[string]any{"runtime": runtime})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	got, ok := runtimeFromPathsFile(path)

	require.True(t, ok)
	assert.Equal(t, runtime, got)
}

func TestRuntimeFromPathsFile_ArrayForm(t *testing.T) {
	dir := t.TempDir()
	runtime := filepath.Join(dir, "SteamVR")
	require.NoError(t, os.MkdirAll(runtime, 0o755))

	path := filepath.Join(dir, "openvrpaths.vrpath")
	contents, err := json.Marshal(map[string]any{"runtime": []string{runtime, "/elsewhere"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	got, ok := runtimeFromPathsFile(path)

	require.True(t, ok)
	assert.Equal(t, runtime, got)
}

func TestRuntimeFromPathsFile_MissingDirectory(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "openvrpaths.vrpath")
	contents, err := json.Marshal(map[string]any{"runtime": filepath.Join(dir, "gone")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	_, ok := runtimeFromPathsFile(path)

	assert.False(t, ok)
}

func TestRuntimeDir_NotFound(t *testing.T) {
	i := testIntegration(t)

	t.Setenv("VR_OVERRIDE", "")
	t.Setenv("HOME", t.TempDir())

	_, err := i.RuntimeDir()

	assert.ErrorIs(t, err, ErrRuntimeNotFound)
}

func TestRuntimeDir_VROverride(t *testing.T) {
	i := testIntegration(t)

	override := t.TempDir()
	t.Setenv("VR_OVERRIDE", override)

	got, err := i.RuntimeDir()

	require.NoError(t, err)
	assert.Equal(t, override, got)
}
