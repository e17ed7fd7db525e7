// Package steamvr registers the manager with the SteamVR runtime so base
// stations are powered on when SteamVR starts and put in standby when it
// exits. Registration is file manipulation only: a vrmanifest is generated
// next to the device cache and its path is added to OpenVR's application
// config.
package steamvr

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	AppKey           = "com.github.matty.lighthouse-manager"
	ManifestFilename = "lighthouse-manager.vrmanifest"

	appDirName        = "lighthouse-manager"
	openvrDirName     = "openvr"
	pathsFilename     = "openvrpaths.vrpath"
	appConfigFilename = "appconfig.json"

	// Dev override commonly used to point at a non-default runtime.
	vrOverrideEnvVar = "VR_OVERRIDE"
)

var ErrRuntimeNotFound = errors.New("steamvr runtime not found")

// Integration wires the manager into a SteamVR installation. The directories
// are explicit so tests can point everything at temporary locations.
type Integration struct {
	// Where the generated manifest lives.
	DataDir string
	// OpenVR's own config directory, holding openvrpaths.vrpath and
	// appconfig.json.
	OpenVRDir string
	// Absolute path of the binary SteamVR should invoke.
	ExePath string
}

func NewIntegration() (*Integration, error) {
	base, err := os.UserConfigDir()

	if err != nil {
		return nil, errors.Wrap(err, "failed to locate user config directory")
	}

	exe, err := os.Executable()

	if err != nil {
		return nil, errors.Wrap(err, "failed to locate own executable")
	}

	return &Integration{
		DataDir:   filepath.Join(base, appDirName),
		OpenVRDir: filepath.Join(base, openvrDirName),
		ExePath:   exe,
	}, nil
}

func (i *Integration) ManifestPath() string {
	return filepath.Join(i.DataDir, ManifestFilename)
}

type manifest struct {
	Source       string        `json:"source"`
	Applications []application `json:"applications"`
}

type application struct {
	AppKey          string                       `json:"app_key"`
	LaunchType      string                       `json:"launch_type"`
	BinaryPathLinux string                       `json:"binary_path_linux"`
	Arguments       string                       `json:"arguments"`
	IsDashboard     bool                         `json:"is_dashboard_overlay"`
	Strings         map[string]map[string]string `json:"strings"`
}

// WriteManifest renders the vrmanifest with the current binary path. SteamVR
// invokes the binary with the power-event flag when the runtime starts.
func (i *Integration) WriteManifest() error {
	m := manifest{
		Source: "builtin",
		Applications: []application{{
			AppKey:          AppKey,
			LaunchType:      "binary",
			BinaryPathLinux: i.ExePath,
			Arguments:       "--steamvr-started",
			Strings: map[string]map[string]string{
				"en_us": {
					"name":        "Lighthouse Manager",
					"description": "Powers Lighthouse base stations on and off with SteamVR",
				},
			},
		}},
	}

	data, err := json.MarshalIndent(m, "", "  ")

	if err != nil {
		return errors.Wrap(err, "failed to serialize manifest")
	}

	if err := os.MkdirAll(i.DataDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create manifest directory")
	}

	if err := os.WriteFile(i.ManifestPath(), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write manifest")
	}

	log.Debug().Str("Path", i.ManifestPath()).Msg("steamvr: wrote application manifest")

	return nil
}

// RuntimeDir locates the SteamVR runtime: the openvrpaths file first, then
// the VR_OVERRIDE environment variable, then well-known Steam library
// locations.
func (i *Integration) RuntimeDir() (string, error) {
	if dir, ok := runtimeFromPathsFile(filepath.Join(i.OpenVRDir, pathsFilename)); ok {
		return dir, nil
	}

	if override := os.Getenv(vrOverrideEnvVar); override != "" {
		if info, err := os.Stat(override); err == nil && info.IsDir() {
			return override, nil
		}
	}

	home, err := os.UserHomeDir()

	if err == nil {
		candidates := []string{
			filepath.Join(home, ".steam", "steam", "steamapps", "common", "SteamVR"),
			filepath.Join(home, ".local", "share", "Steam", "steamapps", "common", "SteamVR"),
		}

		for _, dir := range candidates {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir, nil
			}
		}
	}

	return "", ErrRuntimeNotFound
}

// runtimeFromPathsFile parses openvrpaths.vrpath, where "runtime" can be a
// string or an array of strings depending on the OpenVR version.
func runtimeFromPathsFile(path string) (string, bool) {
	data, err := os.ReadFile(path)

	if err != nil {
		return "", false
	}

	var paths struct {
		Runtime json.RawMessage `json:"runtime"`
	}

	if err := json.Unmarshal(data, &paths); err != nil || paths.Runtime == nil {
		return "", false
	}

	var single string

	if err := json.Unmarshal(paths.Runtime, &single); err == nil {
		if info, err := os.Stat(single); err == nil && info.IsDir() {
			return single, true
		}

		return "", false
	}

	var list []string

	if err := json.Unmarshal(paths.Runtime, &list); err == nil && len(list) > 0 {
		if info, err := os.Stat(list[0]); err == nil && info.IsDir() {
			return list[0], true
		}
	}

	return "", false
}

func (i *Integration) appConfigPath() string {
	return filepath.Join(i.OpenVRDir, appConfigFilename)
}

// loadAppConfig reads OpenVR's appconfig.json as a generic object so
// unrelated keys survive a rewrite. A missing file yields an empty config.
func (i *Integration) loadAppConfig() (map[string]any, []string, error) {
	cfg := make(map[string]any)

	data, err := os.ReadFile(i.appConfigPath())

	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}

		return nil, nil, errors.Wrap(err, "failed to read openvr appconfig")
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse openvr appconfig")
	}

	var manifests []string

	if raw, ok := cfg["manifest_paths"].([]any); ok {
		for _, entry := range raw {
			if s, ok := entry.(string); ok {
				manifests = append(manifests, s)
			}
		}
	}

	return cfg, manifests, nil
}

func (i *Integration) saveAppConfig(cfg map[string]any, manifests []string) error {
	cfg["manifest_paths"] = manifests

	data, err := json.MarshalIndent(cfg, "", "  ")

	if err != nil {
		return errors.Wrap(err, "failed to serialize openvr appconfig")
	}

	if err := os.MkdirAll(i.OpenVRDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create openvr config directory")
	}

	if err := os.WriteFile(i.appConfigPath(), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write openvr appconfig")
	}

	return nil
}

// Register generates the manifest and adds it to OpenVR's manifest list.
// Registering twice is a no-op.
func (i *Integration) Register() error {
	if err := i.WriteManifest(); err != nil {
		return err
	}

	if _, err := i.RuntimeDir(); err != nil {
		// Registration still works, SteamVR just isn't installed yet.
		log.Warn().Err(err).Msg("steamvr: runtime not found, registering anyway")
	}

	cfg, manifests, err := i.loadAppConfig()

	if err != nil {
		return err
	}

	for _, existing := range manifests {
		if existing == i.ManifestPath() {
			log.Debug().Msg("steamvr: manifest already registered")
			return nil
		}
	}

	manifests = append(manifests, i.ManifestPath())

	return i.saveAppConfig(cfg, manifests)
}

// Unregister removes the manifest from OpenVR's manifest list and deletes
// the manifest file. Unregistering when not registered is a no-op.
func (i *Integration) Unregister() error {
	cfg, manifests, err := i.loadAppConfig()

	if err != nil {
		return err
	}

	kept := manifests[:0]

	for _, existing := range manifests {
		if existing != i.ManifestPath() {
			kept = append(kept, existing)
		}
	}

	if len(kept) != len(manifests) {
		if err := i.saveAppConfig(cfg, kept); err != nil {
			return err
		}
	}

	if err := os.Remove(i.ManifestPath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove manifest")
	}

	return nil
}

// Registered reports whether the manifest is present in OpenVR's manifest
// list.
func (i *Integration) Registered() (bool, error) {
	_, manifests, err := i.loadAppConfig()

	if err != nil {
		return false, err
	}

	for _, existing := range manifests {
		if existing == i.ManifestPath() {
			return true, nil
		}
	}

	return false, nil
}
