package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matty/go-lighthouse-manager/lighthouse"
)

func TestLoad_MissingFileMeansNoDevices(t *testing.T) {
	store := NewStore(t.TempDir())

	devices, err := store.Load()

	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.NotNil(t, devices)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "dir"))

	want := []lighthouse.DeviceRecord{
		{Name: "LHB-B91A", Address: "aa:bb:cc:dd:ee:f1"},
		{Name: "LHB-12CF", Address: "aa:bb:cc:dd:ee:f2"},
	}

	require.NoError(t, store.Save(want))

	got, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_PrettyPrintsFile(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save([]lighthouse.DeviceRecord{
		{Name: "LHB-B91A", Address: "aa:bb:cc:dd:ee:f1"},
	}))

	data, err := os.ReadFile(store.Path())

	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n  "), "cache file should be indented")
	assert.Contains(t, string(data), `"name": "LHB-B91A"`)
	assert.Contains(t, string(data), `"address": "aa:bb:cc:dd:ee:f1"`)
}

func TestSave_NilListWritesEmptyArray(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(nil))

	got, err := store.Load()

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.Load()

	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save([]lighthouse.DeviceRecord{
		{Name: "LHB-B91A", Address: "aa:bb:cc:dd:ee:f1"},
	}))
	require.NoError(t, store.Clear())

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))

	// clearing an already-empty cache is fine too.
	assert.NoError(t, store.Clear())
}
