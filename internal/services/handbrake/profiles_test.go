package handbrake

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripline/internal/services"
)

func TestLoadProfilesResolvesFiles(t *testing.T) {
	dir := t.TempDir()
	index := `[
		{"id":"hevc","label":"HEVC 1080p","file_name":"hevc.json","preset_name":"HEVC 1080p"},
		{"id":"abs","label":"Absolute","file_name":"/etc/ripline/abs.json","preset_name":"Abs"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFileName), []byte(index), 0o644))

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, filepath.Join(dir, "hevc.json"), profiles[0].FileName)
	assert.Equal(t, "/etc/ripline/abs.json", profiles[1].FileName)

	found, err := FindProfile(profiles, "hevc")
	require.NoError(t, err)
	assert.Equal(t, "HEVC 1080p", found.PresetName)

	_, err = FindProfile(profiles, "av1")
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestLoadProfilesErrors(t *testing.T) {
	_, err := LoadProfiles(t.TempDir())
	assert.Equal(t, services.KindNotFound, services.Kind(err))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFileName), []byte("{"), 0o644))
	_, err = LoadProfiles(dir)
	assert.Equal(t, services.KindConfiguration, services.Kind(err))

	_, err = LoadProfiles(" ")
	assert.Equal(t, services.KindConfiguration, services.Kind(err))
}
