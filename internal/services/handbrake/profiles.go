package handbrake

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ripline/internal/services"
)

// IndexFileName is the catalogue file inside the profiles directory.
const IndexFileName = "index.json"

// Profile is one selectable encoding preset.
type Profile struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	FileName   string `json:"file_name"`
	PresetName string `json:"preset_name"`
}

// LoadProfiles reads dir/index.json. FileName is returned joined onto dir
// unless the catalogue already lists an absolute path.
func LoadProfiles(dir string) ([]Profile, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "handbrake", "load profiles", "profiles path not configured", nil)
	}
	data, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		marker := services.ErrConfiguration
		if errors.Is(err, os.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "handbrake", "load profiles", "read "+IndexFileName, err)
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "handbrake", "load profiles", "parse "+IndexFileName, err)
	}
	for i := range profiles {
		if profiles[i].FileName != "" && !filepath.IsAbs(profiles[i].FileName) {
			profiles[i].FileName = filepath.Join(dir, profiles[i].FileName)
		}
	}
	return profiles, nil
}

// FindProfile returns the profile with the given id.
func FindProfile(profiles []Profile, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	for _, profile := range profiles {
		if profile.ID == id {
			return profile, nil
		}
	}
	return Profile{}, services.Wrap(services.ErrNotFound, "handbrake", "find profile", fmt.Sprintf("unknown encoding profile %q", id), nil)
}
