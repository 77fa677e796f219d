package config

import (
	"log/slog"

	"github.com/abdulachik/simulpost/internal/filestore"
	"github.com/abdulachik/simulpost/internal/platform"
)

// UserConfig holds non-secret preferences that survive between runs.
// Platform lists are kept in display order.
type UserConfig struct {
	SelectedPlatforms   []platform.ID
	AuthorizedPlatforms []platform.ID

	file *filestore.File
}

// userConfigFile is the on-disk form: platform name to flag.
type userConfigFile struct {
	SelectedPlatforms   map[string]bool `json:"selected_platforms"`
	AuthorizedPlatforms map[string]bool `json:"authorized_platforms"`
}

// LoadUserConfig reads the preferences at path. A missing or malformed file
// yields empty preferences. Unknown platform names are dropped.
func LoadUserConfig(path string) *UserConfig {
	uc := &UserConfig{file: filestore.New(path)}

	var raw userConfigFile
	if _, err := uc.file.Read(&raw); err != nil {
		slog.Warn("ignoring unreadable user config", "path", path,
			"kind", platform.KindOf(err), "error", err)
		return uc
	}

	uc.SelectedPlatforms = enabled(raw.SelectedPlatforms)
	uc.AuthorizedPlatforms = enabled(raw.AuthorizedPlatforms)
	return uc
}

// Save writes the preferences back to their file. Every platform is written
// with an explicit flag.
func (u *UserConfig) Save() error {
	return u.file.Write(userConfigFile{
		SelectedPlatforms:   flags(u.SelectedPlatforms),
		AuthorizedPlatforms: flags(u.AuthorizedPlatforms),
	})
}

// Select replaces the selected platforms.
func (u *UserConfig) Select(ids []platform.ID) {
	u.SelectedPlatforms = enabled(flags(ids))
}

// SetAuthorized adds id to or removes it from the authorized list.
func (u *UserConfig) SetAuthorized(id platform.ID, ok bool) {
	m := flags(u.AuthorizedPlatforms)
	if id.Known() {
		m[string(id)] = ok
	}
	u.AuthorizedPlatforms = enabled(m)
}

func flags(ids []platform.ID) map[string]bool {
	m := make(map[string]bool, len(platform.All))
	for _, id := range platform.All {
		m[string(id)] = false
	}
	for _, id := range ids {
		if id.Known() {
			m[string(id)] = true
		}
	}
	return m
}

func enabled(m map[string]bool) []platform.ID {
	var ids []platform.ID
	for _, id := range platform.All {
		if m[string(id)] {
			ids = append(ids, id)
		}
	}
	return ids
}
