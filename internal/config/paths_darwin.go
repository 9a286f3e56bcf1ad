//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

const appDirName = "simpleprefs"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", appDirName)
	}
	return appDirName + "-data"
}

// configDir holds prefs.env. On macOS it shares the Application Support
// directory with the preference files.
func configDir() string {
	return defaultDataDir()
}
