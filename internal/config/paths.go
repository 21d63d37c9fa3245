package config

import (
	"os"
	"path/filepath"
)

var (
	homeDir string
)

func init() {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		homeDir = "~"
	}
}

// AppDir returns the repo-upgrade config directory path
// ~/.config/repo-upgrade/
func AppDir() string {
	if dir := os.Getenv("REPO_UPGRADE_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir, ".config", "repo-upgrade")
}

// ConfigPath returns the config.json file path
// ~/.config/repo-upgrade/config.json
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.json")
}

// RepositoriesDir returns the default checkout directory for added repositories
// ~/.config/repo-upgrade/repositories/
func RepositoriesDir() string {
	return filepath.Join(AppDir(), "repositories")
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

func dirOf(path string) string {
	return filepath.Dir(path)
}
