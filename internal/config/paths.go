package config

import (
	"os"
	"path/filepath"
)

// TaskrelayPath returns the root directory for taskrelay data.
// It uses $TASKRELAY_PATH if set, otherwise defaults to ~/.taskrelay.
func TaskrelayPath() string {
	if v := os.Getenv("TASKRELAY_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".taskrelay")
	}
	return filepath.Join(home, ".taskrelay")
}

// ConfigPath returns the path to the taskrelay config file.
func ConfigPath() string {
	return filepath.Join(TaskrelayPath(), "config.jsonc")
}

// DotenvPath returns the path to the taskrelay .env file.
func DotenvPath() string {
	return filepath.Join(TaskrelayPath(), ".env")
}
