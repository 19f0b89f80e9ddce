// Package config loads tally settings from defaults, an optional YAML
// file, TALLY_ environment variables and a local .env file.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// The in-memory database name is returned unchanged.
func ExpandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DataDir is where tally keeps its database, snapshots and exports by
// default.
func DataDir() string {
	return ExpandPath("$HOME/.local/share/tally")
}

// ConfigDir is searched for config.yaml.
func ConfigDir() string {
	return ExpandPath("$HOME/.config/tally")
}
