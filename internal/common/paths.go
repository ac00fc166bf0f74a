package common

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves ~ and $VAR references in a user-supplied path.
// Paths from config files and flags go through here before open.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			return os.ExpandEnv(home)
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			return os.ExpandEnv(filepath.Join(home, path[2:]))
		}
	}
	return os.ExpandEnv(path)
}
