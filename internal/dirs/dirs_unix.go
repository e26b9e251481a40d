//go:build !darwin && !windows

package dirs

import (
	"os"
	"path/filepath"
)

const sharedDataDir = "/usr/local/share"

// dataDir follows the XDG base directory layout.
func dataDir(shared bool) (string, error) {
	if shared {
		return sharedDataDir, nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
