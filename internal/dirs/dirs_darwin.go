//go:build darwin

package dirs

import (
	"os"
	"path/filepath"
)

const sharedDataDir = "/Library/Application Support"

func dataDir(shared bool) (string, error) {
	if shared {
		return sharedDataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support"), nil
}
