//go:build windows

package dirs

import (
	"errors"
	"os"
)

func dataDir(shared bool) (string, error) {
	name := "APPDATA"
	if shared {
		name = "PROGRAMDATA"
	}
	dir := os.Getenv(name)
	if dir == "" {
		return "", errors.New("%" + name + "% is not defined")
	}
	return dir, nil
}
