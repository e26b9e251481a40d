package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// procSource reads kernel-exposed text tables. The local implementation reads
// the filesystem; the remote one runs commands over SSH.
type procSource interface {
	ReadFile(path string) ([]byte, error)
	// ReadFiles returns the contents of every readable path. Unreadable
	// paths are absent from the result.
	ReadFiles(paths []string) map[string][]byte
}

// localProcSource reads absolute kernel paths below root.
type localProcSource struct {
	root string
}

func (s localProcSource) path(p string) string {
	if s.root == "" {
		return p
	}
	return filepath.Join(s.root, p)
}

func (s localProcSource) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(s.path(path))
}

func (s localProcSource) ReadFiles(paths []string) map[string][]byte {
	out := make(map[string][]byte, len(paths))
	for _, p := range paths {
		if data, err := os.ReadFile(s.path(p)); err == nil {
			out[p] = data
		}
	}
	return out
}

// readTrimmed reads path from src and returns its trimmed contents.
func readTrimmed(src procSource, path string) (string, error) {
	data, err := src.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
