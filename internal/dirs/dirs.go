// Package dirs resolves the per-OS locations an application persists data
// in: the user or shared data directory, an application's own directory
// below it, and the directory holding bundled resources.
package dirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidAppName reports an application name that cannot be used as a
// single path element.
var ErrInvalidAppName = errors.New("invalid application name")

// DataDir returns the base directory for application data. shared selects
// the machine-wide location instead of the current user's.
func DataDir(shared bool) (string, error) {
	dir, err := dataDir(shared)
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	if dir == "" {
		return "", errors.New("resolving data directory: empty path")
	}
	return dir, nil
}

// AppDataDir returns DataDir joined with appName. The directory is not
// created; see EnsureAppDataDir.
func AppDataDir(appName string, shared bool) (string, error) {
	if err := validateAppName(appName); err != nil {
		return "", err
	}
	base, err := DataDir(shared)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// EnsureAppDataDir resolves AppDataDir and creates it, with any missing
// parents, when it does not exist yet.
func EnsureAppDataDir(appName string, shared bool) (string, error) {
	dir, err := AppDataDir(appName, shared)
	if err != nil {
		return "", err
	}
	if Exists(dir) {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// ResourcesDir returns the directory holding files shipped with the
// executable. Inside a macOS application bundle that is
// Contents/Resources; everywhere else it is the executable's directory.
func ResourcesDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return resourcesDirFor(exe), nil
}

// resourcesDirFor maps an executable path to its resources directory.
func resourcesDirFor(exe string) string {
	dir := filepath.Dir(exe)
	contents := filepath.Dir(dir)
	bundle := filepath.Dir(contents)
	if filepath.Base(dir) == "MacOS" &&
		filepath.Base(contents) == "Contents" &&
		strings.HasSuffix(filepath.Base(bundle), ".app") {
		return filepath.Join(contents, "Resources")
	}
	return dir
}

// Create makes a single directory with mode 0777 before umask. It fails if
// the directory already exists or its parent is missing.
func Create(path string) error {
	if err := os.Mkdir(path, 0o777); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return nil
}

// Exists reports whether path names an existing directory.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func validateAppName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidAppName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidAppName, name)
	}
	return nil
}
