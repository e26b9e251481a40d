package platform

import (
	"fmt"
	"strings"
)

// remoteProcSource reads kernel tables on a remote Linux host.
type remoteProcSource struct {
	runner commandRunner
}

func (s *remoteProcSource) ReadFile(path string) ([]byte, error) {
	if !kernelPath(path) {
		return nil, fmt.Errorf("refusing to read %q: not a kernel table path", path)
	}
	out, err := s.runner.runCommand(shellCommand("cat", path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return []byte(out), nil
}

// ReadFiles fetches every path in one round trip with "grep -H .", which
// prefixes each non-empty line with its file name. Missing files are
// silenced so one absent attribute does not fail the batch.
func (s *remoteProcSource) ReadFiles(paths []string) map[string][]byte {
	out := make(map[string][]byte, len(paths))
	if len(paths) == 0 {
		return out
	}

	safe := make([]string, 0, len(paths))
	for _, p := range paths {
		if kernelPath(p) {
			safe = append(safe, p)
		}
	}
	if len(safe) == 0 {
		return out
	}

	output, err := s.runner.runCommand(shellCommand("grep -H .", safe...) + " 2>/dev/null; true")
	if err != nil {
		return out
	}
	return parseGrepOutput(output)
}

// parseGrepOutput splits "path:line" rows into per-file contents. Safe
// kernel paths never contain ':', so the first one ends the file name.
func parseGrepOutput(output string) map[string][]byte {
	files := make(map[string][]byte)
	for _, line := range strings.Split(output, "\n") {
		path, value, ok := strings.Cut(line, ":")
		if !ok || path == "" {
			continue
		}
		if prev, seen := files[path]; seen {
			files[path] = append(append(prev, '\n'), value...)
			continue
		}
		files[path] = []byte(value)
	}
	return files
}
