// Package profiling records CPU and heap profiles for one hostinfo run.
package profiling

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
)

// Config names the profile outputs. An empty path disables that profile.
type Config struct {
	CPUProfilePath string
	MemProfilePath string
}

// ProfilingEnabled reports whether any profile is requested.
func (c Config) ProfilingEnabled() bool {
	return c.CPUProfilePath != "" || c.MemProfilePath != ""
}

var (
	errStarted    = errors.New("profiling already started")
	errNotStarted = errors.New("profiling not started")
)

// Profiler holds one profiling session. The CPU profile covers the time
// between Start and Stop; the heap profile is taken at Stop.
type Profiler struct {
	cfg Config

	mu     sync.Mutex
	active bool
	cpuOut *os.File
}

// New returns a stopped Profiler.
func New(cfg Config) *Profiler {
	return &Profiler{cfg: cfg}
}

// Start begins CPU profiling when a CPU profile path is configured.
func (p *Profiler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return errStarted
	}
	if path := p.cfg.CPUProfilePath; path != "" {
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(out); err != nil {
			out.Close()
			os.Remove(path)
			return fmt.Errorf("cpu profile %s: %w", path, err)
		}
		p.cpuOut = out
	}
	p.active = true
	return nil
}

// Stop ends CPU profiling and writes the heap profile. Both steps run even
// when one fails.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return errNotStarted
	}
	p.active = false

	var cpuErr, heapErr error
	if p.cpuOut != nil {
		pprof.StopCPUProfile()
		if err := p.cpuOut.Close(); err != nil {
			cpuErr = fmt.Errorf("cpu profile: %w", err)
		}
		p.cpuOut = nil
	}
	if path := p.cfg.MemProfilePath; path != "" {
		if err := writeHeapProfile(path); err != nil {
			heapErr = fmt.Errorf("heap profile %s: %w", path, err)
		}
	}
	return errors.Join(cpuErr, heapErr)
}

// IsRunning reports whether Start has been called without a matching Stop.
func (p *Profiler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// writeHeapProfile collects garbage first so the profile shows live memory,
// then replaces path atomically.
func writeHeapProfile(path string) error {
	runtime.GC()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	werr := pprof.WriteHeapProfile(tmp)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}
	return os.Rename(tmp.Name(), path)
}
