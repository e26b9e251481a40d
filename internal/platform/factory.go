package platform

import (
	"fmt"
	"runtime"
)

// NewPlatform creates the Platform implementation for the running OS.
func NewPlatform(opts ...Option) (Platform, error) {
	return NewPlatformForOS(runtime.GOOS, opts...)
}

// NewPlatformForOS creates a Platform for goos. Only the running OS can be
// introspected locally; other values return ErrUnsupported. Use
// NewRemotePlatform for another machine.
func NewPlatformForOS(goos string, opts ...Option) (Platform, error) {
	if goos != runtime.GOOS {
		return nil, fmt.Errorf("%w: %s (running on %s)", ErrUnsupported, goos, runtime.GOOS)
	}
	return newLocalPlatform(applyOptions(opts)), nil
}

// NewRemotePlatform returns a Platform for a Linux or macOS host reached
// over SSH. Only config is checked here; Initialize connects. The target
// needs nothing installed beyond cat, grep, sysctl and vm_stat.
func NewRemotePlatform(config RemoteConfig, opts ...Option) (Platform, error) {
	p, err := newSSHPlatform(config, applyOptions(opts))
	if err != nil {
		return nil, err
	}
	return p, nil
}
