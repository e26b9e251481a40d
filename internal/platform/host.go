package platform

import (
	"context"
	"sync"
)

// hostPlatform is the Platform shell shared by the local implementations.
// Providers are built on Initialize.
type hostPlatform struct {
	mu     sync.RWMutex
	name   string
	clock  ClockSource
	build  func() (CPUProvider, MemoryProvider)
	cpu    CPUProvider
	memory MemoryProvider
}

func newHostPlatform(name string, build func() (CPUProvider, MemoryProvider)) *hostPlatform {
	return &hostPlatform{name: name, clock: NewClock(), build: build}
}

func (p *hostPlatform) Name() string {
	return p.name
}

func (p *hostPlatform) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cpu, p.memory = p.build()
	return nil
}

func (p *hostPlatform) Close() error {
	return nil
}

func (p *hostPlatform) Clock() ClockSource {
	return p.clock
}

func (p *hostPlatform) CPU() CPUProvider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cpu
}

func (p *hostPlatform) Memory() MemoryProvider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.memory
}
