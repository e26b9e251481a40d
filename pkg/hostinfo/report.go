package hostinfo

import (
	"context"
	"errors"

	"github.com/klauspost/cpuid/v2"
)

// StaticInfo holds the values that do not change while a host is running.
// It is what Cache memoizes.
type StaticInfo struct {
	Hostname string `json:"hostname" yaml:"hostname" cbor:"hostname"`
	Platform string `json:"platform" yaml:"platform" cbor:"platform"`
	OS       string `json:"os" yaml:"os" cbor:"os"`
	Arch     string `json:"arch,omitempty" yaml:"arch,omitempty" cbor:"arch,omitempty"`

	LogicalCores     int `json:"logical_cores" yaml:"logical_cores" cbor:"logical_cores"`
	PhysicalCores    int `json:"physical_cores" yaml:"physical_cores" cbor:"physical_cores"`
	PerformanceCores int `json:"performance_cores" yaml:"performance_cores" cbor:"performance_cores"`

	// Brand is empty when the brand string is unavailable.
	Brand    string   `json:"brand,omitempty" yaml:"brand,omitempty" cbor:"brand,omitempty"`
	Vendor   string   `json:"vendor,omitempty" yaml:"vendor,omitempty" cbor:"vendor,omitempty"`
	Family   int      `json:"family,omitempty" yaml:"family,omitempty" cbor:"family,omitempty"`
	Model    int      `json:"model,omitempty" yaml:"model,omitempty" cbor:"model,omitempty"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty" cbor:"features,omitempty"`

	TotalRAMBytes int64 `json:"total_ram_bytes" yaml:"total_ram_bytes" cbor:"total_ram_bytes"`
}

// Report is a full snapshot: the static values plus the live ones.
type Report struct {
	StaticInfo `yaml:",inline"`

	FreeRAMBytes int64   `json:"free_ram_bytes" yaml:"free_ram_bytes" cbor:"free_ram_bytes"`
	Clock        float64 `json:"clock_seconds" yaml:"clock_seconds" cbor:"clock_seconds"`
}

// Static queries every static value. Only an unexpected brand failure or a
// cancelled ctx is returned as an error; unavailable values are left at
// their sentinels.
func (h *Host) Static(ctx context.Context) (StaticInfo, error) {
	if err := ctx.Err(); err != nil {
		return StaticInfo{}, err
	}

	s := StaticInfo{
		Hostname:         h.hostname,
		Platform:         h.Name(),
		OS:               h.goos,
		Arch:             h.arch,
		LogicalCores:     h.LogicalCoreCount(),
		PhysicalCores:    h.PhysicalCoreCount(),
		PerformanceCores: h.PerformanceCoreCount(),
		TotalRAMBytes:    h.TotalRAMBytes(),
	}

	brand, err := h.CPUBrandName()
	switch {
	case err == nil:
		s.Brand = brand
	case errors.Is(err, ErrUnavailable):
		h.log.Debug("cpu brand unavailable", "error", err)
	default:
		return StaticInfo{}, err
	}

	if h.local {
		fillCPUID(&s)
	}
	return s, nil
}

// Report returns the static values together with free RAM and a clock
// reading, all queried now.
func (h *Host) Report(ctx context.Context) (Report, error) {
	s, err := h.Static(ctx)
	if err != nil {
		return Report{}, err
	}
	return h.withLive(s), nil
}

func (h *Host) withLive(s StaticInfo) Report {
	return Report{
		StaticInfo:   s,
		FreeRAMBytes: h.FreeRAMBytes(),
		Clock:        h.Now(),
	}
}

// fillCPUID adds vendor details decoded by the cpuid package. Hosts where
// it detects nothing are left untouched.
func fillCPUID(s *StaticInfo) {
	if cpuid.CPU.VendorID == cpuid.VendorUnknown && cpuid.CPU.VendorString == "" {
		return
	}
	s.Vendor = cpuid.CPU.VendorString
	s.Family = cpuid.CPU.Family
	s.Model = cpuid.CPU.Model
	s.Features = cpuid.CPU.FeatureSet()
}
