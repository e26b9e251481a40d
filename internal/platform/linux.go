//go:build linux

package platform

func newLocalPlatform(o options) Platform {
	return newHostPlatform("linux", func() (CPUProvider, MemoryProvider) {
		src := localProcSource{root: o.root}
		if o.root != "" {
			// A captured tree describes another machine: skip CPUID and sysinfo.
			return newLinuxCPUProvider(src, o.logger, tableOnly), &procMemoryProvider{src: src, log: o.logger}
		}
		return newLinuxCPUProvider(src, o.logger, localBrand), newLinuxMemoryProvider(o)
	})
}
