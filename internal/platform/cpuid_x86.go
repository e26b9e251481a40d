//go:build 386 || amd64

package platform

// hasCPUID reports whether the CPUID instruction is available.
const hasCPUID = true

// cpuid is implemented in cpuid_amd64.s and cpuid_386.s. ECX is cleared before the query.
func cpuid(leaf uint32) (eax, ebx, ecx, edx uint32)
