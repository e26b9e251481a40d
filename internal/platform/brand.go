package platform

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// brandQueryBytes is the size of the CPUID brand buffer: three leaves of
	// four 32-bit registers.
	brandQueryBytes = 48

	// brandTableCapacity bounds a brand read from a kernel table or sysctl.
	brandTableCapacity = 64

	cpuidExtendedMax   = 0x80000000
	cpuidBrandFirst    = 0x80000002
	cpuidBrandLast     = 0x80000004
	cpuidRegisterBytes = 4
)

// errBrandOverflow is returned when a write would exceed the buffer capacity.
var errBrandOverflow = errors.New("brand string exceeds buffer capacity")

// brandBuffer is a bounded append buffer. Every write checks the remaining
// capacity first, so a long source can never grow it past limit.
type brandBuffer struct {
	buf   []byte
	limit int
}

func newBrandBuffer(limit int) *brandBuffer {
	return &brandBuffer{buf: make([]byte, 0, limit), limit: limit}
}

// append adds p to the buffer, or leaves it untouched and returns
// errBrandOverflow if p does not fit.
func (b *brandBuffer) append(p []byte) error {
	if len(p) > b.limit-len(b.buf) {
		return errBrandOverflow
	}
	b.buf = append(b.buf, p...)
	return nil
}

func (b *brandBuffer) reset() {
	b.buf = b.buf[:0]
}

func (b *brandBuffer) len() int {
	return len(b.buf)
}

// String returns the finished brand, see finishBrand.
func (b *brandBuffer) String() (string, error) {
	return finishBrand(b.buf)
}

// finishBrand cuts raw at the first NUL and drops trailing space characters.
// Only ' ' is trimmed; tabs and other whitespace are part of the brand.
// The returned string is a fresh copy sized to the trimmed content.
func finishBrand(raw []byte) (string, error) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	end := len(raw)
	for end > 0 && raw[end-1] == ' ' {
		end--
	}
	if end == 0 {
		return "", ErrUnavailable
	}
	return string(raw[:end]), nil
}

// cpuidFunc issues one CPUID query and returns EAX, EBX, ECX and EDX.
type cpuidFunc func(leaf uint32) (eax, ebx, ecx, edx uint32)

// brandFromCPUID runs the extended-leaf capability probe and then the three
// brand leaves, concatenating the registers in query order.
func brandFromCPUID(query cpuidFunc) (string, error) {
	maxLeaf, _, _, _ := query(cpuidExtendedMax)
	if maxLeaf < cpuidBrandLast {
		return "", fmt.Errorf("%w: extended CPUID leaf 0x%x not supported", ErrUnavailable, uint32(cpuidBrandLast))
	}

	b := newBrandBuffer(brandQueryBytes)
	var word [cpuidRegisterBytes]byte
	for leaf := uint32(cpuidBrandFirst); leaf <= cpuidBrandLast; leaf++ {
		eax, ebx, ecx, edx := query(leaf)
		for _, reg := range [...]uint32{eax, ebx, ecx, edx} {
			binary.LittleEndian.PutUint32(word[:], reg)
			if err := b.append(word[:]); err != nil {
				return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}
	return b.String()
}

// boundedBrand copies value into a brandTableCapacity buffer and finishes it.
// Values longer than the capacity are rejected rather than truncated.
func boundedBrand(value string) (string, error) {
	b := newBrandBuffer(brandTableCapacity)
	if err := b.append([]byte(value)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return b.String()
}

// localBrand selects the identification strategy by instruction-set family:
// CPUID where it exists, otherwise the OS-provided table.
func localBrand(table func() (string, error)) (string, error) {
	if hasCPUID {
		return brandFromCPUID(cpuid)
	}
	return table()
}

// tableOnly always uses the OS-provided table.
func tableOnly(table func() (string, error)) (string, error) {
	return table()
}
