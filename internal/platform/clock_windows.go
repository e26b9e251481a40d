//go:build windows

package platform

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var qpcFrequency = sync.OnceValues(func() (int64, error) {
	var freq int64
	if err := procQueryPerformanceFrequency.Find(); err != nil {
		return 0, err
	}
	ret, _, err := procQueryPerformanceFrequency.Call(uintptr(unsafe.Pointer(&freq)))
	if ret == 0 {
		return 0, fmt.Errorf("QueryPerformanceFrequency: %w", err)
	}
	if freq <= 0 {
		return 0, errors.New("QueryPerformanceFrequency returned a non-positive frequency")
	}
	return freq, nil
})

func readMonotonic() (float64, error) {
	freq, err := qpcFrequency()
	if err != nil {
		return 0, err
	}
	var counter int64
	ret, _, err := procQueryPerformanceCounter.Call(uintptr(unsafe.Pointer(&counter)))
	if ret == 0 {
		return 0, fmt.Errorf("QueryPerformanceCounter: %w", err)
	}
	return float64(counter) / float64(freq), nil
}
