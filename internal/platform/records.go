package platform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// Layout of SYSTEM_LOGICAL_PROCESSOR_INFORMATION_EX with a
// PROCESSOR_RELATIONSHIP payload.
const (
	recordHeaderSize       = 8
	recordSizeOffset       = 4
	relationProcessorCore  = 0
	efficiencyClassOffset  = 9
	groupCountOffset       = 30
	groupMaskOffset        = 32
	groupAffinityTrailSize = 8 // Group WORD + Reserved[3] WORD
)

var errMalformedRecord = errors.New("malformed topology record")

// walkRecords calls fn for every variable-length record in buf. Each record
// declares its own size at recordSizeOffset; the walk stops only when the
// consumed byte count equals len(buf).
func walkRecords(buf []byte, fn func(relationship uint32, rec []byte) error) error {
	for off := 0; off < len(buf); {
		if len(buf)-off < recordHeaderSize {
			return fmt.Errorf("%w: %d trailing bytes at offset %d", errMalformedRecord, len(buf)-off, off)
		}
		size := int(binary.LittleEndian.Uint32(buf[off+recordSizeOffset:]))
		if size < recordHeaderSize {
			return fmt.Errorf("%w: size %d at offset %d", errMalformedRecord, size, off)
		}
		if size > len(buf)-off {
			return fmt.Errorf("%w: size %d overruns buffer at offset %d", errMalformedRecord, size, off)
		}
		rec := buf[off : off+size]
		if err := fn(binary.LittleEndian.Uint32(rec), rec); err != nil {
			return err
		}
		off += size
	}
	return nil
}

// coreRecord is the decoded form of one processor-core record.
type coreRecord struct {
	efficiencyClass int
	logical         int
}

// decodeCoreRecord reads the efficiency class and counts the logical
// processors set in the group affinity masks. maskSize is the platform
// KAFFINITY width in bytes.
func decodeCoreRecord(rec []byte, maskSize int) (coreRecord, error) {
	if len(rec) < groupMaskOffset {
		return coreRecord{}, fmt.Errorf("%w: core record of %d bytes", errMalformedRecord, len(rec))
	}
	r := coreRecord{efficiencyClass: int(rec[efficiencyClassOffset])}

	groups := int(binary.LittleEndian.Uint16(rec[groupCountOffset:]))
	stride := maskSize + groupAffinityTrailSize
	if groupMaskOffset+groups*stride > len(rec) {
		return coreRecord{}, fmt.Errorf("%w: %d group masks overrun record", errMalformedRecord, groups)
	}
	for g := 0; g < groups; g++ {
		mask := rec[groupMaskOffset+g*stride : groupMaskOffset+g*stride+maskSize]
		for _, b := range mask {
			r.logical += bits.OnesCount8(b)
		}
	}
	return r, nil
}

// coreSummary aggregates the processor-core records of one host.
type coreSummary struct {
	cores       int
	logical     int
	performance int
}

// summarizeCoreRecords walks a GetLogicalProcessorInformationEx buffer.
// Performance cores are those above the lowest efficiency class; it is zero
// when every core reports the same class.
func summarizeCoreRecords(buf []byte, maskSize int) (coreSummary, error) {
	var s coreSummary
	var classes []int
	err := walkRecords(buf, func(relationship uint32, rec []byte) error {
		if relationship != relationProcessorCore {
			return nil
		}
		r, err := decodeCoreRecord(rec, maskSize)
		if err != nil {
			return err
		}
		s.cores++
		s.logical += r.logical
		classes = append(classes, r.efficiencyClass)
		return nil
	})
	if err != nil {
		return coreSummary{}, err
	}
	s.performance = countAboveMin(classes)
	return s, nil
}
