package bitmath

import "math"

func SafeMul(a, b uint64) (uint64, bool) {
	if b != 0 && a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// AlignTo rounds offset up to a multiple of align. align must be zero or a power of two.
func AlignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// IsAligned reports whether offset is a multiple of align.
func IsAligned(offset, align uint64) bool {
	if align == 0 {
		return true
	}
	return offset&(align-1) == 0
}

func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

const BitsPerByte = 8
