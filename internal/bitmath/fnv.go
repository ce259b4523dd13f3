package bitmath

// FNV is an FNV-1a accumulator over 64-bit words, used for structural hashes
// that must be stable across processes.
type FNV uint64

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

func NewFNV() FNV { return FNV(fnvOffset64) }

func (h *FNV) Mix(x uint64) {
	*h ^= FNV(x)
	*h *= fnvPrime64
}

// MixString mixes every byte and then the length, so adjacent strings do not collide.
func (h *FNV) MixString(s string) {
	for i := 0; i < len(s); i++ {
		h.Mix(uint64(s[i]))
	}
	h.Mix(uint64(len(s)))
}

func (h FNV) Sum() uint64 { return uint64(h) }
