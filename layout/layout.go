package layout

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
)

// Layout is the common interface of all memory layouts.
type Layout interface {
	fmt.Stringer

	BitSize() uint64
	BitAlignment() uint64
	ByteAlignment() uint64

	// ByteSize fails with errors.KindUnsupported when BitSize is not a multiple of 8.
	ByteSize() (uint64, error)

	Name() (string, bool)
	// HasNaturalAlignment reports whether the alignment is the one the
	// layout gets by default: bit size for values, the element's for
	// sequences, the largest member's for groups, and always for padding.
	HasNaturalAlignment() bool

	WithName(name string) Layout
	WithoutName() Layout
	WithBitAlignment(align uint64) (Layout, error)
	WithByteAlignment(align uint64) (Layout, error)

	Equal(other Layout) bool
	Hash() uint64

	// attrs seals the interface to the kinds in this package.
	attrs() *base
}

// base holds the attributes every layout kind shares.
type base struct {
	bitSize  uint64
	bitAlign uint64
	name     string
	hasName  bool

	// byteSize caches the byte size plus one; zero means not yet computed.
	// Racing first computations store the same value.
	byteSize atomic.Uint64
}

func (h *base) init(bitSize, bitAlign uint64, name string, hasName bool) {
	h.bitSize = bitSize
	h.bitAlign = bitAlign
	h.name = name
	h.hasName = hasName
}

func (h *base) attrs() *base { return h }

func (h *base) BitSize() uint64 { return h.bitSize }

func (h *base) BitAlignment() uint64 { return h.bitAlign }

func (h *base) ByteAlignment() uint64 { return h.bitAlign / bitmath.BitsPerByte }

func (h *base) Name() (string, bool) { return h.name, h.hasName }

func (h *base) ByteSize() (uint64, error) {
	if v := h.byteSize.Load(); v != 0 {
		return v - 1, nil
	}
	if h.bitSize%bitmath.BitsPerByte != 0 {
		return 0, errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Value(h.bitSize).
			Detail("bit size %d is not a multiple of 8", h.bitSize).
			Build()
	}
	size := h.bitSize / bitmath.BitsPerByte
	h.byteSize.Store(size + 1)
	return size, nil
}

func (h *base) naturalAlignment() bool {
	return h.bitSize == h.bitAlign
}

// sameBase compares the attributes shared by every kind.
func (h *base) sameBase(o *base) bool {
	return h.bitSize == o.bitSize &&
		h.bitAlign == o.bitAlign &&
		h.hasName == o.hasName &&
		h.name == o.name
}

func (h *base) hashBase(kind byte) bitmath.FNV {
	hs := bitmath.NewFNV()
	hs.Mix(uint64(kind))
	hs.Mix(h.bitSize)
	hs.Mix(h.bitAlign)
	if h.hasName {
		hs.MixString(h.name)
	}
	return hs
}

// decorateLayoutString annotates s with the layout name and, when the
// alignment is not natural, its byte alignment.
func decorateLayoutString(l Layout, s string) string {
	if name, ok := l.Name(); ok {
		s = s + "(" + name + ")"
	}
	if !l.HasNaturalAlignment() {
		s = strconv.FormatUint(l.ByteAlignment(), 10) + "%" + s
	}
	return s
}

// checkAlignment validates a requested bit alignment.
func checkAlignment(l Layout, align uint64) error {
	if align < bitmath.BitsPerByte || !bitmath.IsPowerOfTwo(align) {
		return errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Layout(l).
			Value(align).
			Detail("invalid bit alignment %d: must be a power of two and at least 8", align).
			Build()
	}
	return nil
}

func byteAlignToBits(l Layout, align uint64) (uint64, error) {
	bits, ok := bitmath.SafeMul(align, bitmath.BitsPerByte)
	if !ok {
		return 0, errors.Overflow(errors.PhaseLayout, nil, align, "bit alignment")
	}
	return bits, checkAlignment(l, bits)
}

// Kinds used to separate hashes of structurally different layouts.
const (
	kindValue byte = iota + 1
	kindPadding
	kindSequence
	kindStruct
	kindUnion
)
