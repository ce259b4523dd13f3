package layout

import (
	"strconv"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
)

// PaddingLayout describes bits that carry no data.
type PaddingLayout struct {
	base
}

// Padding creates a padding layout of the given bit size with byte alignment.
func Padding(bitSize uint64) (*PaddingLayout, error) {
	if bitSize == 0 {
		return nil, errors.InvalidArgument(errors.PhaseLayout, bitSize, "padding size must be positive")
	}
	return newPadding(bitSize, bitmath.BitsPerByte, "", false), nil
}

// PaddingBytes creates a padding layout of n bytes.
func PaddingBytes(n uint64) (*PaddingLayout, error) {
	bits, ok := bitmath.SafeMul(n, bitmath.BitsPerByte)
	if !ok {
		return nil, errors.Overflow(errors.PhaseLayout, nil, n, "padding bit size")
	}
	return Padding(bits)
}

func newPadding(size, align uint64, name string, hasName bool) *PaddingLayout {
	p := &PaddingLayout{}
	p.init(size, align, name, hasName)
	return p
}

// HasNaturalAlignment is always true: padding has no alignment requirement of its own.
func (p *PaddingLayout) HasNaturalAlignment() bool { return true }

func (p *PaddingLayout) WithName(name string) Layout {
	return newPadding(p.bitSize, p.bitAlign, name, true)
}

func (p *PaddingLayout) WithoutName() Layout {
	return newPadding(p.bitSize, p.bitAlign, "", false)
}

func (p *PaddingLayout) WithBitAlignment(align uint64) (Layout, error) {
	if err := checkAlignment(p, align); err != nil {
		return nil, err
	}
	return newPadding(p.bitSize, align, p.name, p.hasName), nil
}

func (p *PaddingLayout) WithByteAlignment(align uint64) (Layout, error) {
	bitAlign, err := byteAlignToBits(p, align)
	if err != nil {
		return nil, err
	}
	return p.WithBitAlignment(bitAlign)
}

func (p *PaddingLayout) Equal(other Layout) bool {
	o, ok := other.(*PaddingLayout)
	if !ok || o == nil {
		return false
	}
	return p.sameBase(&o.base)
}

func (p *PaddingLayout) Hash() uint64 {
	return p.hashBase(kindPadding).Sum()
}

// String renders x followed by the size in bytes, or in bits with a b suffix
// when the size is not byte aligned.
func (p *PaddingLayout) String() string {
	var s string
	if p.bitSize%bitmath.BitsPerByte == 0 {
		s = "x" + strconv.FormatUint(p.bitSize/bitmath.BitsPerByte, 10)
	} else {
		s = "x" + strconv.FormatUint(p.bitSize, 10) + "b"
	}
	return decorateLayoutString(p, s)
}
