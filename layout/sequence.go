package layout

import (
	"strconv"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
)

// SequenceLayout repeats an element layout a fixed number of times.
type SequenceLayout struct {
	base
	count uint64
	elem  Layout
}

// Sequence creates a sequence of count elements aligned like elem.
// The element size must be a multiple of its alignment so every element stays aligned.
func Sequence(count uint64, elem Layout) (*SequenceLayout, error) {
	if elem == nil {
		return nil, errors.InvalidArgument(errors.PhaseLayout, nil, "nil element layout")
	}
	if !bitmath.IsAligned(elem.BitSize(), elem.BitAlignment()) {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Layout(elem).
			Detail("element size %d is not a multiple of alignment %d", elem.BitSize(), elem.BitAlignment()).
			Build()
	}
	size, ok := bitmath.SafeMul(count, elem.BitSize())
	if !ok {
		return nil, errors.Overflow(errors.PhaseLayout, nil, count, "sequence bit size")
	}
	return newSequence(count, elem, size, elem.BitAlignment(), "", false), nil
}

func newSequence(count uint64, elem Layout, size, align uint64, name string, hasName bool) *SequenceLayout {
	s := &SequenceLayout{count: count, elem: elem}
	s.init(size, align, name, hasName)
	return s
}

func (s *SequenceLayout) ElementCount() uint64 { return s.count }

func (s *SequenceLayout) ElementLayout() Layout { return s.elem }

// WithElementCount returns a sequence of the same element with a different count.
func (s *SequenceLayout) WithElementCount(count uint64) (*SequenceLayout, error) {
	size, ok := bitmath.SafeMul(count, s.elem.BitSize())
	if !ok {
		return nil, errors.Overflow(errors.PhaseLayout, nil, count, "sequence bit size")
	}
	return newSequence(count, s.elem, size, s.bitAlign, s.name, s.hasName), nil
}

// Flatten collapses nested sequences into one sequence of the innermost element.
// Names and alignment of the outer sequence are kept.
func (s *SequenceLayout) Flatten() *SequenceLayout {
	count := s.count
	elem := s.elem
	for {
		inner, ok := elem.(*SequenceLayout)
		if !ok {
			break
		}
		count *= inner.count
		elem = inner.elem
	}
	return newSequence(count, elem, s.bitSize, s.bitAlign, s.name, s.hasName)
}

// HasNaturalAlignment reports whether the sequence is aligned like its element.
func (s *SequenceLayout) HasNaturalAlignment() bool {
	return s.bitAlign == s.elem.BitAlignment()
}

func (s *SequenceLayout) WithName(name string) Layout {
	return newSequence(s.count, s.elem, s.bitSize, s.bitAlign, name, true)
}

func (s *SequenceLayout) WithoutName() Layout {
	return newSequence(s.count, s.elem, s.bitSize, s.bitAlign, "", false)
}

// WithBitAlignment rejects alignments weaker than the element alignment.
func (s *SequenceLayout) WithBitAlignment(align uint64) (Layout, error) {
	if err := checkAlignment(s, align); err != nil {
		return nil, err
	}
	if align < s.elem.BitAlignment() {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Layout(s).
			Value(align).
			Detail("bit alignment %d is weaker than element alignment %d", align, s.elem.BitAlignment()).
			Build()
	}
	return newSequence(s.count, s.elem, s.bitSize, align, s.name, s.hasName), nil
}

func (s *SequenceLayout) WithByteAlignment(align uint64) (Layout, error) {
	bitAlign, err := byteAlignToBits(s, align)
	if err != nil {
		return nil, err
	}
	return s.WithBitAlignment(bitAlign)
}

func (s *SequenceLayout) Equal(other Layout) bool {
	o, ok := other.(*SequenceLayout)
	if !ok || o == nil {
		return false
	}
	return s.sameBase(&o.base) && s.count == o.count && s.elem.Equal(o.elem)
}

func (s *SequenceLayout) Hash() uint64 {
	h := s.hashBase(kindSequence)
	h.Mix(s.count)
	h.Mix(s.elem.Hash())
	return h.Sum()
}

// String renders [count:element].
func (s *SequenceLayout) String() string {
	return decorateLayoutString(s, "["+strconv.FormatUint(s.count, 10)+":"+s.elem.String()+"]")
}
