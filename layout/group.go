package layout

import (
	"strconv"
	"strings"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
)

// GroupKind distinguishes structs from unions.
type GroupKind uint8

const (
	KindStruct GroupKind = iota + 1
	KindUnion
)

func (k GroupKind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// GroupLayout is a struct or union of ordered member layouts.
type GroupLayout struct {
	base
	kind    GroupKind
	members []Layout
}

// Struct lays members end to end. It fails with errors.KindInvalidArgument
// when a member would start at an offset that is not a multiple of its
// alignment; use PaddedStruct to insert the padding automatically.
func Struct(members ...Layout) (*GroupLayout, error) {
	offset := uint64(0)
	align := uint64(bitmath.BitsPerByte)
	for i, m := range members {
		if m == nil {
			return nil, errors.InvalidArgument(errors.PhaseLayout, i, "nil member layout at index %d", i)
		}
		if !bitmath.IsAligned(offset, m.BitAlignment()) {
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
				Path(memberPath(m, i)).
				Layout(m).
				Value(offset).
				Detail("invalid alignment constraint for member at bit offset %d", offset).
				Build()
		}
		next, ok := bitmath.SafeAdd(offset, m.BitSize())
		if !ok {
			return nil, errors.Overflow(errors.PhaseLayout, []string{memberPath(m, i)}, offset, "struct bit size")
		}
		offset = next
		align = max(align, m.BitAlignment())
	}
	return newGroup(KindStruct, cloneMembers(members), offset, align, "", false), nil
}

// MustStruct is like Struct but panics on error. Intended for static tables.
func MustStruct(members ...Layout) *GroupLayout {
	g, err := Struct(members...)
	if err != nil {
		panic(err)
	}
	return g
}

// PaddedStruct lays members out at their natural offsets, inserting padding
// between members and at the tail so the size is a multiple of the alignment.
func PaddedStruct(members ...Layout) (*GroupLayout, error) {
	padded := make([]Layout, 0, len(members)*2)
	offset := uint64(0)
	align := uint64(bitmath.BitsPerByte)
	for i, m := range members {
		if m == nil {
			return nil, errors.InvalidArgument(errors.PhaseLayout, i, "nil member layout at index %d", i)
		}
		aligned := bitmath.AlignTo(offset, m.BitAlignment())
		if aligned > offset {
			padded = append(padded, newPadding(aligned-offset, bitmath.BitsPerByte, "", false))
		}
		next, ok := bitmath.SafeAdd(aligned, m.BitSize())
		if !ok {
			return nil, errors.Overflow(errors.PhaseLayout, []string{memberPath(m, i)}, aligned, "struct bit size")
		}
		padded = append(padded, m)
		offset = next
		align = max(align, m.BitAlignment())
	}
	if total := bitmath.AlignTo(offset, align); total > offset {
		padded = append(padded, newPadding(total-offset, bitmath.BitsPerByte, "", false))
	}
	return Struct(padded...)
}

// Union overlaps members. The size is the largest member size.
func Union(members ...Layout) *GroupLayout {
	size := uint64(0)
	align := uint64(bitmath.BitsPerByte)
	kept := make([]Layout, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		size = max(size, m.BitSize())
		align = max(align, m.BitAlignment())
		kept = append(kept, m)
	}
	return newGroup(KindUnion, kept, size, align, "", false)
}

func newGroup(kind GroupKind, members []Layout, size, align uint64, name string, hasName bool) *GroupLayout {
	g := &GroupLayout{kind: kind, members: members}
	g.init(size, align, name, hasName)
	return g
}

func cloneMembers(members []Layout) []Layout {
	out := make([]Layout, len(members))
	copy(out, members)
	return out
}

func memberPath(m Layout, index int) string {
	if name, ok := m.Name(); ok {
		return name
	}
	return strconv.Itoa(index)
}

func (g *GroupLayout) Kind() GroupKind { return g.kind }

func (g *GroupLayout) IsStruct() bool { return g.kind == KindStruct }

func (g *GroupLayout) IsUnion() bool { return g.kind == KindUnion }

// Members returns a copy of the member list.
func (g *GroupLayout) Members() []Layout { return cloneMembers(g.members) }

func (g *GroupLayout) MemberCount() int { return len(g.members) }

// MemberOffset returns the bit offset of member i. Union members are all at 0.
func (g *GroupLayout) MemberOffset(i int) (uint64, error) {
	if i < 0 || i >= len(g.members) {
		return 0, errors.OutOfBounds(errors.PhaseLayout, nil, i, len(g.members))
	}
	if g.kind == KindUnion {
		return 0, nil
	}
	offset := uint64(0)
	for _, m := range g.members[:i] {
		offset += m.BitSize()
	}
	return offset, nil
}

// Select finds the first member with the given name and its bit offset.
func (g *GroupLayout) Select(name string) (Layout, uint64, bool) {
	offset := uint64(0)
	for _, m := range g.members {
		if n, ok := m.Name(); ok && n == name {
			return m, offset, true
		}
		if g.kind == KindStruct {
			offset += m.BitSize()
		}
	}
	return nil, 0, false
}

func (g *GroupLayout) memberAlignment() uint64 {
	align := uint64(bitmath.BitsPerByte)
	for _, m := range g.members {
		align = max(align, m.BitAlignment())
	}
	return align
}

// HasNaturalAlignment reports whether the group is aligned like its most aligned member.
func (g *GroupLayout) HasNaturalAlignment() bool {
	return g.bitAlign == g.memberAlignment()
}

func (g *GroupLayout) WithName(name string) Layout {
	return newGroup(g.kind, g.members, g.bitSize, g.bitAlign, name, true)
}

func (g *GroupLayout) WithoutName() Layout {
	return newGroup(g.kind, g.members, g.bitSize, g.bitAlign, "", false)
}

// WithBitAlignment rejects alignments weaker than the member alignment.
func (g *GroupLayout) WithBitAlignment(align uint64) (Layout, error) {
	if err := checkAlignment(g, align); err != nil {
		return nil, err
	}
	if need := g.memberAlignment(); align < need {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Layout(g).
			Value(align).
			Detail("bit alignment %d is weaker than member alignment %d", align, need).
			Build()
	}
	return newGroup(g.kind, g.members, g.bitSize, align, g.name, g.hasName), nil
}

func (g *GroupLayout) WithByteAlignment(align uint64) (Layout, error) {
	bitAlign, err := byteAlignToBits(g, align)
	if err != nil {
		return nil, err
	}
	return g.WithBitAlignment(bitAlign)
}

func (g *GroupLayout) Equal(other Layout) bool {
	o, ok := other.(*GroupLayout)
	if !ok || o == nil {
		return false
	}
	if !g.sameBase(&o.base) || g.kind != o.kind || len(g.members) != len(o.members) {
		return false
	}
	for i := range g.members {
		if !g.members[i].Equal(o.members[i]) {
			return false
		}
	}
	return true
}

func (g *GroupLayout) Hash() uint64 {
	kind := kindStruct
	if g.kind == KindUnion {
		kind = kindUnion
	}
	h := g.hashBase(kind)
	for _, m := range g.members {
		h.Mix(m.Hash())
	}
	return h.Sum()
}

// String renders structs as [ab] and unions as [a|b].
func (g *GroupLayout) String() string {
	sep := ""
	if g.kind == KindUnion {
		sep = "|"
	}
	parts := make([]string, len(g.members))
	for i, m := range g.members {
		parts[i] = m.String()
	}
	return decorateLayoutString(g, "["+strings.Join(parts, sep)+"]")
}
