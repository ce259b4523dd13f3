package layout

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/foreign-abi/errors"
)

// Canonical ABI values are little endian with 32-bit pointers.
var (
	witU8   = Value(CarrierInt8, binary.LittleEndian)
	witU16  = Value(CarrierInt16, binary.LittleEndian)
	witU32  = Value(CarrierInt32, binary.LittleEndian)
	witU64  = Value(CarrierInt64, binary.LittleEndian)
	witF32  = Value(CarrierFloat32, binary.LittleEndian)
	witF64  = Value(CarrierFloat64, binary.LittleEndian)
	witBool = Value(CarrierBool, binary.LittleEndian)
	witPtr  = mustAddress(32, binary.LittleEndian)
)

func mustAddress(bits uint64, order binary.ByteOrder) *ValueLayout {
	a, err := AddressOf(bits, order)
	if err != nil {
		panic(err)
	}
	return a
}

// WITMapper converts WIT types into layouts, caching type definitions.
// Not safe for concurrent use.
type WITMapper struct {
	cache map[*wit.TypeDef]Layout
}

func NewWITMapper() *WITMapper {
	return &WITMapper{
		cache: make(map[*wit.TypeDef]Layout),
	}
}

// FromWIT returns the Canonical ABI memory layout of t.
func FromWIT(t wit.Type) (Layout, error) {
	return NewWITMapper().Layout(t)
}

func (m *WITMapper) Layout(t wit.Type) (Layout, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return witBool, nil
	case wit.U8, wit.S8:
		return witU8, nil
	case wit.U16, wit.S16:
		return witU16, nil
	case wit.U32, wit.S32, wit.Char:
		return witU32, nil
	case wit.U64, wit.S64:
		return witU64, nil
	case wit.F32:
		return witF32, nil
	case wit.F64:
		return witF64, nil
	case wit.String:
		return pointerLength(), nil
	case *wit.TypeDef:
		return m.typeDef(typ)
	case nil:
		return nil, errors.InvalidArgument(errors.PhaseLayout, nil, "nil WIT type")
	default:
		return nil, errors.Unsupported(errors.PhaseLayout, "WIT type "+abiTypeName(t))
	}
}

func (m *WITMapper) typeDef(t *wit.TypeDef) (Layout, error) {
	if cached, ok := m.cache[t]; ok {
		return cached, nil
	}

	var (
		l   Layout
		err error
	)

	switch kind := t.Kind.(type) {
	case *wit.Record:
		l, err = m.record(kind)
	case *wit.Tuple:
		l, err = m.tuple(kind)
	case *wit.Variant:
		cases := make([]witCase, len(kind.Cases))
		for i, c := range kind.Cases {
			cases[i] = witCase{name: c.Name, typ: c.Type}
		}
		l, err = m.variant(cases)
	case *wit.Option:
		l, err = m.variant([]witCase{{name: "none"}, {name: "some", typ: kind.Type}})
	case *wit.Result:
		l, err = m.variant([]witCase{{name: "ok", typ: kind.OK}, {name: "error", typ: kind.Err}})
	case *wit.Enum:
		l = discriminant(len(kind.Cases))
	case *wit.Flags:
		l, err = flags(len(kind.Flags))
	case *wit.List:
		l = pointerLength()
	case *wit.Own, *wit.Borrow:
		l = witU32
	case wit.Type:
		l, err = m.Layout(kind)
	default:
		err = errors.Unsupported(errors.PhaseLayout, "WIT type definition "+abiTypeName(t.Kind))
	}
	if err != nil {
		return nil, err
	}

	m.cache[t] = l
	return l, nil
}

func (m *WITMapper) record(r *wit.Record) (Layout, error) {
	members := make([]Layout, 0, len(r.Fields))
	for _, f := range r.Fields {
		fl, err := m.Layout(f.Type)
		if err != nil {
			return nil, wrapPath(err, f.Name)
		}
		members = append(members, fl.WithName(f.Name))
	}
	return PaddedStruct(members...)
}

func (m *WITMapper) tuple(t *wit.Tuple) (Layout, error) {
	members := make([]Layout, 0, len(t.Types))
	for _, typ := range t.Types {
		el, err := m.Layout(typ)
		if err != nil {
			return nil, err
		}
		members = append(members, el)
	}
	return PaddedStruct(members...)
}

type witCase struct {
	typ  wit.Type
	name string
}

// variant lays out a discriminant followed by the union of case payloads.
func (m *WITMapper) variant(cases []witCase) (Layout, error) {
	tag := discriminant(len(cases)).WithName("tag")

	payloads := make([]Layout, 0, len(cases))
	for _, c := range cases {
		if c.typ == nil {
			continue
		}
		pl, err := m.Layout(c.typ)
		if err != nil {
			return nil, wrapPath(err, c.name)
		}
		payloads = append(payloads, pl.WithName(c.name))
	}

	if len(payloads) == 0 {
		return PaddedStruct(tag)
	}
	return PaddedStruct(tag, Union(payloads...).WithName("payload"))
}

func discriminant(numCases int) *ValueLayout {
	switch {
	case numCases <= 1<<8:
		return witU8
	case numCases <= 1<<16:
		return witU16
	default:
		return witU32
	}
}

func flags(n int) (Layout, error) {
	switch {
	case n == 0:
		return Struct()
	case n <= 8:
		return witU8, nil
	case n <= 16:
		return witU16, nil
	case n <= 32:
		return witU32, nil
	}
	words, err := safecast.Conv[uint64]((n + 31) / 32)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLayout, errors.KindOverflow, err, "flags word count")
	}
	return Sequence(words, witU32)
}

func pointerLength() *GroupLayout {
	return MustStruct(witPtr.WithName("ptr"), witU32.WithName("len"))
}

func wrapPath(err error, name string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{name}, e.Path...)
		return e
	}
	return err
}

func abiTypeName(v any) string {
	return fmt.Sprintf("%T", v)
}
