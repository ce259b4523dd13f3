package layout

import (
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/foreign-abi/errors"
)

func TestFromWITPrimitives(t *testing.T) {
	tests := []struct {
		typ   wit.Type
		name  string
		size  uint64
		align uint64
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S8{}, "s8", 1, 1},
		{wit.U16{}, "u16", 2, 2},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S32{}, "s32", 4, 4},
		{wit.U64{}, "u64", 8, 8},
		{wit.S64{}, "s64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
		{wit.Char{}, "char", 4, 4},
		{wit.String{}, "string", 8, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := FromWIT(tc.typ)
			if err != nil {
				t.Fatal(err)
			}
			size, _ := l.ByteSize()
			if size != tc.size {
				t.Errorf("size: got %d, want %d", size, tc.size)
			}
			if l.ByteAlignment() != tc.align {
				t.Errorf("align: got %d, want %d", l.ByteAlignment(), tc.align)
			}
		})
	}
}

func TestFromWITRecord(t *testing.T) {
	record := &wit.TypeDef{Kind: &wit.Record{
		Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: wit.U64{}},
			{Name: "c", Type: wit.U16{}},
		},
	}}

	l, err := FromWIT(record)
	if err != nil {
		t.Fatal(err)
	}
	size, _ := l.ByteSize()
	if size != 24 || l.ByteAlignment() != 8 {
		t.Errorf("got size %d align %d, want 24/8", size, l.ByteAlignment())
	}
	g := l.(*GroupLayout)
	_, off, ok := g.Select("c")
	if !ok || off != 16*8 {
		t.Errorf("field c offset: got %d bits", off)
	}
}

func TestFromWITVariants(t *testing.T) {
	tests := []struct {
		typ   *wit.TypeDef
		name  string
		size  uint64
		align uint64
	}{
		{
			name:  "option u32",
			typ:   &wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}},
			size:  8,
			align: 4,
		},
		{
			name:  "option u8",
			typ:   &wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}},
			size:  2,
			align: 1,
		},
		{
			name:  "result u64 string",
			typ:   &wit.TypeDef{Kind: &wit.Result{OK: wit.U64{}, Err: wit.String{}}},
			size:  16,
			align: 8,
		},
		{
			name:  "result no payload",
			typ:   &wit.TypeDef{Kind: &wit.Result{}},
			size:  1,
			align: 1,
		},
		{
			name: "variant mixed",
			typ: &wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{
				{Name: "none"},
				{Name: "small", Type: wit.U16{}},
				{Name: "big", Type: wit.F64{}},
			}}},
			size:  16,
			align: 8,
		},
		{
			name:  "enum",
			typ:   &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}, {Name: "b"}}}},
			size:  1,
			align: 1,
		},
		{
			name:  "tuple",
			typ:   &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U32{}}}},
			size:  8,
			align: 4,
		},
		{
			name:  "list",
			typ:   &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}},
			size:  8,
			align: 4,
		},
		{
			name:  "own handle",
			typ:   &wit.TypeDef{Kind: &wit.Own{}},
			size:  4,
			align: 4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := FromWIT(tc.typ)
			if err != nil {
				t.Fatal(err)
			}
			size, _ := l.ByteSize()
			if size != tc.size {
				t.Errorf("size: got %d, want %d (%s)", size, tc.size, l)
			}
			if l.ByteAlignment() != tc.align {
				t.Errorf("align: got %d, want %d", l.ByteAlignment(), tc.align)
			}
		})
	}
}

func TestFromWITFlags(t *testing.T) {
	mk := func(n int) *wit.TypeDef {
		fl := make([]wit.Flag, n)
		return &wit.TypeDef{Kind: &wit.Flags{Flags: fl}}
	}

	tests := []struct {
		n     int
		size  uint64
		align uint64
	}{
		{0, 0, 1},
		{1, 1, 1},
		{8, 1, 1},
		{9, 2, 2},
		{32, 4, 4},
		{33, 8, 4},
		{65, 12, 4},
	}

	for _, tc := range tests {
		l, err := FromWIT(mk(tc.n))
		if err != nil {
			t.Fatalf("%d flags: %v", tc.n, err)
		}
		size, _ := l.ByteSize()
		if size != tc.size || l.ByteAlignment() != tc.align {
			t.Errorf("%d flags: got size %d align %d, want %d/%d", tc.n, size, l.ByteAlignment(), tc.size, tc.align)
		}
	}
}

func TestWITMapperCache(t *testing.T) {
	m := NewWITMapper()
	def := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "x", Type: wit.U32{}}}}}
	a, err := m.Layout(def)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Layout(def)
	if a != b {
		t.Error("repeated lookups of the same definition should return the cached layout")
	}
}

func TestFromWITErrors(t *testing.T) {
	if _, err := FromWIT(nil); !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("nil type: got %v", err)
	}
}
