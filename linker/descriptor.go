package linker

import (
	"strings"

	"github.com/wippyai/foreign-abi/internal/bitmath"
	"github.com/wippyai/foreign-abi/layout"
)

// FunctionDescriptor describes the signature of a native function: ordered
// argument layouts and an optional return layout. It is immutable.
type FunctionDescriptor struct {
	ret  layout.Layout
	args []layout.Layout
}

// Of describes a function returning ret. It panics on a nil layout.
func Of(ret layout.Layout, args ...layout.Layout) *FunctionDescriptor {
	if ret == nil {
		panic("linker: nil return layout")
	}
	return &FunctionDescriptor{ret: ret, args: copyArgs(args)}
}

// OfVoid describes a function without a return value. It panics on a nil layout.
func OfVoid(args ...layout.Layout) *FunctionDescriptor {
	return &FunctionDescriptor{args: copyArgs(args)}
}

func copyArgs(args []layout.Layout) []layout.Layout {
	out := make([]layout.Layout, len(args))
	for i, a := range args {
		if a == nil {
			panic("linker: nil argument layout")
		}
		out[i] = a
	}
	return out
}

// ArgumentLayouts returns a copy of the argument layouts.
func (d *FunctionDescriptor) ArgumentLayouts() []layout.Layout {
	return append([]layout.Layout(nil), d.args...)
}

func (d *FunctionDescriptor) ArgumentCount() int { return len(d.args) }

// ReturnLayout returns the return layout, false for a void function.
func (d *FunctionDescriptor) ReturnLayout() (layout.Layout, bool) {
	return d.ret, d.ret != nil
}

// AppendArgumentLayouts returns a descriptor with extra trailing arguments,
// the usual way to specialize a variadic prototype for one call site.
func (d *FunctionDescriptor) AppendArgumentLayouts(args ...layout.Layout) *FunctionDescriptor {
	return &FunctionDescriptor{ret: d.ret, args: append(d.ArgumentLayouts(), copyArgs(args)...)}
}

// DropReturnLayout returns a void descriptor with the same arguments.
func (d *FunctionDescriptor) DropReturnLayout() *FunctionDescriptor {
	return &FunctionDescriptor{args: d.args}
}

// String renders "(args)ret" with "v" for void.
func (d *FunctionDescriptor) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range d.args {
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	if d.ret == nil {
		b.WriteByte('v')
	} else {
		b.WriteString(d.ret.String())
	}
	return b.String()
}

// Equal reports structural equality of both signatures.
func (d *FunctionDescriptor) Equal(other *FunctionDescriptor) bool {
	if d == other {
		return true
	}
	if other == nil || len(d.args) != len(other.args) {
		return false
	}
	if (d.ret == nil) != (other.ret == nil) || (d.ret != nil && !d.ret.Equal(other.ret)) {
		return false
	}
	for i, a := range d.args {
		if !a.Equal(other.args[i]) {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal.
func (d *FunctionDescriptor) Hash() uint64 {
	h := bitmath.NewFNV()
	if d.ret != nil {
		h.Mix(d.ret.Hash())
	}
	h.Mix(uint64(len(d.args)))
	for _, a := range d.args {
		h.Mix(a.Hash())
	}
	return h.Sum()
}
