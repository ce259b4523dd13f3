// Package arrange assigns argument and return storage for scalar C calls
// over an abi.Descriptor.
package arrange

import (
	"slices"
	"strconv"

	"fortio.org/safecast"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
	"github.com/wippyai/foreign-abi/layout"
)

// Rules are the convention quirks the descriptor tables cannot express.
type Rules struct {
	// SharedSlots draws integer and vector arguments from one positional
	// counter (Windows x64).
	SharedSlots bool
	// VariadicOnStack passes every variadic argument on the stack (Apple arm64).
	VariadicOnStack bool
	// PackedStack places fixed stack arguments at their natural size and
	// alignment instead of full slots (Apple arm64).
	PackedStack bool
	// VariadicFloatShadow duplicates variadic floats into the integer
	// register of the same position (Windows x64).
	VariadicFloatShadow bool
	// VariadicFloatInInteger passes variadic floats in integer registers, and
	// fixed floats too once the float registers run out (RISC-V).
	VariadicFloatInInteger bool
	// VectorCount loads the number of vector registers used by a variadic
	// call into the first integer return register (SysV al).
	VectorCount bool
	// HiddenReturnPointer passes the in-memory return buffer in the first
	// integer argument register.
	HiddenReturnPointer bool
	// AggregateReturnLimit is the largest struct or union returned in
	// integer return registers. Larger ones return through memory.
	AggregateReturnLimit uint64
	// ScalarSizedReturn returns aggregates of exactly 1, 2, 4 or 8 bytes in
	// the first integer return register and all others through memory
	// (Windows x64).
	ScalarSizedReturn bool
	// HomogeneousFloatReturn returns up to four floats of one type in vector
	// registers whatever their total size (AArch64).
	HomogeneousFloatReturn bool
}

// RulesFor returns the rules of a built-in convention.
func RulesFor(c abi.Convention) Rules {
	switch c {
	case abi.SysV:
		return Rules{VectorCount: true, HiddenReturnPointer: true, AggregateReturnLimit: 16}
	case abi.Win64:
		return Rules{SharedSlots: true, VariadicFloatShadow: true, HiddenReturnPointer: true, ScalarSizedReturn: true}
	case abi.LinuxAArch64:
		return Rules{AggregateReturnLimit: 16, HomogeneousFloatReturn: true}
	case abi.MacOSAArch64:
		return Rules{VariadicOnStack: true, PackedStack: true, AggregateReturnLimit: 16, HomogeneousFloatReturn: true}
	case abi.LinuxRISCV64:
		return Rules{VariadicFloatInInteger: true, HiddenReturnPointer: true, AggregateReturnLimit: 16}
	default:
		return Rules{}
	}
}

// Binding places one value.
type Binding struct {
	Layout  layout.Layout
	Storage abi.VMStorage
	// Shadow is a second copy of a variadic float, zero when unused.
	Shadow abi.VMStorage
	// Upper holds the second word of an aggregate returned in two
	// registers, zero when unused.
	Upper abi.VMStorage
}

// Request is the call shape to arrange.
type Request struct {
	Args []layout.Layout
	// Return is nil for void.
	Return layout.Layout
	// FirstVariadic is the first variadic argument position, -1 when the call is not variadic.
	FirstVariadic int
}

func (r Request) variadic(i int) bool {
	return r.FirstVariadic >= 0 && i >= r.FirstVariadic
}

// Result is the storage assignment of a call.
type Result struct {
	Args   []Binding
	Return Binding
	// ReturnBuffer is where the callee expects the in-memory return address.
	// It is a descriptor placeholder when no argument register carries it.
	ReturnBuffer    abi.VMStorage
	HasReturn       bool
	ReturnsInMemory bool

	// StackSize is the outgoing argument area including shadow space,
	// rounded to the descriptor's stack alignment.
	StackSize int64

	VectorCount        int
	VectorCountStorage abi.VMStorage
}

type arranger struct {
	desc  *abi.Descriptor
	rules Rules

	next   [abi.StorageVector + 1]int
	shared int
	stack  uint64
}

// Arrange assigns storage for req. By-value aggregate arguments, values
// wider than a register and aggregate returns that need float registers fail
// with errors.KindUnsupported.
func Arrange(desc *abi.Descriptor, rules Rules, req Request) (*Result, error) {
	a := &arranger{desc: desc, rules: rules}
	res := &Result{Args: make([]Binding, len(req.Args))}

	if req.Return != nil {
		res.HasReturn = true
		if err := a.arrangeReturn(req.Return, res); err != nil {
			return nil, err
		}
	}

	for i, arg := range req.Args {
		b, err := a.arrangeArg(arg, i, req.variadic(i))
		if err != nil {
			return nil, err
		}
		res.Args[i] = b
	}

	if rules.VectorCount && req.FirstVariadic >= 0 {
		res.VectorCount = a.next[abi.StorageVector]
		res.VectorCountStorage = desc.Output(abi.StorageInteger)[0]
	}

	size := uint64(max(desc.ShadowSpace, 0)) + a.stack
	size = bitmath.AlignTo(size, uint64(max(desc.StackAlignment, 1)))
	stackSize, err := safecast.Conv[int64](size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseArrange, errors.KindOverflow, err, "outgoing stack size")
	}
	res.StackSize = stackSize
	return res, nil
}

func (a *arranger) arrangeReturn(ret layout.Layout, res *Result) error {
	if g, ok := ret.(*layout.GroupLayout); ok {
		return a.arrangeAggregateReturn(g, res)
	}

	class, err := classify(ret, "return")
	if err != nil {
		return err
	}
	regs := a.desc.Output(class)
	if len(regs) == 0 {
		return errors.New(errors.PhaseArrange, errors.KindUnsupported).
			Path("return").
			Layout(ret).
			Detail("no %s return register on %s", class, a.desc.Arch.Name()).
			Build()
	}
	res.Return = Binding{Layout: ret, Storage: regs[0]}
	return nil
}

func (a *arranger) arrangeAggregateReturn(g *layout.GroupLayout, res *Result) error {
	size, err := g.ByteSize()
	if err != nil {
		return err
	}
	if size == 0 {
		return unsupportedReturn(g, "empty %s return", g.Kind())
	}

	if a.rules.HomogeneousFloatReturn && isHomogeneousFloat(g) {
		return unsupportedReturn(g, "homogeneous float %s returns in vector registers", g.Kind())
	}

	if a.aggregateInRegisters(size) {
		if a.floatsInVectorReturn() && hasFloat(g) {
			return unsupportedReturn(g, "%s return with float members needs vector registers", g.Kind())
		}
		word := uint64(a.desc.Arch.StackSlotSize())
		regs := a.desc.Output(abi.StorageInteger)
		words := int((size + word - 1) / word)
		if words > len(regs) {
			return unsupportedReturn(g, "%d-byte %s return exceeds %d return registers", size, g.Kind(), len(regs))
		}
		res.Return = Binding{Layout: g, Storage: regs[0]}
		if words == 2 {
			res.Return.Upper = regs[1]
		}
		return nil
	}

	res.ReturnsInMemory = true
	res.ReturnBuffer = a.desc.RetBufAddrStorage()
	if a.rules.HiddenReturnPointer {
		if r, ok := a.nextRegister(abi.StorageInteger); ok {
			res.ReturnBuffer = r
		}
	}
	res.Return = Binding{Layout: g, Storage: res.ReturnBuffer}
	return nil
}

func (a *arranger) aggregateInRegisters(size uint64) bool {
	if a.rules.ScalarSizedReturn {
		return size == 1 || size == 2 || size == 4 || size == 8
	}
	return size <= a.rules.AggregateReturnLimit
}

// floatsInVectorReturn reports whether small aggregates classify float
// members into vector return registers (SysV, RISC-V).
func (a *arranger) floatsInVectorReturn() bool {
	return !a.rules.ScalarSizedReturn && !a.rules.HomogeneousFloatReturn
}

func unsupportedReturn(g *layout.GroupLayout, format string, args ...any) error {
	return errors.New(errors.PhaseArrange, errors.KindUnsupported).
		Path("return").
		Layout(g).
		Detail(format, args...).
		Build()
}

// hasFloat reports whether any value inside l is a float.
func hasFloat(l layout.Layout) bool {
	switch x := l.(type) {
	case *layout.ValueLayout:
		return x.Carrier().IsFloat()
	case *layout.SequenceLayout:
		return hasFloat(x.ElementLayout())
	case *layout.GroupLayout:
		return slices.ContainsFunc(x.Members(), hasFloat)
	}
	return false
}

// isHomogeneousFloat reports whether g holds one to four floats of a single
// carrier and nothing else.
func isHomogeneousFloat(g *layout.GroupLayout) bool {
	var carriers []layout.Carrier
	var walk func(l layout.Layout) bool
	walk = func(l layout.Layout) bool {
		switch x := l.(type) {
		case *layout.ValueLayout:
			if !x.Carrier().IsFloat() || len(carriers) == 4 {
				return false
			}
			carriers = append(carriers, x.Carrier())
			return carriers[0] == x.Carrier()
		case *layout.SequenceLayout:
			if x.ElementCount() > 4 {
				return false
			}
			for range x.ElementCount() {
				if !walk(x.ElementLayout()) {
					return false
				}
			}
			return true
		case *layout.GroupLayout:
			for _, m := range x.Members() {
				if !walk(m) {
					return false
				}
			}
			return true
		}
		return false
	}
	return walk(g) && len(carriers) > 0
}

func (a *arranger) arrangeArg(arg layout.Layout, index int, variadic bool) (Binding, error) {
	path := "arg" + strconv.Itoa(index)
	class, err := classify(arg, path)
	if err != nil {
		return Binding{}, err
	}
	b := Binding{Layout: arg}

	if variadic && a.rules.VariadicOnStack {
		b.Storage, err = a.stackSlot(arg, false)
		return b, err
	}
	if variadic && class == abi.StorageVector && a.rules.VariadicFloatInInteger {
		class = abi.StorageInteger
	}

	pos := a.shared
	r, ok := a.nextRegister(class)
	if !ok && class == abi.StorageVector && a.rules.VariadicFloatInInteger {
		r, ok = a.nextRegister(abi.StorageInteger)
	}
	if !ok {
		b.Storage, err = a.stackSlot(arg, a.rules.PackedStack)
		return b, err
	}
	b.Storage = r
	if variadic && class == abi.StorageVector && a.rules.VariadicFloatShadow {
		if ints := a.desc.Input(abi.StorageInteger); pos < len(ints) {
			b.Shadow = ints[pos]
		}
	}
	return b, nil
}

func (a *arranger) nextRegister(class abi.StorageType) (abi.VMStorage, bool) {
	regs := a.desc.Input(class)
	idx := &a.next[class]
	if a.rules.SharedSlots {
		idx = &a.shared
	}
	if *idx >= len(regs) {
		return abi.VMStorage{}, false
	}
	r := regs[*idx]
	*idx++
	if a.rules.SharedSlots {
		a.next[class]++
	}
	return r, true
}

func (a *arranger) stackSlot(arg layout.Layout, packed bool) (abi.VMStorage, error) {
	size, err := arg.ByteSize()
	if err != nil {
		return abi.VMStorage{}, err
	}
	align := arg.ByteAlignment()
	if !packed {
		slot := uint64(a.desc.Arch.StackSlotSize())
		size = bitmath.AlignTo(size, slot)
		align = slot
	}

	offset := bitmath.AlignTo(a.stack, align)
	a.stack = offset + size

	slotSize, err := safecast.Conv[uint16](size)
	if err != nil {
		return abi.VMStorage{}, errors.Overflow(errors.PhaseArrange, nil, size, "uint16")
	}
	at, err := safecast.Conv[int32](uint64(max(a.desc.ShadowSpace, 0)) + offset)
	if err != nil {
		return abi.VMStorage{}, errors.Overflow(errors.PhaseArrange, nil, offset, "int32")
	}
	return abi.StackSlot(slotSize, at), nil
}

// classify maps a scalar layout to its register class.
func classify(l layout.Layout, path string) (abi.StorageType, error) {
	v, ok := l.(*layout.ValueLayout)
	if !ok {
		return 0, errors.New(errors.PhaseArrange, errors.KindUnsupported).
			Path(path).
			Layout(l).
			Detail("by-value %s is not supported", kindName(l)).
			Build()
	}
	size, err := v.ByteSize()
	if err != nil {
		return 0, err
	}
	if size > 8 {
		return 0, errors.New(errors.PhaseArrange, errors.KindUnsupported).
			Path(path).
			Layout(l).
			Detail("%d-byte scalar does not fit a register", size).
			Build()
	}
	if v.Carrier().IsFloat() {
		return abi.StorageVector, nil
	}
	return abi.StorageInteger, nil
}

func kindName(l layout.Layout) string {
	switch x := l.(type) {
	case *layout.GroupLayout:
		return x.Kind().String()
	case *layout.SequenceLayout:
		return "sequence"
	case *layout.PaddingLayout:
		return "padding"
	}
	return "layout"
}
