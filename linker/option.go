package linker

import (
	"iter"
	"runtime"
	"strconv"
	"strings"

	"github.com/wippyai/foreign-abi/layout"
)

// OptionKind tags the Option variants. An Options set holds at most one
// option per kind.
type OptionKind uint8

const (
	KindFirstVariadicArg OptionKind = iota + 1
	KindCaptureCallState
)

func (k OptionKind) String() string {
	switch k {
	case KindFirstVariadicArg:
		return "firstVariadicArg"
	case KindCaptureCallState:
		return "captureCallState"
	default:
		return "option(" + strconv.Itoa(int(k)) + ")"
	}
}

// Option is a linker option for one call site. The variants are
// *FirstVariadicArgOption and *CaptureCallStateOption; the set is closed.
type Option interface {
	Kind() OptionKind
	String() string

	equal(other Option) bool
	hash() uint64
}

// FirstVariadicArgOption marks the argument position where C variadic
// marshaling starts.
type FirstVariadicArgOption struct {
	index int
}

// FirstVariadicArg creates the option. The index is checked against the
// descriptor when the option set is built.
func FirstVariadicArg(index int) *FirstVariadicArgOption {
	return &FirstVariadicArgOption{index: index}
}

func (o *FirstVariadicArgOption) Kind() OptionKind { return KindFirstVariadicArg }

func (o *FirstVariadicArgOption) Index() int { return o.index }

func (o *FirstVariadicArgOption) String() string {
	return "firstVariadicArg(" + strconv.Itoa(o.index) + ")"
}

func (o *FirstVariadicArgOption) equal(other Option) bool {
	x, ok := other.(*FirstVariadicArgOption)
	return ok && x.index == o.index
}

func (o *FirstVariadicArgOption) hash() uint64 {
	return uint64(KindFirstVariadicArg)<<32 ^ uint64(uint32(o.index))
}

// CaptureCallStateOption requests thread-local native state to be saved
// right after the call.
type CaptureCallStateOption struct {
	mask uint32
}

// CaptureCallState resolves state names for the host operating system.
func CaptureCallState(names ...string) (*CaptureCallStateOption, error) {
	return CaptureCallStateOn(runtime.GOOS, names...)
}

// CaptureCallStateOn resolves state names for the GOOS-style operating system os.
// Unknown names fail with errors.KindInvalidArgument; repeated names collapse.
func CaptureCallStateOn(os string, names ...string) (*CaptureCallStateOption, error) {
	o := &CaptureCallStateOption{}
	for _, name := range names {
		s, err := StateByName(os, name)
		if err != nil {
			return nil, err
		}
		o.mask |= s.Mask()
	}
	return o, nil
}

// CaptureStates builds the option from states directly. Unknown states are ignored.
func CaptureStates(states ...CapturableState) *CaptureCallStateOption {
	o := &CaptureCallStateOption{}
	for _, s := range states {
		if s.valid() {
			o.mask |= s.Mask()
		}
	}
	return o
}

func (o *CaptureCallStateOption) Kind() OptionKind { return KindCaptureCallState }

// Mask has bit Ordinal() set for every requested state.
func (o *CaptureCallStateOption) Mask() uint32 { return o.mask }

// States yields the requested states in ascending ordinal order.
func (o *CaptureCallStateOption) States() iter.Seq[CapturableState] {
	return func(yield func(CapturableState) bool) {
		for s := range numCapturableStates {
			if o.mask&s.Mask() != 0 && !yield(s) {
				return
			}
		}
	}
}

// Layout is the struct the stub fills after the call: one named int32 per
// requested state, in ascending ordinal order regardless of request order.
func (o *CaptureCallStateOption) Layout() *layout.GroupLayout {
	var members []layout.Layout
	for s := range o.States() {
		members = append(members, s.Layout())
	}
	return layout.MustStruct(members...)
}

func (o *CaptureCallStateOption) String() string {
	var names []string
	for s := range o.States() {
		names = append(names, s.Name())
	}
	return "captureCallState(" + strings.Join(names, ", ") + ")"
}

func (o *CaptureCallStateOption) equal(other Option) bool {
	x, ok := other.(*CaptureCallStateOption)
	return ok && x.mask == o.mask
}

func (o *CaptureCallStateOption) hash() uint64 {
	return uint64(KindCaptureCallState)<<32 ^ uint64(o.mask)
}
