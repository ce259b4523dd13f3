package linker

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
	"github.com/wippyai/foreign-abi/layout"
)

// Options is the validated option set of one call site. It is immutable and
// compares by value, so equal call sites can share one instance.
type Options struct {
	byKind map[OptionKind]Option
}

var emptyOptions = &Options{byKind: map[OptionKind]Option{}}

// Empty returns the shared option set without options.
func Empty() *Options { return emptyOptions }

// ForDowncall validates opts against desc. Repeated option kinds fail with
// errors.KindDuplicate, a variadic index outside [0, argument count] with
// errors.KindOutOfBounds. Without options the shared empty set is returned.
func ForDowncall(desc *FunctionDescriptor, opts ...Option) (*Options, error) {
	if desc == nil {
		return nil, optionError(desc, errors.InvalidArgument(errors.PhaseLinking, nil, "nil function descriptor"))
	}
	if len(opts) == 0 {
		return emptyOptions, nil
	}

	byKind := make(map[OptionKind]Option, len(opts))
	for _, opt := range opts {
		if isNilOption(opt) {
			return nil, optionError(desc, errors.InvalidArgument(errors.PhaseLinking, nil, "nil linker option"))
		}
		if prev, dup := byKind[opt.Kind()]; dup {
			return nil, optionError(desc, errors.New(errors.PhaseLinking, errors.KindDuplicate).
				Value(opt.String()).
				Detail("duplicate option %s (already have %s)", opt, prev).
				Build())
		}
		byKind[opt.Kind()] = opt
	}

	for _, kind := range slices.Sorted(maps.Keys(byKind)) {
		if err := validateDowncall(byKind[kind], desc); err != nil {
			return nil, optionError(desc, err)
		}
	}
	return &Options{byKind: byKind}, nil
}

// ForUpcall validates options for an upcall. Upcalls take no options: any
// option fails with errors.KindUnsupported.
func ForUpcall(desc *FunctionDescriptor, opts ...Option) (*Options, error) {
	if desc == nil {
		return nil, optionError(desc, errors.InvalidArgument(errors.PhaseLinking, nil, "nil function descriptor"))
	}
	if len(opts) == 0 {
		return emptyOptions, nil
	}
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		if isNilOption(opt) {
			names = append(names, "nil")
			continue
		}
		names = append(names, opt.String())
	}
	return nil, optionError(desc, errors.Unsupported(errors.PhaseLinking,
		"upcalls take no linker options, got "+strings.Join(names, ", ")))
}

func validateDowncall(opt Option, desc *FunctionDescriptor) *errors.Error {
	switch o := opt.(type) {
	case *FirstVariadicArgOption:
		if o.index < 0 || o.index > desc.ArgumentCount() {
			return errors.New(errors.PhaseLinking, errors.KindOutOfBounds).
				Value(o.index).
				Detail("index '%d' not in bounds for descriptor: %s", o.index, desc).
				Build()
		}
		return nil
	case *CaptureCallStateOption:
		return nil
	default:
		panic("linker: unhandled option kind " + opt.Kind().String())
	}
}

func isNilOption(opt Option) bool {
	switch o := opt.(type) {
	case nil:
		return true
	case *FirstVariadicArgOption:
		return o == nil
	case *CaptureCallStateOption:
		return o == nil
	}
	return false
}

func optionError(desc *FunctionDescriptor, err *errors.Error) error {
	Logger().Debug("linker options rejected",
		zap.Stringer("descriptor", desc),
		zap.String("kind", string(err.Kind)),
		zap.Error(err),
	)
	return err
}

// Len is the number of options in the set.
func (o *Options) Len() int { return len(o.byKind) }

// Option returns the option of a kind.
func (o *Options) Option(kind OptionKind) (Option, bool) {
	opt, ok := o.byKind[kind]
	return opt, ok
}

// FirstVariadicArgIndex returns the first variadic position, false when the
// call site is not variadic.
func (o *Options) FirstVariadicArgIndex() (int, bool) {
	if opt, ok := o.byKind[KindFirstVariadicArg].(*FirstVariadicArgOption); ok {
		return opt.index, true
	}
	return 0, false
}

func (o *Options) IsVariadicFunction() bool {
	_, ok := o.FirstVariadicArgIndex()
	return ok
}

// IsVarargsIndex reports whether argument i is passed with variadic rules.
func (o *Options) IsVarargsIndex(i int) bool {
	first, ok := o.FirstVariadicArgIndex()
	return ok && i >= first
}

func (o *Options) captureOption() (*CaptureCallStateOption, bool) {
	opt, ok := o.byKind[KindCaptureCallState].(*CaptureCallStateOption)
	return opt, ok
}

func (o *Options) HasCapturedCallState() bool {
	_, ok := o.captureOption()
	return ok
}

// CapturedCallState yields the requested states in ascending ordinal order.
// It is empty without a capture option.
func (o *Options) CapturedCallState() iter.Seq[CapturableState] {
	if opt, ok := o.captureOption(); ok {
		return opt.States()
	}
	return func(func(CapturableState) bool) {}
}

// CapturedCallStateMask is the state mask passed to the stub, zero without a capture option.
func (o *Options) CapturedCallStateMask() uint32 {
	if opt, ok := o.captureOption(); ok {
		return opt.mask
	}
	return 0
}

// CaptureStateLayout returns the struct the stub fills after the call.
func (o *Options) CaptureStateLayout() (*layout.GroupLayout, bool) {
	if opt, ok := o.captureOption(); ok {
		return opt.Layout(), true
	}
	return nil, false
}

// Equal reports whether both sets hold equal options.
func (o *Options) Equal(other *Options) bool {
	if o == other {
		return true
	}
	if other == nil || len(o.byKind) != len(other.byKind) {
		return false
	}
	for kind, opt := range o.byKind {
		x, ok := other.byKind[kind]
		if !ok || !opt.equal(x) {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal.
func (o *Options) Hash() uint64 {
	h := bitmath.NewFNV()
	for _, kind := range slices.Sorted(maps.Keys(o.byKind)) {
		h.Mix(o.byKind[kind].hash())
	}
	return h.Sum()
}

func (o *Options) String() string {
	parts := make([]string, 0, len(o.byKind))
	for _, kind := range slices.Sorted(maps.Keys(o.byKind)) {
		parts = append(parts, o.byKind[kind].String())
	}
	return "Options[" + strings.Join(parts, ", ") + "]"
}
