package linker

import (
	"go.uber.org/zap"

	"github.com/wippyai/foreign-abi/abi"
	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/linker/internal/arrange"
)

// Config configures linker behavior.
type Config struct {
	// OS decides which call states can be captured. Empty means the
	// operating system of the convention.
	OS string
	// InternOptions shares equal option sets between call sites.
	InternOptions bool
}

// DefaultConfig returns default linker configuration.
func DefaultConfig() Config {
	return Config{
		InternOptions: true,
	}
}

// Binding places one argument or return value.
type Binding = arrange.Binding

// CallPlan is the validated storage plan of one call site, ready for a stub generator.
type CallPlan struct {
	Descriptor *FunctionDescriptor
	Options    *Options
	Convention abi.Convention

	ArgBindings   []Binding
	ReturnBinding Binding
	HasReturn     bool
	// ReturnsInMemory means the callee writes the result through ReturnBinding.Storage.
	ReturnsInMemory bool

	StackSize int64

	TargetBinding abi.VMStorage
	// CapturedStateBinding is zero unless the options capture call state.
	CapturedStateBinding abi.VMStorage
	CapturedStateMask    uint32

	// VectorCount is loaded into VectorCountBinding before variadic SysV calls.
	VectorCount        int
	VectorCountBinding abi.VMStorage
}

// Linker binds function descriptors to one calling convention.
// Thread-safe.
type Linker struct {
	table    *abi.Descriptor
	interner *Interner
	config   Config
	conv     abi.Convention
	rules    arrange.Rules
}

// New creates a linker for conv.
func New(conv abi.Convention, cfg Config) (*Linker, error) {
	table := conv.Descriptor()
	if table == nil {
		return nil, errors.NotFound(errors.PhaseABI, "calling convention", conv.String())
	}
	if cfg.OS == "" {
		cfg.OS = conv.OS()
	}
	l := &Linker{
		table:  table,
		config: cfg,
		conv:   conv,
		rules:  arrange.RulesFor(conv),
	}
	if cfg.InternOptions {
		l.interner = NewInterner()
	}
	return l, nil
}

// NewWithDefaults creates a linker for conv with default configuration.
func NewWithDefaults(conv abi.Convention) (*Linker, error) {
	return New(conv, DefaultConfig())
}

// NewHost creates a linker for the running process.
func NewHost() (*Linker, error) {
	conv, err := abi.Host()
	if err != nil {
		return nil, err
	}
	return NewWithDefaults(conv)
}

func (l *Linker) Convention() abi.Convention { return l.conv }

func (l *Linker) ABI() *abi.Descriptor { return l.table }

// Config returns the configuration.
func (l *Linker) Config() Config { return l.config }

// Interner returns the option interner, nil when interning is disabled.
func (l *Linker) Interner() *Interner { return l.interner }

// CaptureCallState resolves state names for the linker's operating system.
func (l *Linker) CaptureCallState(names ...string) (*CaptureCallStateOption, error) {
	return CaptureCallStateOn(l.config.OS, names...)
}

// Downcall validates opts against desc and plans the call.
func (l *Linker) Downcall(desc *FunctionDescriptor, opts ...Option) (*CallPlan, error) {
	o, err := ForDowncall(desc, opts...)
	if err != nil {
		return nil, err
	}
	for s := range o.CapturedCallState() {
		if !s.SupportedOn(l.config.OS) {
			return nil, optionError(desc, errors.InvalidArgument(errors.PhaseLinking, s.Name(),
				"call state %s cannot be captured on %s", s, l.config.OS))
		}
	}
	return l.plan(desc, o, "downcall")
}

// Upcall plans a native-to-managed entry point. Upcalls take no options.
func (l *Linker) Upcall(desc *FunctionDescriptor, opts ...Option) (*CallPlan, error) {
	o, err := ForUpcall(desc, opts...)
	if err != nil {
		return nil, err
	}
	return l.plan(desc, o, "upcall")
}

func (l *Linker) plan(desc *FunctionDescriptor, o *Options, direction string) (*CallPlan, error) {
	if l.interner != nil {
		o = l.interner.Intern(o)
	}

	req := arrange.Request{Args: desc.args, Return: desc.ret, FirstVariadic: -1}
	if first, ok := o.FirstVariadicArgIndex(); ok {
		req.FirstVariadic = first
	}
	res, err := arrange.Arrange(l.table, l.rules, req)
	if err != nil {
		Logger().Debug("call arrangement failed",
			zap.String("direction", direction),
			zap.Stringer("descriptor", desc),
			zap.Error(err),
		)
		return nil, err
	}

	p := &CallPlan{
		Descriptor:         desc,
		Options:            o,
		Convention:         l.conv,
		ArgBindings:        res.Args,
		ReturnBinding:      res.Return,
		HasReturn:          res.HasReturn,
		ReturnsInMemory:    res.ReturnsInMemory,
		StackSize:          res.StackSize,
		VectorCount:        res.VectorCount,
		VectorCountBinding: res.VectorCountStorage,
	}
	if direction == "downcall" {
		p.TargetBinding = l.table.TargetAddrStorage()
	}
	if o.HasCapturedCallState() {
		p.CapturedStateBinding = l.table.CapturedStateStorage()
		p.CapturedStateMask = o.CapturedCallStateMask()
	}

	Logger().Debug("call planned",
		zap.String("direction", direction),
		zap.Stringer("convention", l.conv),
		zap.Stringer("descriptor", desc),
		zap.Stringer("options", o),
		zap.Int64("stack_size", p.StackSize),
		zap.Bool("returns_in_memory", p.ReturnsInMemory),
	)
	return p, nil
}
