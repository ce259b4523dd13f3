package abi

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/foreign-abi/errors"
)

// Convention is a supported C calling convention.
type Convention uint8

const (
	SysV Convention = iota + 1
	Win64
	LinuxAArch64
	MacOSAArch64
	LinuxRISCV64
)

var conventionInfo = [...]struct {
	name string
	os   string
	arch Architecture
}{
	SysV:         {"sysv-x86_64", "linux", X64},
	Win64:        {"windows-x86_64", "windows", X64},
	LinuxAArch64: {"linux-aarch64", "linux", AArch64},
	MacOSAArch64: {"macos-aarch64", "darwin", AArch64},
	LinuxRISCV64: {"linux-riscv64", "linux", RISCV64},
}

func (c Convention) valid() bool {
	return c >= SysV && int(c) < len(conventionInfo)
}

func (c Convention) String() string {
	if c.valid() {
		return conventionInfo[c].name
	}
	return "unknown"
}

// OS is the GOOS-style operating system whose C library the convention
// serves. It decides which call states can be captured.
func (c Convention) OS() string {
	if c.valid() {
		return conventionInfo[c].os
	}
	return ""
}

func (c Convention) Arch() Architecture {
	if c.valid() {
		return conventionInfo[c].arch
	}
	return nil
}

// Conventions lists every supported convention.
func Conventions() []Convention {
	return []Convention{SysV, Win64, LinuxAArch64, MacOSAArch64, LinuxRISCV64}
}

// ParseConvention resolves a convention by name.
func ParseConvention(name string) (Convention, error) {
	for _, c := range Conventions() {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, errors.NotFound(errors.PhaseABI, "calling convention", name)
}

// ConventionFor maps a GOOS/GOARCH pair to its C calling convention.
func ConventionFor(goos, goarch string) (Convention, error) {
	switch goarch {
	case "amd64":
		if goos == "windows" {
			return Win64, nil
		}
		return SysV, nil
	case "arm64":
		switch goos {
		case "darwin", "ios":
			return MacOSAArch64, nil
		case "windows":
			return 0, errors.Unsupported(errors.PhaseABI, "windows/arm64 calling convention")
		}
		return LinuxAArch64, nil
	case "riscv64":
		if goos == "linux" {
			return LinuxRISCV64, nil
		}
	}
	return 0, errors.NotFound(errors.PhaseABI, "calling convention", goos+"/"+goarch)
}

// Host returns the convention of the running process.
func Host() (Convention, error) {
	return ConventionFor(runtime.GOOS, runtime.GOARCH)
}

var (
	descriptors     [len(conventionInfo)]*Descriptor
	descriptorsOnce sync.Once
)

// Descriptor returns the process-wide descriptor of c, building all tables on first use.
// It returns nil for an unknown convention.
func (c Convention) Descriptor() *Descriptor {
	if !c.valid() {
		return nil
	}
	descriptorsOnce.Do(bootstrapDescriptors)
	return descriptors[c]
}

// Lookup returns the descriptor of a convention by name.
func Lookup(name string) (*Descriptor, error) {
	c, err := ParseConvention(name)
	if err != nil {
		return nil, err
	}
	return c.Descriptor(), nil
}

func bootstrapDescriptors() {
	descriptors[SysV] = sysvDescriptor()
	descriptors[Win64] = win64Descriptor()
	descriptors[LinuxAArch64] = aarch64Descriptor()
	descriptors[MacOSAArch64] = aarch64Descriptor()
	descriptors[LinuxRISCV64] = riscv64Descriptor()

	for _, c := range Conventions() {
		d := descriptors[c]
		Logger().Debug("abi descriptor ready",
			zap.Stringer("convention", c),
			zap.String("arch", d.Arch.Name()),
			zap.Int("int_args", len(d.Input(StorageInteger))),
			zap.Int("vector_args", len(d.Input(StorageVector))),
			zap.Int32("shadow_space", d.ShadowSpace),
		)
	}
}

// The three singleton storages are placeholders resolved by the stub generator.
func stubPlaceholders(s *DescriptorSpec) {
	s.TargetAddr = Placeholder(PlaceholderTargetAddress, "target_address")
	s.RetBufAddr = Placeholder(PlaceholderReturnBuffer, "return_buffer")
	s.CapturedState = Placeholder(PlaceholderCapturedState, "captured_state_buffer")
}

func sysvDescriptor() *Descriptor {
	s := DescriptorSpec{
		Arch: X64,
		InputStorage: [][]VMStorage{
			StorageInteger: {rdi, rsi, rdx, rcx, r8, r9},
			StorageVector:  regRange(xmm, 0, 7),
		},
		OutputStorage: [][]VMStorage{
			StorageInteger: {rax, rdx},
			StorageVector:  {xmm(0), xmm(1)},
			StorageX87:     {x87(0), x87(1)},
		},
		VolatileStorage: [][]VMStorage{
			StorageInteger: {r10, r11},
			StorageVector:  regRange(xmm, 8, 15),
		},
		StackAlignment: 16,
		ShadowSpace:    0,
		Scratch1:       r10,
		Scratch2:       r11,
	}
	stubPlaceholders(&s)
	return NewDescriptor(s)
}

func win64Descriptor() *Descriptor {
	s := DescriptorSpec{
		Arch: X64,
		InputStorage: [][]VMStorage{
			StorageInteger: {rcx, rdx, r8, r9},
			StorageVector:  regRange(xmm, 0, 3),
		},
		OutputStorage: [][]VMStorage{
			StorageInteger: {rax},
			StorageVector:  {xmm(0)},
		},
		VolatileStorage: [][]VMStorage{
			StorageInteger: {r10, r11},
			StorageVector:  regRange(xmm, 4, 5),
		},
		StackAlignment: 16,
		ShadowSpace:    32,
		Scratch1:       r10,
		Scratch2:       r11,
	}
	stubPlaceholders(&s)
	return NewDescriptor(s)
}

func aarch64Descriptor() *Descriptor {
	s := DescriptorSpec{
		Arch: AArch64,
		InputStorage: [][]VMStorage{
			StorageInteger: regRange(aarch64Reg, 0, 7),
			StorageVector:  regRange(aarch64Vec, 0, 7),
		},
		OutputStorage: [][]VMStorage{
			StorageInteger: regRange(aarch64Reg, 0, 1),
			StorageVector:  regRange(aarch64Vec, 0, 3),
		},
		VolatileStorage: [][]VMStorage{
			StorageInteger: regRange(aarch64Reg, 9, 15),
			StorageVector:  regRange(aarch64Vec, 16, 31),
		},
		StackAlignment: 16,
		ShadowSpace:    0,
		Scratch1:       aarch64Reg(9),
		Scratch2:       aarch64Reg(10),
	}
	stubPlaceholders(&s)
	return NewDescriptor(s)
}

func riscv64Descriptor() *Descriptor {
	volatileFloat := append(regRange(riscvFloat, 0, 7), regRange(riscvFloat, 28, 31)...)
	s := DescriptorSpec{
		Arch: RISCV64,
		InputStorage: [][]VMStorage{
			StorageInteger: regRange(riscvReg, 10, 17),
			StorageVector:  regRange(riscvFloat, 10, 17),
		},
		OutputStorage: [][]VMStorage{
			StorageInteger: regRange(riscvReg, 10, 11),
			StorageVector:  regRange(riscvFloat, 10, 11),
		},
		VolatileStorage: [][]VMStorage{
			StorageInteger: append(regRange(riscvReg, 5, 7), regRange(riscvReg, 28, 31)...),
			StorageVector:  volatileFloat,
		},
		StackAlignment: 16,
		ShadowSpace:    0,
		Scratch1:       riscvReg(28),
		Scratch2:       riscvReg(29),
	}
	stubPlaceholders(&s)
	return NewDescriptor(s)
}
