package abi

import (
	"slices"
	"strconv"

	"github.com/wippyai/foreign-abi/errors"
)

// Architecture describes the register classes of an instruction set.
type Architecture interface {
	Name() string
	// IsStackType reports whether values of t live in memory.
	IsStackType(t StorageType) bool
	// TypeSize is the byte width of one storage of class t.
	TypeSize(t StorageType) int
	StackSlotSize() int
}

type architecture struct {
	name      string
	sizes     map[StorageType]int
	stackSlot int
}

func (a *architecture) Name() string { return a.name }

func (a *architecture) IsStackType(t StorageType) bool { return t == StorageStack }

func (a *architecture) TypeSize(t StorageType) int {
	if t == StorageStack {
		return a.stackSlot
	}
	if size, ok := a.sizes[t]; ok {
		return size
	}
	panic("abi: storage type " + t.String() + " not supported on " + a.name)
}

func (a *architecture) StackSlotSize() int { return a.stackSlot }

func (a *architecture) String() string { return a.name }

// Register segment masks.
const (
	reg64Mask  uint16 = 0b1111 // x64 integer register: all four 16-bit segments
	xmmMask    uint16 = 0b0001
	singleMask uint16 = 0b0001
)

// X64 is the x86-64 instruction set.
var X64 Architecture = &architecture{
	name: "x86_64",
	sizes: map[StorageType]int{
		StorageInteger: 8,
		StorageVector:  16,
		StorageX87:     16,
	},
	stackSlot: 8,
}

// AArch64 is the 64-bit ARM instruction set.
var AArch64 Architecture = &architecture{
	name: "aarch64",
	sizes: map[StorageType]int{
		StorageInteger: 8,
		StorageVector:  16,
	},
	stackSlot: 8,
}

// RISCV64 is the RV64GC instruction set; vector storage holds the D-extension float registers.
var RISCV64 Architecture = &architecture{
	name: "riscv64",
	sizes: map[StorageType]int{
		StorageInteger: 8,
		StorageVector:  8,
	},
	stackSlot: 8,
}

var architectures = map[string]Architecture{
	X64.Name():     X64,
	AArch64.Name(): AArch64,
	RISCV64.Name(): RISCV64,
}

// ArchitectureByName returns a registered architecture.
func ArchitectureByName(name string) (Architecture, error) {
	if a, ok := architectures[name]; ok {
		return a, nil
	}
	return nil, errors.NotFound(errors.PhaseABI, "architecture", name)
}

// Architectures lists the registered architecture names in sorted order.
func Architectures() []string {
	names := make([]string, 0, len(architectures))
	for name := range architectures {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// x64 registers.
func x64Reg(index int32, name string) VMStorage {
	return Register(StorageInteger, reg64Mask, index, name)
}

func xmm(index int32) VMStorage {
	return Register(StorageVector, xmmMask, index, "xmm"+strconv.Itoa(int(index)))
}

func x87(index int32) VMStorage {
	return Register(StorageX87, singleMask, index, "st"+strconv.Itoa(int(index)))
}

var (
	rax = x64Reg(0, "rax")
	rcx = x64Reg(1, "rcx")
	rdx = x64Reg(2, "rdx")
	rsi = x64Reg(6, "rsi")
	rdi = x64Reg(7, "rdi")
	r8  = x64Reg(8, "r8")
	r9  = x64Reg(9, "r9")
	r10 = x64Reg(10, "r10")
	r11 = x64Reg(11, "r11")
)

// aarch64 registers.
func aarch64Reg(index int32) VMStorage {
	return Register(StorageInteger, singleMask, index, "r"+strconv.Itoa(int(index)))
}

func aarch64Vec(index int32) VMStorage {
	return Register(StorageVector, singleMask, index, "v"+strconv.Itoa(int(index)))
}

// riscv64 registers, named by ABI mnemonic.
var riscvIntNames = map[int32]string{
	5: "t0", 6: "t1", 7: "t2",
	10: "a0", 11: "a1", 12: "a2", 13: "a3", 14: "a4", 15: "a5", 16: "a6", 17: "a7",
	28: "t3", 29: "t4", 30: "t5", 31: "t6",
}

func riscvReg(index int32) VMStorage {
	name, ok := riscvIntNames[index]
	if !ok {
		name = "x" + strconv.Itoa(int(index))
	}
	return Register(StorageInteger, singleMask, index, name)
}

func riscvFloat(index int32) VMStorage {
	var name string
	switch {
	case index >= 10 && index <= 17:
		name = "fa" + strconv.Itoa(int(index-10))
	case index <= 7:
		name = "ft" + strconv.Itoa(int(index))
	case index >= 28:
		name = "ft" + strconv.Itoa(int(index-20))
	default:
		name = "f" + strconv.Itoa(int(index))
	}
	return Register(StorageVector, singleMask, index, name)
}

func regRange(mk func(int32) VMStorage, from, to int32) []VMStorage {
	out := make([]VMStorage, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, mk(i))
	}
	return out
}
