package abi

import (
	"fmt"
	"strconv"
)

// StorageType is a storage class. Register classes double as indexes into
// the Descriptor storage tables.
type StorageType uint8

const (
	StorageInteger StorageType = iota
	StorageVector              // XMM on x64, V on AArch64, F on RISC-V
	StorageX87
	StorageStack
	StoragePlaceholder
)

var storageTypeNames = [...]string{
	StorageInteger:     "integer",
	StorageVector:      "vector",
	StorageX87:         "x87",
	StorageStack:       "stack",
	StoragePlaceholder: "placeholder",
}

func (t StorageType) String() string {
	if int(t) < len(storageTypeNames) {
		return storageTypeNames[t]
	}
	return "storage(" + strconv.Itoa(int(t)) + ")"
}

// IsRegister reports whether t is one of the register classes.
func (t StorageType) IsRegister() bool {
	return t < StorageStack
}

// VMStorage identifies a physical location. For registers
// SegmentMaskOrSize selects the used segments and IndexOrOffset is the
// register number; for stack slots they are the slot size in bytes and the
// offset from the stack pointer at the call.
//
// VMStorage is comparable; equal values name the same location.
type VMStorage struct {
	DebugName         string
	IndexOrOffset     int32
	SegmentMaskOrSize uint16
	Type              StorageType
}

// Register creates a register storage.
func Register(t StorageType, segmentMask uint16, index int32, debugName string) VMStorage {
	return VMStorage{
		Type:              t,
		SegmentMaskOrSize: segmentMask,
		IndexOrOffset:     index,
		DebugName:         debugName,
	}
}

// StackSlot creates a stack storage of size bytes at offset.
func StackSlot(size uint16, offset int32) VMStorage {
	return VMStorage{
		Type:              StorageStack,
		SegmentMaskOrSize: size,
		IndexOrOffset:     offset,
		DebugName:         "Stack@" + strconv.Itoa(int(offset)),
	}
}

// Placeholder creates a storage the stub generator resolves to a concrete location.
func Placeholder(index int32, debugName string) VMStorage {
	return VMStorage{
		Type:          StoragePlaceholder,
		IndexOrOffset: index,
		DebugName:     debugName,
	}
}

func (s VMStorage) IsStack() bool { return s.Type == StorageStack }

func (s VMStorage) IsPlaceholder() bool { return s.Type == StoragePlaceholder }

// IsZero reports whether s is the zero value, used for absent slots.
func (s VMStorage) IsZero() bool { return s == VMStorage{} }

// StackOffset returns the stack offset; valid only for stack storage.
func (s VMStorage) StackOffset() int32 { return s.IndexOrOffset }

func (s VMStorage) String() string {
	if s.DebugName != "" {
		return s.DebugName
	}
	return fmt.Sprintf("%s[%d/0x%x]", s.Type, s.IndexOrOffset, s.SegmentMaskOrSize)
}
