package abi

// Placeholder indexes of the three singleton stub locations.
const (
	PlaceholderTargetAddress int32 = iota
	PlaceholderReturnBuffer
	PlaceholderCapturedState
)

// Descriptor is the per-convention storage table consumed by stub
// generators. Field order is the binary order written by MarshalBinary.
//
// The storage tables are indexed [class][position] where class is a
// register StorageType. They are exported for bulk iteration and shared by
// every user of the descriptor: never modify them.
type Descriptor struct {
	Arch Architecture

	InputStorage    [][]VMStorage
	OutputStorage   [][]VMStorage
	VolatileStorage [][]VMStorage

	StackAlignment int32
	ShadowSpace    int32

	Scratch1 VMStorage
	Scratch2 VMStorage

	targetAddrStorage    VMStorage
	retBufAddrStorage    VMStorage
	capturedStateStorage VMStorage
}

// DescriptorSpec carries the fields of a Descriptor in binary order.
type DescriptorSpec struct {
	Arch            Architecture
	InputStorage    [][]VMStorage
	OutputStorage   [][]VMStorage
	VolatileStorage [][]VMStorage
	StackAlignment  int32
	ShadowSpace     int32
	Scratch1        VMStorage
	Scratch2        VMStorage
	TargetAddr      VMStorage
	RetBufAddr      VMStorage
	CapturedState   VMStorage
}

// NewDescriptor builds a descriptor. It only checks that every table is
// present; a malformed table is a bring-up defect and panics.
func NewDescriptor(s DescriptorSpec) *Descriptor {
	if s.Arch == nil {
		panic("abi: descriptor without architecture")
	}
	if s.InputStorage == nil || s.OutputStorage == nil || s.VolatileStorage == nil {
		panic("abi: descriptor for " + s.Arch.Name() + " is missing a storage table")
	}
	return &Descriptor{
		Arch:                 s.Arch,
		InputStorage:         s.InputStorage,
		OutputStorage:        s.OutputStorage,
		VolatileStorage:      s.VolatileStorage,
		StackAlignment:       s.StackAlignment,
		ShadowSpace:          s.ShadowSpace,
		Scratch1:             s.Scratch1,
		Scratch2:             s.Scratch2,
		targetAddrStorage:    s.TargetAddr,
		retBufAddrStorage:    s.RetBufAddr,
		capturedStateStorage: s.CapturedState,
	}
}

// TargetAddrStorage is where the stub expects the address of the native function.
func (d *Descriptor) TargetAddrStorage() VMStorage { return d.targetAddrStorage }

// RetBufAddrStorage is where the stub expects the in-memory return buffer.
func (d *Descriptor) RetBufAddrStorage() VMStorage { return d.retBufAddrStorage }

// CapturedStateStorage is where the stub expects the captured call state buffer.
func (d *Descriptor) CapturedStateStorage() VMStorage { return d.capturedStateStorage }

// Input returns the argument registers of a class, nil when the class has none.
func (d *Descriptor) Input(class StorageType) []VMStorage {
	return row(d.InputStorage, class)
}

// Output returns the return registers of a class.
func (d *Descriptor) Output(class StorageType) []VMStorage {
	return row(d.OutputStorage, class)
}

// Volatile returns the call-clobbered registers of a class not used for arguments or returns.
func (d *Descriptor) Volatile(class StorageType) []VMStorage {
	return row(d.VolatileStorage, class)
}

func row(table [][]VMStorage, class StorageType) []VMStorage {
	if int(class) >= len(table) {
		return nil
	}
	return table[class]
}

// IsVolatile reports whether s is clobbered by a call under this descriptor.
func (d *Descriptor) IsVolatile(s VMStorage) bool {
	for _, table := range [][][]VMStorage{d.InputStorage, d.OutputStorage, d.VolatileStorage} {
		for _, regs := range table {
			for _, r := range regs {
				if r == s {
					return true
				}
			}
		}
	}
	return false
}
