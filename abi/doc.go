// Package abi describes how native calling conventions bind values to
// physical storage.
//
// # Main Types
//
//   - VMStorage: a register (class + index + segment mask) or a stack slot
//   - Architecture: register classes and their sizes for one ISA
//   - Descriptor: the per-convention table of input, output and volatile
//     storage plus stack alignment, shadow space, scratch registers and the
//     three placeholder slots a stub resolves at generation time
//   - Convention: a supported C calling convention (SysV x64, Windows x64,
//     Linux and macOS AArch64, Linux RISC-V 64)
//
// # Thread Safety
//
// Descriptors are built once, on first lookup, and are read-only afterwards.
// The exported storage tables are shared; callers must not modify them.
//
// # Binary Shape
//
// MarshalBinary writes a descriptor in a fixed, versioned little-endian
// shape (see binary.go). Fields appear in declaration order; reordering or
// resizing a field requires a new DescriptorVersion.
//
// # Example
//
//	conv, _ := abi.Host()
//	d := conv.Descriptor()
//	for _, reg := range d.Input(abi.StorageInteger) {
//	    fmt.Println(reg)
//	}
package abi
