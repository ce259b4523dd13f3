// Package foreignabi describes native C calls for a foreign-function linker.
//
// It holds the data a stub generator needs to call into native code or be
// called back from it: how values are laid out in memory, which registers
// and stack slots each calling convention uses, and the validated options of
// one call site.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	foreignabi/
//	├── layout/          Memory layouts: values, padding, sequences, structs, unions, WIT mapping
//	├── abi/             Storage locations, per-convention descriptors, binary encoding
//	├── linker/          Function descriptors, linker options, call plans
//	├── errors/          Structured error types for debugging
//	└── cmd/abidump/     CLI and TUI for inspecting descriptors and plans
//
// # Quick Start
//
// Plan a variadic downcall that saves errno:
//
//	l, err := linker.NewHost()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	printf := linker.Of(layout.Int32, layout.Address).
//	    AppendArgumentLayouts(layout.Int32)
//	errno, _ := l.CaptureCallState("errno")
//
//	plan, err := l.Downcall(printf, linker.FirstVariadicArg(1), errno)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, b := range plan.ArgBindings {
//	    fmt.Println(i, b.Storage)
//	}
//
// # Supported Conventions
//
//   - sysv-x86_64: Linux, macOS and BSD on x86-64
//   - windows-x86_64: Windows x64 with 32 bytes of shadow space
//   - linux-aarch64 and macos-aarch64: AAPCS64 and the Apple variant
//   - linux-riscv64: RV64GC LP64D
//
// # Thread Safety
//
// Layouts, descriptors, options and plans are immutable once built and may
// be shared between goroutines. Descriptor tables are built once per process.
//
// # Errors
//
// Every failure is an *errors.Error with a phase and a kind, so callers can
// test with errors.IsKind(err, errors.KindOutOfBounds) and similar.
package foreignabi
