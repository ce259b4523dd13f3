// Package linker validates native call sites and plans their storage.
//
// # Main Types
//
//   - FunctionDescriptor: ordered argument layouts and an optional return layout
//   - Option: a per-call-site linker option (FirstVariadicArg, CaptureCallState)
//   - Options: the validated, immutable option set of one call site
//   - Linker: binds descriptors and options to a calling convention, producing CallPlans
//
// # Thread Safety
//
// FunctionDescriptor, Options and CallPlan are immutable and safe for concurrent use.
// Linker is safe for concurrent use; its option interner is mutex guarded.
//
// # Validation Order
//
//  1. Duplicate option kinds are rejected
//  2. Each option is validated against the descriptor
//  3. An empty option list yields the shared empty Options
//
// # Example
//
//	l, _ := linker.NewWithDefaults(abi.SysV)
//	printf := linker.Of(layout.Int32, layout.Address, layout.Int32)
//	errno, _ := l.CaptureCallState("errno")
//	plan, _ := l.Downcall(printf, linker.FirstVariadicArg(1), errno)
//	for _, b := range plan.ArgBindings {
//		fmt.Println(b.Storage)
//	}
package linker
