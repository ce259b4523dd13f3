// Package errors provides structured error types for the foreign-abi module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the member path, the rendered layout involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
//		Layout(l).
//		Value(align).
//		Detail("invalid alignment %d", align).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Duplicate(errors.PhaseLinking, "option FirstVariadicArg[1]")
//	err := errors.OutOfBounds(errors.PhaseLinking, nil, 4, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches errors of the same Kind in any phase.
package errors
