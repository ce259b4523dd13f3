// Package bitmath provides alignment and overflow-checked arithmetic shared by
// the layout, abi and linker packages.
//
// Sizes in this module are tracked in bits (layouts) and bytes (stack frames),
// always as uint64. Every helper here is pure.
//
// This package is internal to the module.
package bitmath
