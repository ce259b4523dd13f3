// Package layout describes the shape of native memory regions.
//
// A Layout has a bit size, a bit alignment and an optional name. Four kinds
// exist and the set is closed:
//
//   - ValueLayout: a scalar with a carrier (bool, integer, float, address) and a byte order
//   - PaddingLayout: unused bits
//   - SequenceLayout: a repeated element layout
//   - GroupLayout: a struct (members laid end to end) or union (members overlap)
//
// # Layout Rules
//
//   - Alignment is always a power of two and at least one byte (8 bits).
//   - Struct size is the sum of member sizes; each member must sit at an offset
//     that is a multiple of its alignment. PaddedStruct inserts the padding.
//   - Union size is the largest member size.
//   - Group alignment is the largest member alignment.
//   - ByteSize is only defined when the bit size is a multiple of 8.
//
// Layouts are immutable. The With* combinators return new copies, so a
// Layout can be shared between goroutines without synchronization.
//
// # Usage
//
//	point := layout.MustStruct(
//		layout.Int32.WithName("x"),
//		layout.Int32.WithName("y"),
//	)
//	size, _ := point.ByteSize() // 8
//
// FromWIT maps Component Model types onto layouts using the Canonical ABI
// rules, so signatures can be described with WIT definitions.
package layout
