package layout

import (
	"encoding/binary"
	"math/bits"
	"strconv"

	"github.com/wippyai/foreign-abi/errors"
	"github.com/wippyai/foreign-abi/internal/bitmath"
)

// Carrier is the kind of scalar a ValueLayout holds.
type Carrier uint8

const (
	CarrierBool Carrier = iota + 1
	CarrierInt8
	CarrierChar16
	CarrierInt16
	CarrierInt32
	CarrierFloat32
	CarrierInt64
	CarrierFloat64
	CarrierAddress
)

var carrierInfo = [...]struct {
	name    string
	tag     byte
	bitSize uint64
}{
	CarrierBool:    {"bool", 'z', 8},
	CarrierInt8:    {"int8", 'b', 8},
	CarrierChar16:  {"char16", 'c', 16},
	CarrierInt16:   {"int16", 's', 16},
	CarrierInt32:   {"int32", 'i', 32},
	CarrierFloat32: {"float32", 'f', 32},
	CarrierInt64:   {"int64", 'j', 64},
	CarrierFloat64: {"float64", 'd', 64},
	CarrierAddress: {"address", 'a', bits.UintSize},
}

func (c Carrier) String() string {
	if c.valid() {
		return carrierInfo[c].name
	}
	return "unknown"
}

// BitSize is the natural width of the carrier on the host.
func (c Carrier) BitSize() uint64 {
	if c.valid() {
		return carrierInfo[c].bitSize
	}
	return 0
}

// IsFloat reports whether the carrier is a floating point type.
func (c Carrier) IsFloat() bool {
	return c == CarrierFloat32 || c == CarrierFloat64
}

func (c Carrier) valid() bool {
	return c >= CarrierBool && int(c) < len(carrierInfo)
}

// ValueLayout is a scalar of a given carrier and byte order.
type ValueLayout struct {
	base
	carrier Carrier
	order   binary.ByteOrder
}

// Host-order value layouts with natural alignment.
var (
	Bool    = Value(CarrierBool, binary.NativeEndian)
	Int8    = Value(CarrierInt8, binary.NativeEndian)
	Char16  = Value(CarrierChar16, binary.NativeEndian)
	Int16   = Value(CarrierInt16, binary.NativeEndian)
	Int32   = Value(CarrierInt32, binary.NativeEndian)
	Float32 = Value(CarrierFloat32, binary.NativeEndian)
	Int64   = Value(CarrierInt64, binary.NativeEndian)
	Float64 = Value(CarrierFloat64, binary.NativeEndian)
	Address = Value(CarrierAddress, binary.NativeEndian)
)

// Value creates a naturally aligned value layout. It panics on an unknown carrier.
func Value(carrier Carrier, order binary.ByteOrder) *ValueLayout {
	if !carrier.valid() {
		panic("layout: unknown carrier " + strconv.Itoa(int(carrier)))
	}
	size := carrier.BitSize()
	return newValue(carrier, normalizeOrder(order), size, size, "", false)
}

// AddressOf creates an address layout of an explicit width, for targets whose
// pointer size differs from the host.
func AddressOf(bitSize uint64, order binary.ByteOrder) (*ValueLayout, error) {
	if bitSize < bitmath.BitsPerByte || !bitmath.IsPowerOfTwo(bitSize) {
		return nil, errors.InvalidArgument(errors.PhaseLayout, bitSize,
			"invalid address width %d bits", bitSize)
	}
	return newValue(CarrierAddress, normalizeOrder(order), bitSize, bitSize, "", false), nil
}

func newValue(carrier Carrier, order binary.ByteOrder, size, align uint64, name string, hasName bool) *ValueLayout {
	v := &ValueLayout{carrier: carrier, order: order}
	v.init(size, align, name, hasName)
	return v
}

// normalizeOrder maps NativeEndian onto the concrete order so that equality
// between host-order and explicit-order layouts is by value.
func normalizeOrder(order binary.ByteOrder) binary.ByteOrder {
	switch order {
	case nil, binary.NativeEndian:
		if hostLittleEndian {
			return binary.LittleEndian
		}
		return binary.BigEndian
	}
	return order
}

var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

func (v *ValueLayout) Carrier() Carrier { return v.carrier }

func (v *ValueLayout) Order() binary.ByteOrder { return v.order }

// WithOrder returns a copy with the given byte order.
func (v *ValueLayout) WithOrder(order binary.ByteOrder) *ValueLayout {
	return newValue(v.carrier, normalizeOrder(order), v.bitSize, v.bitAlign, v.name, v.hasName)
}

func (v *ValueLayout) HasNaturalAlignment() bool { return v.naturalAlignment() }

func (v *ValueLayout) WithName(name string) Layout {
	return newValue(v.carrier, v.order, v.bitSize, v.bitAlign, name, true)
}

func (v *ValueLayout) WithoutName() Layout {
	return newValue(v.carrier, v.order, v.bitSize, v.bitAlign, "", false)
}

func (v *ValueLayout) WithBitAlignment(align uint64) (Layout, error) {
	if err := checkAlignment(v, align); err != nil {
		return nil, err
	}
	return newValue(v.carrier, v.order, v.bitSize, align, v.name, v.hasName), nil
}

func (v *ValueLayout) WithByteAlignment(align uint64) (Layout, error) {
	bitAlign, err := byteAlignToBits(v, align)
	if err != nil {
		return nil, err
	}
	return v.WithBitAlignment(bitAlign)
}

func (v *ValueLayout) Equal(other Layout) bool {
	o, ok := other.(*ValueLayout)
	if !ok || o == nil {
		return false
	}
	return v.sameBase(&o.base) && v.carrier == o.carrier && v.order == o.order
}

func (v *ValueLayout) Hash() uint64 {
	h := v.hashBase(kindValue)
	h.Mix(uint64(v.carrier))
	if v.order == binary.BigEndian {
		h.Mix(1)
	} else {
		h.Mix(0)
	}
	return h.Sum()
}

// String renders the carrier tag and byte size, upper case for big endian: i4, J8.
func (v *ValueLayout) String() string {
	tag := carrierInfo[v.carrier].tag
	if v.order == binary.BigEndian {
		tag -= 'a' - 'A'
	}
	s := string(tag) + strconv.FormatUint(v.bitSize/bitmath.BitsPerByte, 10)
	return decorateLayoutString(v, s)
}
