package abi

import (
	"bytes"
	"encoding/binary"
	"io"

	"fortio.org/safecast"

	"github.com/wippyai/foreign-abi/errors"
)

// Binary shape, version 1, little endian:
//
//	magic           [4]byte  "ABID"
//	version         uint16
//	arch            string
//	input           table
//	output          table
//	volatile        table
//	stackAlignment  int32
//	shadowSpace     int32
//	scratch1        storage
//	scratch2        storage
//	targetAddr      storage
//	retBufAddr      storage
//	capturedState   storage
//
//	string   = uint16 length, bytes
//	table    = uint16 class count, per class: uint16 count, storage...
//	storage  = uint8 type, uint16 segmentMaskOrSize, int32 indexOrOffset, string debugName
const (
	DescriptorMagic   = "ABID"
	DescriptorVersion = 1
)

// MarshalBinary encodes the descriptor in the versioned binary shape.
func (d *Descriptor) MarshalBinary() ([]byte, error) {
	w := &descWriter{}
	w.buf.WriteString(DescriptorMagic)
	w.u16(DescriptorVersion)
	w.str(d.Arch.Name())
	w.table(d.InputStorage)
	w.table(d.OutputStorage)
	w.table(d.VolatileStorage)
	w.i32(d.StackAlignment)
	w.i32(d.ShadowSpace)
	for _, s := range []VMStorage{d.Scratch1, d.Scratch2, d.targetAddrStorage, d.retBufAddrStorage, d.capturedStateStorage} {
		w.storage(s)
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// UnmarshalDescriptor decodes a descriptor written by MarshalBinary.
func UnmarshalDescriptor(data []byte) (*Descriptor, error) {
	r := &descReader{r: bytes.NewReader(data)}

	magic := make([]byte, len(DescriptorMagic))
	if _, err := io.ReadFull(r.r, magic); err != nil || string(magic) != DescriptorMagic {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{"magic"}, "not an ABI descriptor")
	}
	if v := r.u16(); r.err == nil && v != DescriptorVersion {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Path("version").
			Value(v).
			Detail("descriptor version %d (supported: %d)", v, DescriptorVersion).
			Build()
	}

	archName := r.str()
	if r.err != nil {
		return nil, r.fail("arch")
	}
	arch, err := ArchitectureByName(archName)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "descriptor architecture")
	}

	s := DescriptorSpec{Arch: arch}
	s.InputStorage = r.table()
	s.OutputStorage = r.table()
	s.VolatileStorage = r.table()
	s.StackAlignment = r.i32()
	s.ShadowSpace = r.i32()
	s.Scratch1 = r.storage()
	s.Scratch2 = r.storage()
	s.TargetAddr = r.storage()
	s.RetBufAddr = r.storage()
	s.CapturedState = r.storage()
	if r.err != nil {
		return nil, r.fail("body")
	}
	if r.r.Len() != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "trailing bytes after descriptor")
	}
	return NewDescriptor(s), nil
}

type descWriter struct {
	err error
	buf bytes.Buffer
}

func (w *descWriter) u16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (w *descWriter) i32(v int32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func (w *descWriter) count(n int) {
	c, err := safecast.Conv[uint16](n)
	if err != nil && w.err == nil {
		w.err = errors.Wrap(errors.PhaseEncode, errors.KindOverflow, err, "descriptor length field")
	}
	w.u16(c)
}

func (w *descWriter) str(s string) {
	w.count(len(s))
	w.buf.WriteString(s)
}

func (w *descWriter) storage(s VMStorage) {
	w.buf.WriteByte(byte(s.Type))
	w.u16(s.SegmentMaskOrSize)
	w.i32(s.IndexOrOffset)
	w.str(s.DebugName)
}

func (w *descWriter) table(t [][]VMStorage) {
	w.count(len(t))
	for _, regs := range t {
		w.count(len(regs))
		for _, s := range regs {
			w.storage(s)
		}
	}
}

type descReader struct {
	err error
	r   *bytes.Reader
}

func (r *descReader) read(p []byte) {
	if r.err != nil {
		return
	}
	_, r.err = io.ReadFull(r.r, p)
}

func (r *descReader) u16() uint16 {
	var b [2]byte
	r.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (r *descReader) i32() int32 {
	var b [4]byte
	r.read(b[:])
	return int32(binary.LittleEndian.Uint32(b[:]))
}

func (r *descReader) str() string {
	n := r.u16()
	if r.err != nil {
		return ""
	}
	b := make([]byte, n)
	r.read(b)
	return string(b)
}

func (r *descReader) storage() VMStorage {
	var t [1]byte
	r.read(t[:])
	return VMStorage{
		Type:              StorageType(t[0]),
		SegmentMaskOrSize: r.u16(),
		IndexOrOffset:     r.i32(),
		DebugName:         r.str(),
	}
}

func (r *descReader) table() [][]VMStorage {
	classes := r.u16()
	if r.err != nil {
		return nil
	}
	t := make([][]VMStorage, classes)
	for i := range t {
		n := r.u16()
		if r.err != nil {
			return nil
		}
		regs := make([]VMStorage, n)
		for j := range regs {
			regs[j] = r.storage()
		}
		t[i] = regs
	}
	return t
}

func (r *descReader) fail(section string) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(section).
		Cause(r.err).
		Detail("truncated descriptor").
		Build()
}
