// File: core/parcel/scalar.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Aligned scalar accessors. One generic pair serves every width; the named
// methods below are thin instantiations.

package parcel

import (
	"unsafe"
)

// Scalar lists the fixed-width values a parcel stores at natural alignment.
// Values use the host byte order.
type Scalar interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~uintptr
}

// padTo returns the bytes needed to move off up to the next multiple of w.
func padTo(off, w int) int {
	if r := off % w; r != 0 {
		return w - r
	}
	return 0
}

// Write stores v at the next offset aligned to its width. Padding and value
// are reserved together, so a failed write leaves the parcel untouched.
func Write[T Scalar](p *Parcel, v T) bool {
	w := int(unsafe.Sizeof(v))
	pad := padTo(p.writeCursor, w)
	borrowed := p.borrowedView()
	if !p.reserve(pad + w) {
		return false
	}
	off := p.writeCursor + pad
	clear(p.data[p.writeCursor:off])
	copy(p.data[off:off+w], unsafe.Slice((*byte)(unsafe.Pointer(&v)), w))
	p.writeCursor = off + w
	p.dataSize += pad + w
	p.handoff(borrowed)
	return true
}

// Read loads a T from the next offset aligned to its width. On shortfall it
// returns the zero value and false with the cursor unmoved, padding included.
func Read[T Scalar](p *Parcel) (T, bool) {
	var v T
	w := int(unsafe.Sizeof(v))
	pad := padTo(p.readCursor, w)
	if pad+w > p.Readable() {
		return v, false
	}
	off := p.readCursor + pad
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), w), p.data[off:off+w])
	p.readCursor = off + w
	return v, true
}

func read[T Scalar](p *Parcel) T {
	v, ok := Read[T](p)
	if !ok {
		p.shortRead()
	}
	return v
}

// WriteBool stores b as an int32 of 0 or 1.
func (p *Parcel) WriteBool(b bool) bool {
	var v int32
	if b {
		v = 1
	}
	return Write(p, v)
}

// ReadBool reads an int32 and reports whether it is non-zero.
func (p *Parcel) ReadBool() bool { return read[int32](p) != 0 }

func (p *Parcel) WriteInt8(v int8) bool     { return Write(p, v) }
func (p *Parcel) WriteInt16(v int16) bool   { return Write(p, v) }
func (p *Parcel) WriteInt32(v int32) bool   { return Write(p, v) }
func (p *Parcel) WriteInt64(v int64) bool   { return Write(p, v) }
func (p *Parcel) WriteUint8(v uint8) bool   { return Write(p, v) }
func (p *Parcel) WriteUint16(v uint16) bool { return Write(p, v) }
func (p *Parcel) WriteUint32(v uint32) bool { return Write(p, v) }
func (p *Parcel) WriteUint64(v uint64) bool { return Write(p, v) }
func (p *Parcel) WriteFloat32(v float32) bool {
	return Write(p, v)
}
func (p *Parcel) WriteFloat64(v float64) bool {
	return Write(p, v)
}

// WritePointer stores an opaque pointer-width value. It is only meaningful
// to a peer sharing the address space or a translation table.
func (p *Parcel) WritePointer(v uintptr) bool { return Write(p, v) }

// Named readers return the zero value on shortfall and latch Err.

func (p *Parcel) ReadInt8() int8       { return read[int8](p) }
func (p *Parcel) ReadInt16() int16     { return read[int16](p) }
func (p *Parcel) ReadInt32() int32     { return read[int32](p) }
func (p *Parcel) ReadInt64() int64     { return read[int64](p) }
func (p *Parcel) ReadUint8() uint8     { return read[uint8](p) }
func (p *Parcel) ReadUint16() uint16   { return read[uint16](p) }
func (p *Parcel) ReadUint32() uint32   { return read[uint32](p) }
func (p *Parcel) ReadUint64() uint64   { return read[uint64](p) }
func (p *Parcel) ReadFloat32() float32 { return read[float32](p) }
func (p *Parcel) ReadFloat64() float64 { return read[float64](p) }
func (p *Parcel) ReadPointer() uintptr { return read[uintptr](p) }
