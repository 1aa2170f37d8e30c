// File: core/ring/header.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared ring header. The layout is a wire contract between the two sides of
// a coherent channel: every field is fixed-width, host byte order, and the
// producer and consumer counters sit on cache lines of their own so one can
// be cleaned without touching the other or the geometry.

package ring

import (
	"sync/atomic"
	"unsafe"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/core/cache"
)

const (
	// CacheLineSize is the granule the header is laid out on.
	CacheLineSize = cache.LineSize

	// HeaderSize is the byte size of Header; the payload follows it.
	HeaderSize = 3 * CacheLineSize

	headOffset = CacheLineSize
	tailOffset = 2 * CacheLineSize
)

// Header is the persistent state both sides of a channel read and write.
//
//	0x00 capacity       u32
//	0x04 mask           u32  capacity-1
//	0x08 mode           u32  api.RingMode
//	0x0C payloadOffset  u32  payload start relative to the header
//	0x40 head           u32  producer counter
//	0x80 tail           u32  consumer counter
type Header struct {
	capacity      uint32
	mask          uint32
	mode          uint32
	payloadOffset uint32
	_             [CacheLineSize - 16]byte
	head          uint32
	_             [CacheLineSize - 4]byte
	tail          uint32
	_             [CacheLineSize - 4]byte
}

// Compile-time layout checks.
var (
	_ [HeaderSize - unsafe.Sizeof(Header{})]byte
	_ [unsafe.Sizeof(Header{}) - HeaderSize]byte
	_ [headOffset - unsafe.Offsetof(Header{}.head)]byte
	_ [unsafe.Offsetof(Header{}.head) - headOffset]byte
	_ [tailOffset - unsafe.Offsetof(Header{}.tail)]byte
	_ [unsafe.Offsetof(Header{}.tail) - tailOffset]byte
)

// RegionSize returns the bytes needed to host a header and its payload.
func RegionSize(capacity uint32) int {
	return HeaderSize + int(capacity)
}

// headerAt overlays a Header on the first HeaderSize bytes of region.
func headerAt(region []byte) (*Header, error) {
	if len(region) < HeaderSize {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "region smaller than ring header").
			Wrap(api.ErrInvalidArgument).
			WithContext("size", len(region))
	}
	if uintptr(unsafe.Pointer(&region[0]))%8 != 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "ring region is not 8-byte aligned").
			Wrap(api.ErrInvalidArgument)
	}
	return (*Header)(unsafe.Pointer(&region[0])), nil
}

func (h *Header) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(h)), HeaderSize)
}

func (h *Header) headLine() []byte { return h.bytes()[headOffset:tailOffset] }
func (h *Header) tailLine() []byte { return h.bytes()[tailOffset:HeaderSize] }

// Capacity returns the payload size recorded by the creator.
func (h *Header) Capacity() uint32 { return atomic.LoadUint32(&h.capacity) }

// Mask returns capacity-1.
func (h *Header) Mask() uint32 { return atomic.LoadUint32(&h.mask) }

// Mode returns the coherency mode tag.
func (h *Header) Mode() api.RingMode { return api.RingMode(atomic.LoadUint32(&h.mode)) }

// PayloadOffset returns where the payload starts, relative to the header.
func (h *Header) PayloadOffset() uint32 { return atomic.LoadUint32(&h.payloadOffset) }

// Head returns the producer counter.
func (h *Header) Head() uint32 { return atomic.LoadUint32(&h.head) }

// Tail returns the consumer counter.
func (h *Header) Tail() uint32 { return atomic.LoadUint32(&h.tail) }

func (h *Header) setHead(v uint32) { atomic.StoreUint32(&h.head, v) }
func (h *Header) setTail(v uint32) { atomic.StoreUint32(&h.tail, v) }

func (h *Header) init(capacity uint32, mode api.RingMode) {
	atomic.StoreUint32(&h.capacity, capacity)
	atomic.StoreUint32(&h.mask, capacity-1)
	atomic.StoreUint32(&h.mode, uint32(mode))
	atomic.StoreUint32(&h.payloadOffset, HeaderSize)
	h.setHead(0)
	h.setTail(0)
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
