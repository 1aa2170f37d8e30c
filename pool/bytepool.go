// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-classed byte pool for frame and event payload buffers.

package pool

import (
	"math/bits"
	"sync/atomic"

	"github.com/momentics/voicering/api"
)

const (
	minClassShift = 6  // 64 bytes
	maxClassShift = 16 // 64 KiB
	numClasses    = maxClassShift - minClassShift + 1

	// DefaultClassDepth bounds the free list of each class.
	DefaultClassDepth = 1024
)

var _ api.BytePool = (*BytePool)(nil)

// BytePool hands out []byte in power-of-two size classes from 64 B to 64 KiB.
// Larger requests bypass the pool. Free lists are bounded channels; a full
// list drops the buffer for the GC.
type BytePool struct {
	classes [numClasses]chan []byte

	acquired atomic.Int64
	released atomic.Int64
	misses   atomic.Int64
}

// NewBytePool creates a pool whose classes each hold up to depth buffers.
func NewBytePool(depth int) *BytePool {
	if depth <= 0 {
		depth = DefaultClassDepth
	}
	p := &BytePool{}
	for i := range p.classes {
		p.classes[i] = make(chan []byte, depth)
	}
	return p
}

// classOf returns the class index for n, or -1 when n is out of range.
func classOf(n int) int {
	if n <= 0 {
		return -1
	}
	shift := bits.Len(uint(n - 1))
	if shift < minClassShift {
		shift = minClassShift
	}
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// Acquire returns a slice of exactly n bytes.
// Contents are not cleared.
func (p *BytePool) Acquire(n int) []byte {
	p.acquired.Add(1)
	c := classOf(n)
	if c < 0 {
		p.misses.Add(1)
		return make([]byte, n)
	}
	select {
	case buf := <-p.classes[c]:
		return buf[:n]
	default:
		p.misses.Add(1)
		return make([]byte, n, 1<<(c+minClassShift))
	}
}

// Release returns buf to its class. Buffers whose capacity is not an exact
// class size are dropped.
func (p *BytePool) Release(buf []byte) {
	p.released.Add(1)
	c := classOf(cap(buf))
	if c < 0 || cap(buf) != 1<<(c+minClassShift) {
		return
	}
	select {
	case p.classes[c] <- buf[:cap(buf)]:
	default:
	}
}

// Stats reports allocation counters.
func (p *BytePool) Stats() api.BytePoolStats {
	return api.BytePoolStats{
		Acquired: p.acquired.Load(),
		Released: p.released.Load(),
		Misses:   p.misses.Load(),
	}
}
