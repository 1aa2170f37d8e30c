// File: core/cache/cache.go
// Package cache implements data-cache maintenance strategies for rings shared
// with a peer that does not snoop this side's caches.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cache

import (
	"sync/atomic"
)

// LineSize is the coherency granule assumed by the shared header layout.
const LineSize = 64

// Maintainer makes memory written on one side observable on the other.
//
// Invalidate discards stale local copies of b before it is read.
// Clean pushes local writes to b out to shared memory.
type Maintainer interface {
	Invalidate(b []byte)
	Clean(b []byte)
}

var fenceWord atomic.Uint32

// fence issues a full barrier. A sequentially consistent RMW orders every
// earlier load and store against every later one.
func fence() {
	fenceWord.Add(1)
}

// Fence is the maintainer for peers on a cache-coherent SMP: only ordering
// has to be enforced, the hardware moves the lines.
type Fence struct{}

// Invalidate implements Maintainer.
func (Fence) Invalidate([]byte) { fence() }

// Clean implements Maintainer.
func (Fence) Clean([]byte) { fence() }

// AlignDown rounds n down to a multiple of align (a power of two).
func AlignDown(n, align uintptr) uintptr {
	return n &^ (align - 1)
}

// AlignUp rounds n up to a multiple of align (a power of two).
func AlignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// Func adapts two plain functions, mostly for platform hooks.
type Func struct {
	InvalidateFn func([]byte)
	CleanFn      func([]byte)
}

// Invalidate implements Maintainer.
func (f Func) Invalidate(b []byte) {
	if f.InvalidateFn != nil {
		f.InvalidateFn(b)
	}
	fence()
}

// Clean implements Maintainer.
func (f Func) Clean(b []byte) {
	fence()
	if f.CleanFn != nil {
		f.CleanFn(b)
	}
}
