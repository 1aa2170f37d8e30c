//go:build linux
// +build linux

// File: core/cache/msync_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux maintenance for file-backed MAP_SHARED regions.

package cache

import (
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

var pageSize = uintptr(os.Getpagesize())

// Msync flushes and invalidates page ranges of a file-backed shared mapping.
// It is only valid for slices that lie inside a page-aligned mmap region.
type Msync struct {
	errs atomic.Uint64
}

// Invalidate implements Maintainer.
func (m *Msync) Invalidate(b []byte) {
	fence()
	m.sync(b, unix.MS_INVALIDATE)
}

// Clean implements Maintainer.
func (m *Msync) Clean(b []byte) {
	fence()
	m.sync(b, unix.MS_SYNC)
}

// Errors returns the number of msync calls the kernel rejected.
func (m *Msync) Errors() uint64 { return m.errs.Load() }

func (m *Msync) sync(b []byte, flags int) {
	if len(b) == 0 {
		return
	}
	p := unsafe.Pointer(&b[0])
	start := uintptr(p)
	lead := start - AlignDown(start, pageSize)
	end := AlignUp(start+uintptr(len(b)), pageSize)
	span := unsafe.Slice((*byte)(unsafe.Add(p, -int(lead))), end-start+lead)
	if err := unix.Msync(span, flags); err != nil {
		m.errs.Add(1)
	}
}
