//go:build !linux
// +build !linux

// File: core/shm/segment_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without the mmap wiring.

package shm

import "github.com/momentics/voicering/api"

// Create is unavailable on this platform.
func Create(name string, size int) (*Segment, error) {
	return nil, api.ErrNotSupported
}

// Open is unavailable on this platform.
func Open(name string) (*Segment, error) {
	return nil, api.ErrNotSupported
}

// Close is a no-op.
func (s *Segment) Close() error { return nil }
