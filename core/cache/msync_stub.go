//go:build !linux
// +build !linux

// File: core/cache/msync_stub.go
// Author: momentics <momentics@gmail.com>
//
// Fallback for platforms without msync wiring: ordering only.

package cache

// Msync degrades to a fence outside Linux.
type Msync struct{}

// Invalidate implements Maintainer.
func (m *Msync) Invalidate([]byte) { fence() }

// Clean implements Maintainer.
func (m *Msync) Clean([]byte) { fence() }

// Errors always reports zero.
func (m *Msync) Errors() uint64 { return 0 }
