//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import "github.com/momentics/voicering/api"

func setAffinityPlatform(cpuID int) error {
	return api.ErrNotSupported
}

// Current is unavailable on this platform.
func Current() ([]int, error) {
	return nil, api.ErrNotSupported
}
