// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/voicering/api"
)

// SetAffinity pins the current OS thread to a given logical CPU.
// The caller must hold runtime.LockOSThread for the pin to stick.
// On unsupported platforms returns api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return fmt.Errorf("affinity: cpu %d out of range [0,%d): %w", cpuID, runtime.NumCPU(), api.ErrInvalidArgument)
	}
	return setAffinityPlatform(cpuID)
}

// Pin locks the calling goroutine to its OS thread and pins that thread.
// The returned func undoes the lock; it is safe to call when pinning failed.
func Pin(cpuID int) (unpin func(), err error) {
	runtime.LockOSThread()
	if err := SetAffinity(cpuID); err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	return runtime.UnlockOSThread, nil
}
