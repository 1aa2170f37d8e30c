// File: pool/default.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

var (
	defaultOnce sync.Once
	defaultPool *BytePool
)

// Default returns the process-wide byte pool so agents and tools share
// frame buffers instead of fragmenting allocations.
func Default() *BytePool {
	defaultOnce.Do(func() {
		defaultPool = NewBytePool(DefaultClassDepth)
	})
	return defaultPool
}
