// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/voicering/api"
)

var _ api.BytePool = (*BytePool)(nil)

// BytePool allocates on every Acquire and counts outstanding buffers, so
// tests can assert every payload was handed back.
type BytePool struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (f *BytePool) Acquire(n int) []byte {
	f.mu.Lock()
	f.acquired++
	f.mu.Unlock()
	return make([]byte, n)
}

func (f *BytePool) Release(_ []byte) {
	f.mu.Lock()
	f.released++
	f.mu.Unlock()
}

// Outstanding returns acquired minus released.
func (f *BytePool) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired - f.released
}
