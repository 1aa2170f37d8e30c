// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/voicering/core/cache"
)

var _ cache.Maintainer = (*Maintainer)(nil)

// Op is one recorded cache maintenance call.
type Op struct {
	Clean bool
	Len   int
}

// Maintainer records cache maintenance calls and fences like cache.Fence.
type Maintainer struct {
	mu  sync.Mutex
	ops []Op
}

func (m *Maintainer) Invalidate(b []byte) {
	cache.Fence{}.Invalidate(b)
	m.record(Op{Len: len(b)})
}

func (m *Maintainer) Clean(b []byte) {
	cache.Fence{}.Clean(b)
	m.record(Op{Clean: true, Len: len(b)})
}

func (m *Maintainer) record(op Op) {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()
}

// Ops returns the calls so far.
func (m *Maintainer) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.ops...)
}

// Invalidations counts Invalidate calls of exactly n bytes.
func (m *Maintainer) Invalidations(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := 0
	for _, op := range m.ops {
		if !op.Clean && op.Len == n {
			c++
		}
	}
	return c
}
