// File: core/ring/policy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Coherency policies. The policy is a type parameter of Ring, so the local
// variant compiles down to plain atomics with no per-call dispatch.

package ring

import (
	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/core/cache"
)

// Policy decides how header and payload accesses become visible to the peer.
// Counter publication itself is always an atomic store, which is the memory
// barrier both policies rely on.
type Policy interface {
	Mode() api.RingMode
	invalidate(b []byte)
	clean(b []byte)
}

// Local serves producers and consumers in one address space.
type Local struct{}

// Mode implements Policy.
func (Local) Mode() api.RingMode { return api.RingLocal }

func (Local) invalidate([]byte) {}
func (Local) clean([]byte)      {}

// Coherent serves a peer that does not share this side's data cache.
type Coherent struct {
	m cache.Maintainer
}

// NewCoherentPolicy wraps m; nil selects cache.Fence.
func NewCoherentPolicy(m cache.Maintainer) Coherent {
	if m == nil {
		m = cache.Fence{}
	}
	return Coherent{m: m}
}

// Mode implements Policy.
func (Coherent) Mode() api.RingMode { return api.RingCoherent }

func (c Coherent) invalidate(b []byte) {
	if c.m == nil {
		cache.Fence{}.Invalidate(b)
		return
	}
	c.m.Invalidate(b)
}

func (c Coherent) clean(b []byte) {
	if c.m == nil {
		cache.Fence{}.Clean(b)
		return
	}
	c.m.Clean(b)
}
