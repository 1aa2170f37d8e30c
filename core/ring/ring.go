// File: core/ring/ring.go
// Package ring implements a single-producer/single-consumer circular byte
// channel over a shared header, usable inside one address space or across
// two cores that only meet in shared memory.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Head and tail are free-running uint32 counters; occupancy is head-tail in
// modular arithmetic and never goes negative. Writes and reads move a whole
// message or nothing, so codec payloads keep their boundaries. Neither side
// blocks: a 0 return is the backpressure signal.

package ring

import (
	"unsafe"

	"github.com/momentics/voicering/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.ByteRing = (*Ring[Local])(nil)
	_ api.ByteRing = (*Ring[Coherent])(nil)
)

// Ring is a handle on one side of a channel. Exactly one goroutine may write
// and one may read at a time; nothing here arbitrates between writers.
type Ring[P Policy] struct {
	hdr    *Header
	buf    []byte
	size   uint32 // geometry cached at bind time; it never changes
	mask   uint32
	policy P
	store  *storage
}

// Create allocates an owned region and formats a ring of capacity bytes.
func Create[P Policy](capacity uint32, policy P) (*Ring[P], error) {
	if !isPowerOfTwo(capacity) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "ring capacity").
			Wrap(api.ErrNotPowerOfTwo).
			WithContext("capacity", capacity)
	}
	region := alignedAlloc(RegionSize(capacity))
	r, err := place(region, capacity, policy)
	if err != nil {
		return nil, err
	}
	r.store = ownedStorage(region)
	return r, nil
}

// NewLocal creates an owned ring for one address space.
func NewLocal(capacity uint32) (*Ring[Local], error) {
	return Create(capacity, Local{})
}

// NewCoherent creates an owned ring whose accesses go through a cache
// maintainer. See NewCoherentPolicy.
func NewCoherent(capacity uint32, policy Coherent) (*Ring[Coherent], error) {
	return Create(capacity, policy)
}

// Place formats a ring header at the start of externally owned region,
// typically shared memory the peer will Attach to. The region is never
// freed by the ring; release, if set, runs once on Close.
func Place[P Policy](region []byte, capacity uint32, policy P, release func() error) (*Ring[P], error) {
	if !isPowerOfTwo(capacity) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "ring capacity").
			Wrap(api.ErrNotPowerOfTwo).
			WithContext("capacity", capacity)
	}
	if len(region) < RegionSize(capacity) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "region too small for ring").
			Wrap(api.ErrInvalidArgument).
			WithContext("region", len(region)).
			WithContext("need", RegionSize(capacity))
	}
	r, err := place(region, capacity, policy)
	if err != nil {
		return nil, err
	}
	r.store = borrowedStorage(region, release)
	return r, nil
}

func place[P Policy](region []byte, capacity uint32, policy P) (*Ring[P], error) {
	hdr, err := headerAt(region)
	if err != nil {
		return nil, err
	}
	hdr.init(capacity, policy.Mode())
	policy.clean(hdr.bytes())
	return bind(hdr, region, policy), nil
}

// Attach binds to a header a peer already placed in region. Geometry comes
// from the header and is validated, never rewritten.
func Attach[P Policy](region []byte, policy P, release func() error) (*Ring[P], error) {
	hdr, err := headerAt(region)
	if err != nil {
		return nil, err
	}
	policy.invalidate(hdr.bytes())
	if err := validate(hdr, len(region)); err != nil {
		return nil, err
	}
	if mode := hdr.Mode(); mode != policy.Mode() {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "attach ring").
			Wrap(api.ErrModeMismatch).
			WithContext("header", mode.String()).
			WithContext("policy", policy.Mode().String())
	}
	r := bind(hdr, region, policy)
	r.store = borrowedStorage(region, release)
	return r, nil
}

// AttachAny attaches with the policy named by the header's mode tag.
// maintainer is used for coherent headers and may be nil.
func AttachAny(region []byte, maintainer Maintainer, release func() error) (api.ByteRing, error) {
	hdr, err := headerAt(region)
	if err != nil {
		return nil, err
	}
	coherent := NewCoherentPolicy(maintainer)
	coherent.invalidate(hdr.bytes())
	switch mode := hdr.Mode(); mode {
	case api.RingLocal:
		return Attach(region, Local{}, release)
	case api.RingCoherent:
		return Attach(region, coherent, release)
	default:
		return nil, api.NewError(api.ErrCodeCorrupt, "unknown ring mode").
			Wrap(api.ErrModeMismatch).
			WithContext("mode", uint32(mode))
	}
}

func validate(hdr *Header, regionLen int) error {
	capacity, mask, off := hdr.Capacity(), hdr.Mask(), hdr.PayloadOffset()
	if !isPowerOfTwo(capacity) || mask != capacity-1 {
		return api.NewError(api.ErrCodeCorrupt, "ring header geometry").
			Wrap(api.ErrGeometry).
			WithContext("capacity", capacity).
			WithContext("mask", mask)
	}
	if off < HeaderSize || uint64(off)+uint64(capacity) > uint64(regionLen) {
		return api.NewError(api.ErrCodeCorrupt, "ring payload outside region").
			Wrap(api.ErrGeometry).
			WithContext("offset", off).
			WithContext("capacity", capacity).
			WithContext("region", regionLen)
	}
	return nil
}

func bind[P Policy](hdr *Header, region []byte, policy P) *Ring[P] {
	capacity, off := hdr.Capacity(), hdr.PayloadOffset()
	return &Ring[P]{
		hdr:    hdr,
		buf:    region[off : off+capacity : off+capacity],
		size:   capacity,
		mask:   capacity - 1,
		policy: policy,
	}
}

// NewRegion returns a zeroed region for Place, aligned for the header.
func NewRegion(capacity uint32) []byte {
	return alignedAlloc(RegionSize(capacity))
}

// alignedAlloc returns n bytes backed by uint64 words so the header's
// atomics are aligned.
func alignedAlloc(n int) []byte {
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// Mode returns the policy's mode tag.
func (r *Ring[P]) Mode() api.RingMode { return r.policy.Mode() }

// Capacity returns the fixed channel size.
func (r *Ring[P]) Capacity() uint32 {
	r.policy.invalidate(r.hdr.bytes())
	return r.hdr.Capacity()
}

// Space returns capacity - (head - tail).
func (r *Ring[P]) Space() uint32 {
	r.policy.invalidate(r.hdr.bytes())
	return r.size - (r.hdr.Head() - r.hdr.Tail())
}

// Available returns head - tail.
func (r *Ring[P]) Available() uint32 {
	r.policy.invalidate(r.hdr.bytes())
	return r.hdr.Head() - r.hdr.Tail()
}

// Reset zeroes both counters. Neither side may be active.
func (r *Ring[P]) Reset() {
	r.hdr.setHead(0)
	r.hdr.setTail(0)
	r.policy.clean(r.hdr.bytes())
}

// Write copies all of p or nothing and returns the bytes written.
// The payload is cleaned before head moves, and head's line after.
func (r *Ring[P]) Write(p []byte) uint32 {
	if len(p) == 0 || len(p) > int(r.size) {
		return 0
	}
	r.policy.invalidate(r.hdr.bytes())
	head := r.hdr.Head()
	tail := r.hdr.Tail()
	n := uint32(len(p))
	if n > r.size-(head-tail) {
		return 0
	}

	off := head & r.mask
	if first := r.size - off; n <= first {
		dst := r.buf[off : off+n]
		copy(dst, p)
		r.policy.clean(dst)
	} else {
		dst := r.buf[off:]
		copy(dst, p[:first])
		r.policy.clean(dst)
		dst = r.buf[:n-first]
		copy(dst, p[first:])
		r.policy.clean(dst)
	}

	r.hdr.setHead(head + n)
	r.policy.clean(r.hdr.headLine())
	return n
}

// Read fills all of p or nothing and returns the bytes read.
// Payload lines are invalidated before they are copied out.
func (r *Ring[P]) Read(p []byte) uint32 {
	if len(p) == 0 || len(p) > int(r.size) {
		return 0
	}
	r.policy.invalidate(r.hdr.bytes())
	head := r.hdr.Head()
	tail := r.hdr.Tail()
	n := uint32(len(p))
	if n > head-tail {
		return 0
	}

	off := tail & r.mask
	if first := r.size - off; n <= first {
		src := r.buf[off : off+n]
		r.policy.invalidate(src)
		copy(p, src)
	} else {
		src := r.buf[off:]
		r.policy.invalidate(src)
		copy(p, src)
		src = r.buf[:n-first]
		r.policy.invalidate(src)
		copy(p[first:], src)
	}

	r.hdr.setTail(tail + n)
	r.policy.clean(r.hdr.tailLine())
	return n
}

// Stats snapshots the header.
func (r *Ring[P]) Stats() api.RingStats {
	r.policy.invalidate(r.hdr.bytes())
	head, tail := r.hdr.Head(), r.hdr.Tail()
	return api.RingStats{
		Mode:     r.hdr.Mode(),
		Capacity: r.hdr.Capacity(),
		Head:     head,
		Tail:     tail,
		Used:     head - tail,
	}
}

// Close releases this handle's storage: an owned region is dropped, a
// borrowed one is left alone and its release hook runs once.
func (r *Ring[P]) Close() error {
	return r.store.close()
}
