// File: core/parcel/parcel.go
// Package parcel implements a growable, cursor-based binary buffer for
// alignment-sensitive records carried over ring transports.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scalars are stored at their natural alignment inside the stream, byte
// buffers and C strings are appended raw. Both sides share the field order
// out of band; nothing in the stream describes itself.

package parcel

import (
	"github.com/momentics/voicering/api"
)

const (
	// minCapacity is the first allocation step of an owned parcel.
	minCapacity = 64

	// DefaultMaxCapacity is the growth ceiling of New without options.
	DefaultMaxCapacity = 2 * 1024
)

// Ownership tells whether the parcel allocated its storage or views
// memory handed over by someone else.
type Ownership uint8

const (
	Owned Ownership = iota
	Borrowed
)

func (o Ownership) String() string {
	if o == Borrowed {
		return "borrowed"
	}
	return "owned"
}

// ReleaseFunc is the one-shot handoff notification for borrowed bytes.
// It receives the slice originally passed to BindExternal.
type ReleaseFunc func(data []byte)

// Parcel is not safe for concurrent use.
type Parcel struct {
	data        []byte // len(data) is the capacity
	readCursor  int
	writeCursor int
	dataSize    int
	maxCapacity int

	own     Ownership
	release ReleaseFunc
	err     error
}

// Option configures a Parcel at construction.
type Option func(*Parcel)

// WithMaxCapacity sets the growth ceiling; 0 means unbounded.
func WithMaxCapacity(n int) Option {
	return func(p *Parcel) {
		if n >= 0 {
			p.maxCapacity = n
		}
	}
}

// New returns an empty owning parcel.
func New(opts ...Option) *Parcel {
	p := &Parcel{maxCapacity: DefaultMaxCapacity}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromBytes returns a parcel reading buf in place. See BindExternal.
func FromBytes(buf []byte, release ReleaseFunc, opts ...Option) *Parcel {
	p := New(opts...)
	p.BindExternal(buf, release)
	return p
}

// BindExternal switches the parcel to borrowed mode over buf, dropping any
// owned storage. The read cursor restarts at 0 and writes append after
// len(buf). buf is never written: the first successful write copies it into
// owned storage and fires release. If no write happens, Destroy fires it.
// A hook still pending from an earlier binding fires before rebinding.
func (p *Parcel) BindExternal(buf []byte, release ReleaseFunc) {
	p.fireRelease()
	p.data = buf[:len(buf):len(buf)]
	p.dataSize = len(buf)
	p.readCursor = 0
	p.writeCursor = len(buf)
	p.own = Borrowed
	p.release = release
	p.err = nil
}

// Destroy fires a pending release hook, or drops owned storage.
// Calling it again is a no-op.
func (p *Parcel) Destroy() {
	p.fireRelease()
	p.data = nil
	p.dataSize = 0
	p.readCursor = 0
	p.writeCursor = 0
	p.own = Owned
	p.err = nil
}

// Reset empties the parcel for reuse. Owned storage is kept so later writes
// up to Cap do not allocate; borrowed storage is released and dropped.
func (p *Parcel) Reset() {
	if p.own == Borrowed {
		p.Destroy()
		return
	}
	p.dataSize = 0
	p.readCursor = 0
	p.writeCursor = 0
	p.err = nil
}

func (p *Parcel) fireRelease() {
	if p.release == nil {
		return
	}
	fn := p.release
	p.release = nil
	fn(p.data)
}

// Bytes returns the encoded stream, aliasing parcel storage.
func (p *Parcel) Bytes() []byte { return p.data[:p.dataSize] }

// Len returns the encoded stream size.
func (p *Parcel) Len() int { return p.dataSize }

// Cap returns the current storage capacity.
func (p *Parcel) Cap() int { return len(p.data) }

// MaxCapacity returns the growth ceiling; 0 means unbounded.
func (p *Parcel) MaxCapacity() int { return p.maxCapacity }

// SetMaxCapacity changes the growth ceiling for subsequent writes.
func (p *Parcel) SetMaxCapacity(n int) {
	if n >= 0 {
		p.maxCapacity = n
	}
}

// Ownership reports the storage mode.
func (p *Parcel) Ownership() Ownership { return p.own }

// ReadCursor returns the next read offset.
func (p *Parcel) ReadCursor() int { return p.readCursor }

// WriteCursor returns the next write offset.
func (p *Parcel) WriteCursor() int { return p.writeCursor }

// Readable returns bytes between the read cursor and the end of data.
func (p *Parcel) Readable() int {
	if p.dataSize > p.readCursor {
		return p.dataSize - p.readCursor
	}
	return 0
}

// Writable returns bytes between the write cursor and the end of storage.
func (p *Parcel) Writable() int {
	if len(p.data) > p.writeCursor {
		return len(p.data) - p.writeCursor
	}
	return 0
}

// Rewind moves the read cursor back to the start and clears Err.
func (p *Parcel) Rewind() {
	p.readCursor = 0
	p.err = nil
}

// Err returns api.ErrShortRead if a named Read method hit the end of data
// since the last Rewind or BindExternal.
func (p *Parcel) Err() error { return p.err }

// capacityFor doubles from minCapacity until minSize fits, then clamps to
// the ceiling. The clamped value may be smaller than minSize.
func (p *Parcel) capacityFor(minSize int) int {
	c := minCapacity
	for c < minSize {
		c *= 2
	}
	if p.maxCapacity > 0 && c > p.maxCapacity {
		c = p.maxCapacity
	}
	return c
}

// reserve makes room for n more bytes at the write cursor. On failure the
// parcel is untouched.
func (p *Parcel) reserve(n int) bool {
	if p.own == Owned && n <= p.Writable() {
		return true
	}
	need := p.writeCursor + n
	c := p.capacityFor(need)
	if c < need {
		return false
	}
	if p.own == Owned && c <= len(p.data) {
		return false
	}
	grown := make([]byte, c)
	copy(grown, p.data[:p.dataSize])
	p.data = grown
	return true
}

// WriteBuffer appends data unaligned.
func (p *Parcel) WriteBuffer(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	borrowed := p.borrowedView()
	if !p.reserve(len(data)) {
		return false
	}
	copy(p.data[p.writeCursor:], data)
	p.writeCursor += len(data)
	p.dataSize += len(data)
	p.handoff(borrowed)
	return true
}

// ReadBuffer returns the next n bytes as a view into parcel storage. The
// view is valid until the parcel grows or is destroyed.
func (p *Parcel) ReadBuffer(n int) ([]byte, bool) {
	if n < 0 || p.Readable() < n {
		return nil, false
	}
	b := p.data[p.readCursor : p.readCursor+n : p.readCursor+n]
	p.readCursor += n
	return b, true
}

// borrowedView captures the external slice before a write may replace it.
func (p *Parcel) borrowedView() []byte {
	if p.own == Borrowed {
		return p.data
	}
	return nil
}

// handoff completes a write on a borrowed parcel: storage is owned now and
// the external owner learns it may reclaim its bytes.
func (p *Parcel) handoff(borrowed []byte) {
	if p.own != Borrowed {
		return
	}
	fn := p.release
	p.own = Owned
	p.release = nil
	if fn != nil {
		fn(borrowed)
	}
}

// WriteCString appends s and a zero terminator. Strings containing NUL
// cannot be read back and are refused.
func (p *Parcel) WriteCString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return false
		}
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return p.WriteBuffer(buf)
}

// ReadCBytes returns the next zero-terminated run without its terminator,
// as a view into parcel storage. Without a terminator inside the readable
// span the cursor stays put.
func (p *Parcel) ReadCBytes() ([]byte, bool) {
	span := p.data[p.readCursor:p.dataSize]
	for i, c := range span {
		if c == 0 {
			p.readCursor += i + 1
			return span[:i:i], true
		}
	}
	return nil, false
}

// ReadCString is ReadCBytes returning a copy.
func (p *Parcel) ReadCString() (string, bool) {
	b, ok := p.ReadCBytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

func (p *Parcel) shortRead() {
	if p.err == nil {
		p.err = api.ErrShortRead
	}
}
