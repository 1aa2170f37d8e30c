// Package api
// Author: momentics@gmail.com
//
// Byte ring contract shared by the local and cache-coherent transports.

package api

// ByteRing is a single-producer/single-consumer circular byte channel.
//
// Write and Read are all-or-nothing: they move exactly len(p) bytes or none,
// returning the count moved. Zero-length calls return 0 as well, so callers
// tell "nothing requested" from "not enough room" by their own length.
type ByteRing interface {
	// Capacity returns the fixed channel size in bytes.
	Capacity() uint32
	// Space returns bytes free for the producer.
	Space() uint32
	// Available returns bytes buffered for the consumer.
	Available() uint32
	// Reset zeroes both counters. No reader or writer may be active.
	Reset()
	// Write copies p into the ring or returns 0.
	Write(p []byte) uint32
	// Read fills p from the ring or returns 0.
	Read(p []byte) uint32
	// Stats snapshots the shared header.
	Stats() RingStats
	// Close releases storage owned by this handle.
	Close() error
}
