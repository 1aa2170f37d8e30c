// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

// RingMode enumerates the coherency policy recorded in a ring header.
type RingMode uint32

const (
	RingLocal RingMode = iota
	RingCoherent
)

func (m RingMode) String() string {
	switch m {
	case RingLocal:
		return "local"
	case RingCoherent:
		return "coherent"
	default:
		return "unknown"
	}
}

// RingStats is a snapshot of a ring header for diagnostics.
type RingStats struct {
	Mode     RingMode `json:"mode" yaml:"mode"`
	Capacity uint32   `json:"capacity" yaml:"capacity"`
	Head     uint32   `json:"head" yaml:"head"`
	Tail     uint32   `json:"tail" yaml:"tail"`
	Used     uint32   `json:"used" yaml:"used"` // Head - Tail, modulo 2^32
}
