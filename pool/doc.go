// Package pool
// Author: momentics <momentics@gmail.com>
//
// Buffer reuse for the voice agent: a size-classed byte pool for audio frames
// and notification payloads, plus a generic sync.Pool wrapper for parcels.
package pool
