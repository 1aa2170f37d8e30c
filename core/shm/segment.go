// File: core/shm/segment.go
// Package shm maps named, file-backed shared memory segments that host ring
// regions visible to a second process.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const namePrefix = "voicering_"

// Segment is a mapped shared memory file. The creator owns the file and
// unlinks it on Close; openers only unmap.
type Segment struct {
	name  string
	path  string
	file  *os.File
	mem   []byte
	owner bool
}

// NewName returns a fresh segment name.
func NewName() string {
	return "voicering-" + uuid.NewString()
}

// Path returns the file backing a segment name: /dev/shm when present,
// the temp dir otherwise.
func Path(name string) string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", namePrefix+name)
	}
	return filepath.Join(os.TempDir(), namePrefix+name)
}

// Name returns the segment name.
func (s *Segment) Name() string { return s.name }

// Path returns the backing file path.
func (s *Segment) Path() string { return s.path }

// Bytes returns the mapping. It is page aligned.
func (s *Segment) Bytes() []byte { return s.mem }

// Size returns the mapping length.
func (s *Segment) Size() int { return len(s.mem) }

// Owner reports whether this process created the segment.
func (s *Segment) Owner() bool { return s.owner }
