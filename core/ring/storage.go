// File: core/ring/storage.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

import (
	"sync"

	"github.com/momentics/voicering/core/cache"
)

// Maintainer is re-exported so callers of AttachAny need not import cache.
type Maintainer = cache.Maintainer

type storageKind uint8

const (
	owned storageKind = iota
	borrowed
)

// storage records who is responsible for a ring region. Owned regions were
// allocated by Create; borrowed ones belong to a segment or a peer and only
// get their release hook called.
type storage struct {
	kind    storageKind
	region  []byte
	release func() error
	once    sync.Once
}

func ownedStorage(region []byte) *storage {
	return &storage{kind: owned, region: region}
}

func borrowedStorage(region []byte, release func() error) *storage {
	return &storage{kind: borrowed, region: region, release: release}
}

func (s *storage) close() error {
	var err error
	s.once.Do(func() {
		if s.kind == borrowed && s.release != nil {
			err = s.release()
		}
		s.region = nil
		s.release = nil
	})
	return err
}
