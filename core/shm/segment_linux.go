//go:build linux
// +build linux

// File: core/shm/segment_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux mapping via MAP_SHARED on a /dev/shm file.

package shm

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/voicering/api"
)

// Create makes a new segment of size bytes. It fails if the name exists.
func Create(name string, size int) (*Segment, error) {
	if name == "" || size <= 0 {
		return nil, fmt.Errorf("shm create %q size %d: %w", name, size, api.ErrInvalidArgument)
	}
	path := Path(name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("shm create %s: %w", path, api.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("shm create %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}
	if err := file.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("shm resize %s: %w", path, err)
	}
	mem, err := mmapFile(file, size)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &Segment{name: name, path: path, file: file, mem: mem, owner: true}, nil
}

// Open maps an existing segment at its full size.
func Open(name string) (*Segment, error) {
	path := Path(name)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("shm open %s: %w", path, api.ErrNotFound)
		}
		return nil, fmt.Errorf("shm open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, fmt.Errorf("shm open %s: empty segment: %w", path, api.ErrInvalidArgument)
	}
	mem, err := mmapFile(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, err
	}
	return &Segment{name: name, path: path, file: file, mem: mem}, nil
}

// Close unmaps the segment; the owner also removes the file.
func (s *Segment) Close() error {
	var errs []error
	if s.mem != nil {
		if err := unix.Munmap(s.mem); err != nil {
			errs = append(errs, fmt.Errorf("munmap: %w", err))
		}
		s.mem = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err)
		}
		s.file = nil
		if s.owner {
			if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func mmapFile(file *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", file.Name(), err)
	}
	return mem, nil
}
