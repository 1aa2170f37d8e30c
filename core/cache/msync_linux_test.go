//go:build linux

package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMsyncOnSharedMapping(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "region"))
	require.NoError(t, err)
	defer f.Close()
	size := 2 * os.Getpagesize()
	require.NoError(t, f.Truncate(int64(size)))

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	require.NoError(t, err)
	defer unix.Munmap(mem)

	var m Msync
	copy(mem[100:], "payload")
	m.Clean(mem[100:107])
	m.Invalidate(mem[os.Getpagesize()-4 : os.Getpagesize()+4])
	m.Clean(nil)
	require.Zero(t, m.Errors())

	got := make([]byte, 7)
	_, err = f.ReadAt(got, 100)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}
