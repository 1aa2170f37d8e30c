// File: voice/resource.go
// Author: momentics <momentics@gmail.com>
//
// Engine model resource loading. A resource blob starts with a 16-byte
// header whose little-endian u32 at offset 12 is the total blob size.
// Blobs may be shipped as an LZ4 frame.

package voice

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/momentics/voicering/api"
)

const (
	ResourceHeaderSize = 16
	resourceSizeOffset = 12

	// MaxResourceSize caps a resource blob at 4 MiB.
	MaxResourceSize = 4 << 20
)

var lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}

// LoadResource reads one resource blob from r, decompressing LZ4 frames.
func LoadResource(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	magic, err := br.Peek(len(lz4FrameMagic))
	compressed := err == nil && bytes.Equal(magic, lz4FrameMagic)
	if compressed {
		src = lz4.NewReader(br)
	}

	hdr := make([]byte, ResourceHeaderSize)
	if _, err := io.ReadFull(src, hdr); err != nil {
		return nil, resourceErr("header", err)
	}
	size := binary.LittleEndian.Uint32(hdr[resourceSizeOffset:])
	if size == 0 || size > MaxResourceSize || size < ResourceHeaderSize {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "invalid resource size").
			WithContext("size", size).
			WithContext("max", MaxResourceSize).
			Wrap(api.ErrInvalidArgument)
	}
	blob := make([]byte, size)
	copy(blob, hdr)
	if _, err := io.ReadFull(src, blob[ResourceHeaderSize:]); err != nil {
		return nil, resourceErr("body", err)
	}
	Logger().Debug("voice resource loaded", zap.Uint32("size", size), zap.Bool("lz4", compressed))
	return blob, nil
}

// LoadResourceFile is LoadResource over a file.
func LoadResourceFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", path, err)
	}
	defer f.Close()
	blob, err := LoadResource(f)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", path, err)
	}
	return blob, nil
}

// CompressResource wraps blob in an LZ4 frame.
func CompressResource(w io.Writer, blob []byte) error {
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(blob); err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}
	return zw.Close()
}

func resourceErr(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return api.NewError(api.ErrCodeCorrupt, "resource truncated").
			WithContext("part", part).
			Wrap(api.ErrShortRead)
	}
	return fmt.Errorf("resource %s: %w", part, err)
}
