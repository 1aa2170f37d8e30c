// File: cmd/voicering/inspect.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"io"

	"github.com/momentics/voicering/core/cache"
	"github.com/momentics/voicering/core/ring"
	"github.com/momentics/voicering/core/shm"
)

func runInspect(args []string, stdout io.Writer) error {
	var common commonFlags
	var name, format string
	fs := newFlagSet("inspect-ring", &common)
	fs.StringVarP(&name, "segment", "s", "", "shared segment name (required)")
	fs.StringVarP(&format, "format", "f", "yaml", "output format: yaml, json or cbor")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if name == "" {
		return errRequired("inspect-ring", "segment")
	}
	seg, err := shm.Open(name)
	if err != nil {
		return err
	}
	r, err := ring.AttachAny(seg.Bytes(), &cache.Msync{}, seg.Close)
	if err != nil {
		seg.Close()
		return err
	}
	defer r.Close()
	return writeAs(stdout, format, map[string]any{
		"segment": seg.Path(),
		"size":    seg.Size(),
		"ring":    r.Stats(),
		"space":   r.Space(),
	})
}
