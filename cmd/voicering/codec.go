// File: cmd/voicering/codec.go
// Author: momentics <momentics@gmail.com>
//
// encode and decode commands.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/momentics/voicering/core/parcel"
	"github.com/momentics/voicering/voice"
)

// loadVoiceConfig overlays a YAML file on the defaults. An empty path
// returns the defaults.
func loadVoiceConfig(path string) (*voice.Config, error) {
	cfg := voice.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("voice config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func runEncode(args []string, stdout io.Writer) error {
	var common commonFlags
	var in, out string
	fs := newFlagSet("encode", &common)
	fs.StringVar(&in, "config", "", "YAML voice config (defaults when empty)")
	fs.StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}

	cfg, err := loadVoiceConfig(in)
	if err != nil {
		return err
	}
	raw, err := cfg.EncodeBytes()
	if err != nil {
		return err
	}
	if out == "" {
		_, err = stdout.Write(raw)
		return err
	}
	return os.WriteFile(out, raw, 0o644)
}

func runDecode(args []string, stdout io.Writer) error {
	var common commonFlags
	var in, format string
	fs := newFlagSet("decode", &common)
	fs.StringVarP(&in, "in", "i", "", "parcel file to decode (required)")
	fs.StringVarP(&format, "format", "f", "yaml", "output format: yaml, json or cbor")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if in == "" {
		return errRequired("decode", "in")
	}
	raw, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	p := parcel.FromBytes(raw, nil)
	defer p.Destroy()
	cfg, err := voice.DecodeConfig(p)
	if err != nil {
		return err
	}
	if p.Readable() > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d trailing bytes ignored\n", p.Readable())
	}
	return writeAs(stdout, format, cfg)
}

func errRequired(cmd, flag string) error {
	return fmt.Errorf("%s: --%s is required", cmd, flag)
}

// writeAs renders v in one of the supported output formats.
func writeAs(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "cbor":
		raw, err := cbor.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
