// File: cmd/voicering/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// voicering is the operator tool for the voice ring transport:
//
//	encode        YAML voice config -> parcel bytes
//	decode        parcel bytes -> YAML, JSON or CBOR
//	demo          run the agent against a synthetic mic producer over shared memory
//	inspect-ring  print the header of a live shared ring

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/momentics/voicering/control"
	"github.com/momentics/voicering/voice"
)

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commands = []command{
	{"encode", "encode a YAML voice config into parcel bytes", runEncode},
	{"decode", "decode parcel bytes into a structured dump", runDecode},
	{"demo", "run the voice agent on a shared-memory mic ring", runDemo},
	{"inspect-ring", "print the header of a shared ring segment", runInspect},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(os.Stderr)
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:], stdout)
		}
	}
	printUsage(os.Stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: voicering <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "\nRun 'voicering <command> --help' for command flags.")
}

// commonFlags are accepted by every command.
type commonFlags struct {
	logLevel string
	logJSON  bool
}

func newFlagSet(name string, common *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&common.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&common.logJSON, "log-json", false, "emit JSON log records instead of console text")
	return fs
}

// parse handles --help as a successful no-op.
func parse(fs *pflag.FlagSet, args []string) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("%s: unexpected argument %q", fs.Name(), fs.Arg(0))
	}
	return false, nil
}

// newLogger builds the process logger and installs it for the voice package.
// The returned level can be changed while the logger is in use.
func newLogger(common *commonFlags) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(common.logLevel)
	if err != nil {
		return nil, level, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	if common.logJSON {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, level, err
	}
	voice.SetLogger(logger.Named("voice"))
	return logger, level, nil
}

// logLevelHook returns a reload hook that applies keyLogLevel from store to
// level. An absent or unparsable value leaves the level alone.
func logLevelHook(store *control.ConfigStore, level zap.AtomicLevel, logger *zap.Logger) func() {
	return func() {
		text := store.String(keyLogLevel, "")
		if text == "" {
			return
		}
		if err := level.UnmarshalText([]byte(text)); err != nil {
			logger.Warn("ignoring log level", zap.String("value", text), zap.Error(err))
			return
		}
		logger.Info("log level changed", zap.Stringer("level", level.Level()))
	}
}
