// tjson - typed JSON value CLI tool
//
// Usage:
//
//	tjson decode [--format tree|json|yaml] [file]   Print envelopes as a typed tree or native data
//	tjson encode [file]                             Wrap plain JSON in envelopes
//	tjson fmt [--indent] [file]                     Canonicalize envelope JSON
//	tjson to --enc cbor|msgpack|json [file]         Transcode envelopes to a binary codec
//	tjson from --enc cbor|msgpack|json [file]       Transcode one binary value back to JSON
//	tjson frames write [--enc E] [--crc] [--sum] [--compress zstd|lz4] [file]
//	tjson frames read [file]                        Decode frames and print their values
//	tjson fingerprint [file]                        Print the BLAKE3 fingerprint of each envelope
//	tjson version                                   Print version info
//
// Global flags: --config FILE (or $TJSON_CONFIG), --max-depth N, --debug.
//
// JSON input may contain // and /* */ comments and trailing commas.
// If no file is given, or the file is "-", reads from stdin.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env carries the process streams and the resolved settings of one
// invocation.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    Config
	logger *slog.Logger
}

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	maxDepth   int
	debug      bool
}

func (g *globalFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "YAML config file (default: $"+configEnv+")")
	fs.IntVar(&g.maxDepth, "max-depth", 0, "maximum envelope nesting (overrides config)")
	fs.BoolVar(&g.debug, "debug", false, "log debug records to stderr")
}

// command is one subcommand. flags registers its own flags on fs; run
// receives the positional arguments left after parsing.
type command struct {
	flags func(fs *pflag.FlagSet, cfg *Config)
	run   func(e *env, fs *pflag.FlagSet, args []string) error
}

func commands() map[string]command {
	return map[string]command{
		"decode":      {flags: decodeFlags, run: runDecode},
		"encode":      {run: runEncode},
		"fmt":         {flags: fmtFlags, run: runFmt},
		"to":          {flags: encFlags, run: runTo},
		"from":        {flags: encFlags, run: runFrom},
		"fingerprint": {run: runFingerprint},
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}

	name, args := args[0], args[1:]
	switch name {
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "tjson %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	case "frames":
		if len(args) == 0 {
			return errors.New("frames: missing subcommand (write, read)")
		}
		sub := args[0]
		cmd, ok := frameCommands()[sub]
		if !ok {
			return fmt.Errorf("frames: unknown subcommand: %s", sub)
		}
		return execute("frames "+sub, cmd, args[1:], stdin, stdout, stderr)
	}

	cmd, ok := commands()[name]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", name)
	}
	return execute(name, cmd, args, stdin, stdout, stderr)
}

// execute parses flags, resolves the config and runs cmd.
func execute(name string, cmd command, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// Flags default to the config, so the file must be known before
	// the subcommand's flags are registered.
	cfgPath := os.Getenv(configEnv)
	if path, ok := peekConfigFlag(args); ok {
		cfgPath = path
	}
	cfg := DefaultConfig()
	if cfgPath != "" {
		var err error
		if cfg, err = LoadConfig(cfgPath); err != nil {
			return err
		}
	}

	var global globalFlags
	fs := pflag.NewFlagSet("tjson "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	global.addFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs, &cfg)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if global.maxDepth != 0 {
		cfg.MaxDepth = global.maxDepth
	}
	if global.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	e := &env{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	e.logger.Debug("running command", "command", name, "config", cfgPath, "max_depth", cfg.MaxDepth)
	return cmd.run(e, fs, fs.Args())
}

// peekConfigFlag finds --config in args before full flag parsing.
func peekConfigFlag(args []string) (string, bool) {
	for i, arg := range args {
		switch {
		case arg == "--":
			return "", false
		case arg == "--config" && i+1 < len(args):
			return args[i+1], true
		case len(arg) > len("--config=") && arg[:len("--config=")] == "--config=":
			return arg[len("--config="):], true
		}
	}
	return "", false
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `tjson - typed JSON value tool

Usage:
  tjson decode [--format tree|json|yaml] [file]   Print envelopes as a typed tree or native data
  tjson encode [file]                             Wrap plain JSON in envelopes
  tjson fmt [--indent] [file]                     Canonicalize envelope JSON
  tjson to --enc cbor|msgpack|json [file]         Transcode envelopes to a binary codec
  tjson from --enc cbor|msgpack|json [file]       Transcode one binary value back to JSON
  tjson frames write [--enc E] [--crc] [--sum] [--compress zstd|lz4] [file]
  tjson frames read [file]                        Decode frames and print their values
  tjson fingerprint [file]                        Print the BLAKE3 fingerprint of each envelope
  tjson version                                   Print version info

Global flags:
  --config FILE    YAML config file (default: $TJSON_CONFIG)
  --max-depth N    maximum envelope nesting
  --debug          log debug records to stderr

JSON input may contain comments and trailing commas.
If no file is given, or the file is "-", reads from stdin.
`)
}
