package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/tjson/stream"
	"github.com/Neumenon/tjson/tjson"
	"github.com/Neumenon/tjson/transcode"
)

// configEnv names a config file when --config is not given.
const configEnv = "TJSON_CONFIG"

// Config holds settings shared by all subcommands. Values come from the
// defaults, then the YAML file, then explicit flags.
//
// Example file:
//
//	max_depth: 1024
//	format: yaml
//	encoding: cbor
//	crc: true
//	sum: false
//	compression: zstd
//	log_level: debug
type Config struct {
	MaxDepth    int    `yaml:"max_depth"`
	Format      string `yaml:"format"`      // decode output: tree, json, yaml
	Encoding    string `yaml:"encoding"`    // codec for to, from and frames write
	CRC         bool   `yaml:"crc"`         // frames write: add crc=
	Sum         bool   `yaml:"sum"`         // frames write: add sum=
	Compression string `yaml:"compression"` // frames write: none, zstd, lz4
	LogLevel    string `yaml:"log_level"`   // debug, info, warn, error
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    tjson.DefaultMaxDepth,
		Format:      "tree",
		Encoding:    transcode.Default.Name(),
		Compression: "none",
		LogLevel:    "warn",
	}
}

// LoadConfig reads a YAML config file over the defaults. Unknown keys
// are rejected so that typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every setting names something that exists.
func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	switch c.Format {
	case "tree", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q (want tree, json or yaml)", c.Format)
	}
	if _, err := transcode.Lookup(c.Encoding); err != nil {
		return err
	}
	if _, err := stream.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// DecodeOptions returns the tjson options for this config.
func (c Config) DecodeOptions(logger *slog.Logger) tjson.DecodeOptions {
	return tjson.DecodeOptions{MaxDepth: c.MaxDepth, Logger: logger}
}

// EncodeOptions returns encode options with the same nesting limit, so
// every value read under this config can be written back.
func (c Config) EncodeOptions() tjson.EncodeOptions {
	return tjson.EncodeOptions{MaxDepth: c.MaxDepth}
}
