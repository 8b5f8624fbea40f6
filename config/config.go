package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/filememo/freshness"
	"github.com/jonwraymond/filememo/memo"
	"github.com/jonwraymond/filememo/observe"
)

var (
	// ErrInvalidVersion indicates a negative record version.
	ErrInvalidVersion = errors.New("config: version must not be negative")

	// ErrInvalidCodec indicates an unknown codec name.
	ErrInvalidCodec = errors.New("config: unknown codec")
)

var codecs = map[string]memo.Codec{
	"":        memo.JSON,
	"json":    memo.JSON,
	"msgpack": memo.Msgpack,
}

// Config holds the settings shared by a group of memoized functions.
type Config struct {
	// Dir is the parent cache directory. Empty means memo.DefaultDir().
	Dir string `yaml:"dir"`

	// MaxAge is how long successful results are served.
	MaxAge freshness.Policy `yaml:"max_age"`

	// ExceptionsMaxAge is how long errors are replayed; "never" keeps
	// them out of the cache.
	ExceptionsMaxAge freshness.Policy `yaml:"exceptions_max_age"`

	// Version is the record version. Zero means memo.DefaultVersion.
	Version int `yaml:"version"`

	// Codec is "json" (default) or "msgpack".
	Codec string `yaml:"codec"`

	// Coalesce collapses concurrent in-process misses for one key.
	Coalesce bool `yaml:"coalesce"`

	// Observe enables telemetry when set.
	Observe *observe.Config `yaml:"observe,omitempty"`
}

// Default returns the configuration memo uses when given no options.
func Default() Config {
	return Config{
		Dir:              memo.DefaultDir(),
		MaxAge:           freshness.Unbounded(),
		ExceptionsMaxAge: freshness.Unbounded(),
		Version:          memo.DefaultVersion,
	}
}

// Load reads and parses a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, rejecting unknown fields, expands Dir and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	dir, err := ExpandEnvStrict(cfg.Dir)
	if err != nil {
		return Config{}, err
	}
	cfg.Dir = dir
	if cfg.Dir == "" {
		cfg.Dir = memo.DefaultDir()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Version < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, c.Version)
	}
	if _, ok := codecs[c.Codec]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCodec, c.Codec)
	}
	if c.Observe != nil {
		if err := c.Observe.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Options converts the configuration into memo options.
func (c Config) Options() []memo.Option {
	opts := []memo.Option{
		memo.WithDir(c.Dir),
		memo.WithMaxAge(c.MaxAge),
		memo.WithErrorMaxAge(c.ExceptionsMaxAge),
		memo.WithCoalescing(c.Coalesce),
		memo.WithCodec(codecs[c.Codec]),
	}
	if c.Version > 0 {
		opts = append(opts, memo.WithVersion(c.Version))
	}
	return opts
}

// Observer builds the configured observer, or returns nil when
// telemetry is not configured. The caller owns Shutdown.
func (c Config) Observer(ctx context.Context) (observe.Observer, error) {
	if c.Observe == nil {
		return nil, nil
	}
	return observe.NewObserver(ctx, *c.Observe)
}
