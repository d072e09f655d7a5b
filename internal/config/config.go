// Package config loads the saturn CLI configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/wbrown/saturn/datalog/engine"
	"github.com/wbrown/saturn/datalog/validate"
	"github.com/wbrown/saturn/internal/logging"
)

// Log selects the CLI log level and format
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the contents of a saturn YAML configuration file
type Config struct {
	Workers        int               `yaml:"workers"`
	Features       validate.Features `yaml:"features"`
	Log            Log               `yaml:"log"`
	QueryCacheSize int               `yaml:"query_cache_size"`

	// Show lists predicate name globs printed after evaluation when no
	// query is given
	Show []string `yaml:"show"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	def := engine.DefaultConfig()
	return &Config{
		Workers:        def.Workers,
		Features:       def.Features,
		Log:            Log{Level: "info", Format: "text"},
		QueryCacheSize: def.QueryCacheSize,
		Show:           []string{"*"},
	}
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(bs)
}

// Parse decodes YAML over the defaults
func Parse(bs []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must not be negative, got %d", c.Workers)
	}
	if c.QueryCacheSize < 0 {
		return fmt.Errorf("invalid config: query_cache_size must not be negative, got %d", c.QueryCacheSize)
	}
	if _, err := logging.GetLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds the logger described by the log section
func (c *Config) Logger() (*logrus.Logger, error) {
	return logging.New(c.Log.Level, c.Log.Format, os.Stderr)
}

// EngineConfig converts the file settings into an engine configuration
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Workers = c.Workers
	cfg.Features = c.Features
	cfg.QueryCacheSize = c.QueryCacheSize
	return cfg
}
