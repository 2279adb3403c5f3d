package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the file InitViper looks for when no path is given.
const DefaultFile = "gmt.toml"

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"calls", "backtrace"}, c.Trace.Variant) {
		return fmt.Errorf("trace.variant: unknown variant %q", c.Trace.Variant)
	}
	if !slices.Contains([]string{"cyrb53", "xxhash"}, c.Trace.Fingerprint) {
		return fmt.Errorf("trace.fingerprint: unknown function %q", c.Trace.Fingerprint)
	}
	if !slices.Contains([]string{"stdio", "sse"}, c.Server.Transport) {
		return fmt.Errorf("server.transport: unknown transport %q", c.Server.Transport)
	}
	if len(c.Project.Patterns) == 0 {
		return errors.New("project.patterns: at least one pattern is required")
	}
	return nil
}

// ParseTOML decodes a config file on top of NewDefaultConfig.
func ParseTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config TOML: unknown key %q", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Write encodes cfg to path. An existing file is only replaced with force.
func Write(path string, cfg *Config, force bool) error {
	if cfg == nil {
		return errors.New("cannot write nil config")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking config: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
