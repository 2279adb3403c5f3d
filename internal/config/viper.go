package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GMT_TRACE_HISTORY.
const EnvPrefix = "GMT"

// InitViper returns a viper instance layered as flags (once bound) > GMT_
// environment > config file > NewDefaultConfig. An empty path looks for
// gmt.toml in the working directory; a missing file there is not an error.
func InitViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gmt")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if path != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// trace.history has no default, so the env key is bound explicitly.
	_ = v.BindEnv("trace.history")
	return v, nil
}

func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("project.dir", d.Project.Dir)
	v.SetDefault("project.patterns", d.Project.Patterns)
	v.SetDefault("project.tests", d.Project.Tests)
	v.SetDefault("project.rules", d.Project.Rules)

	v.SetDefault("trace.variant", d.Trace.Variant)
	v.SetDefault("trace.parameters", d.Trace.Parameters)
	v.SetDefault("trace.fingerprint", d.Trace.Fingerprint)
	v.SetDefault("trace.color", d.Trace.Color)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("server.transport", d.Server.Transport)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.sse_path", d.Server.SSEPath)
	v.SetDefault("server.metrics", d.Server.Metrics)
}

// FromViper decodes v into a validated Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
