// Package config holds the gmt configuration: defaults, the TOML file and
// GMT_ environment overrides, layered through viper.
package config

// Config is the layout of gmt.toml.
type Config struct {
	Project ProjectConfig `toml:"project" mapstructure:"project"`
	Trace   TraceConfig   `toml:"trace" mapstructure:"trace"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
}

// ProjectConfig says which program to load.
type ProjectConfig struct {
	Dir      string   `toml:"dir" mapstructure:"dir"`
	Patterns []string `toml:"patterns" mapstructure:"patterns"`
	// Tests also loads _test.go files.
	Tests bool `toml:"tests" mapstructure:"tests"`
	// Rules is an optional YAML rules file applied by select and serve.
	Rules string `toml:"rules,omitempty" mapstructure:"rules"`
}

// TraceConfig shapes trace output.
type TraceConfig struct {
	// Variant is "calls" or "backtrace".
	Variant    string `toml:"variant" mapstructure:"variant"`
	Parameters bool   `toml:"parameters" mapstructure:"parameters"`
	// History suppresses repeated blocks. Unset means on for the
	// backtrace variant and off otherwise.
	History *bool `toml:"history,omitempty" mapstructure:"history"`
	// Fingerprint is "cyrb53" or "xxhash".
	Fingerprint string `toml:"fingerprint" mapstructure:"fingerprint"`
	Color       bool   `toml:"color" mapstructure:"color"`
}

// HistoryEnabled resolves History against the variant.
func (t TraceConfig) HistoryEnabled() bool {
	if t.History != nil {
		return *t.History
	}
	return t.Variant == "backtrace"
}

// LogConfig selects the log handler.
type LogConfig struct {
	Debug  bool `toml:"debug" mapstructure:"debug"`
	Pretty bool `toml:"pretty" mapstructure:"pretty"`
	JSON   bool `toml:"json" mapstructure:"json"`
}

// ServerConfig configures gmt serve.
type ServerConfig struct {
	// Transport is "stdio" or "sse".
	Transport string `toml:"transport" mapstructure:"transport"`
	Addr      string `toml:"addr" mapstructure:"addr"`
	SSEPath   string `toml:"sse_path" mapstructure:"sse_path"`
	// Metrics mounts /metrics next to the SSE endpoints.
	Metrics bool `toml:"metrics" mapstructure:"metrics"`
}
