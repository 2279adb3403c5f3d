package config

const (
	defaultPattern     = "./..."
	defaultVariant     = "calls"
	defaultFingerprint = "cyrb53"
	defaultTransport   = "stdio"
	defaultAddr        = ":8080"
	defaultSSEPath     = "/mcp"
)

// NewDefaultConfig returns the configuration used when no file or
// environment override says otherwise.
func NewDefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Dir:      ".",
			Patterns: []string{defaultPattern},
		},
		Trace: TraceConfig{
			Variant:     defaultVariant,
			Parameters:  true,
			Fingerprint: defaultFingerprint,
		},
		Log: LogConfig{
			Pretty: true,
		},
		Server: ServerConfig{
			Transport: defaultTransport,
			Addr:      defaultAddr,
			SSEPath:   defaultSSEPath,
			Metrics:   true,
		},
	}
}
