package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := NewDefaultConfig()
	require.NoError(t, d.Validate())
	assert.Equal(t, []string{"./..."}, d.Project.Patterns)
	assert.Equal(t, "calls", d.Trace.Variant)
	assert.Equal(t, "cyrb53", d.Trace.Fingerprint)
	assert.Equal(t, "stdio", d.Server.Transport)
	assert.Nil(t, d.Trace.History)
}

func TestHistoryEnabled(t *testing.T) {
	on, off := true, false
	tests := []struct {
		variant string
		history *bool
		want    bool
	}{
		{"calls", nil, false},
		{"backtrace", nil, true},
		{"calls", &on, true},
		{"backtrace", &off, false},
	}
	for _, tt := range tests {
		trace := TraceConfig{Variant: tt.variant, History: tt.history}
		assert.Equal(t, tt.want, trace.HistoryEnabled(), "%s %v", tt.variant, tt.history)
	}
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"variant":     func(c *Config) { c.Trace.Variant = "flame" },
		"fingerprint": func(c *Config) { c.Trace.Fingerprint = "md5" },
		"transport":   func(c *Config) { c.Server.Transport = "grpc" },
		"patterns":    func(c *Config) { c.Project.Patterns = nil },
	} {
		t.Run(name, func(t *testing.T) {
			c := NewDefaultConfig()
			mutate(c)
			assert.ErrorContains(t, c.Validate(), name)
		})
	}
}

func TestParseTOML(t *testing.T) {
	cfg, err := ParseTOML([]byte(`
[project]
dir = "../shop"

[trace]
variant = "backtrace"
history = true
`))
	require.NoError(t, err)
	assert.Equal(t, "../shop", cfg.Project.Dir)
	assert.Equal(t, []string{"./..."}, cfg.Project.Patterns, "unset keys keep defaults")
	assert.Equal(t, "backtrace", cfg.Trace.Variant)
	require.NotNil(t, cfg.Trace.History)
	assert.True(t, *cfg.Trace.History)

	_, err = ParseTOML([]byte("[trace]\nvarient = \"calls\"\n"))
	assert.ErrorContains(t, err, "trace.varient")

	_, err = ParseTOML([]byte("[trace]\nfingerprint = \"md5\"\n"))
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Write(path, NewDefaultConfig(), false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[trace]")
	assert.Contains(t, string(data), `sse_path = "/mcp"`)

	cfg, err := ParseTOML(data)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)

	assert.ErrorContains(t, Write(path, NewDefaultConfig(), false), "already exists")
	assert.NoError(t, Write(path, NewDefaultConfig(), true))
	assert.Error(t, Write(path, nil, true))
}

func TestInitViper(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		v, err := InitViper("")
		require.NoError(t, err)
		cfg, err := FromViper(v)
		require.NoError(t, err)
		assert.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := InitViper(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})

	t.Run("env over file over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gmt.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[trace]
variant = "backtrace"
fingerprint = "xxhash"

[server]
addr = ":9000"
`), 0o644))
		t.Setenv("GMT_TRACE_FINGERPRINT", "cyrb53")
		t.Setenv("GMT_PROJECT_PATTERNS", "./cart,./store")
		t.Setenv("GMT_TRACE_HISTORY", "false")

		v, err := InitViper(path)
		require.NoError(t, err)
		cfg, err := FromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "backtrace", cfg.Trace.Variant)
		assert.Equal(t, "cyrb53", cfg.Trace.Fingerprint)
		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.Equal(t, "/mcp", cfg.Server.SSEPath)
		assert.Equal(t, []string{"./cart", "./store"}, cfg.Project.Patterns)
		require.NotNil(t, cfg.Trace.History)
		assert.False(t, cfg.Trace.HistoryEnabled())
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("GMT_SERVER_TRANSPORT", "grpc")
		v, err := InitViper("")
		require.NoError(t, err)
		_, err = FromViper(v)
		assert.Error(t, err)
	})
}

func TestFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	cmd := &cobra.Command{Use: "x"}
	AddStringFlag(cmd, FlagVariant)
	AddBoolFlag(cmd, FlagHistory)
	AddStringFlag(cmd, FlagDir)
	AddStringFlag(cmd, "unknown")

	f := cmd.Flags().Lookup("variant")
	require.NotNil(t, f)
	assert.Equal(t, "calls", f.DefValue)
	assert.Equal(t, "C", cmd.Flags().Lookup("dir").Shorthand)
	assert.Nil(t, cmd.Flags().Lookup("unknown"))

	require.NoError(t, cmd.Flags().Parse([]string{"--history", "--variant=backtrace"}))
	v, err := InitViper("")
	require.NoError(t, err)
	BindFlags(v, cmd, FlagVariant, FlagHistory, FlagDir)

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "backtrace", cfg.Trace.Variant)
	require.NotNil(t, cfg.Trace.History)
	assert.True(t, *cfg.Trace.History)
	assert.Equal(t, ".", cfg.Project.Dir)
	assert.Equal(t, []string{"./..."}, cfg.Project.Patterns)
}
