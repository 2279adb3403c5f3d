package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag ties a command-line flag to a config key so commands sharing a
// setting register it the same way.
type Flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// Flag registry keys.
const (
	FlagDir         = "dir"
	FlagTests       = "tests"
	FlagVariant     = "variant"
	FlagParameters  = "parameters"
	FlagHistory     = "history"
	FlagFingerprint = "fingerprint"
	FlagColor       = "color"
	FlagRules       = "rules"
	FlagTransport   = "transport"
	FlagAddr        = "addr"
)

// Flags is the registry every command draws from.
var Flags = map[string]Flag{
	FlagDir:         {Name: "dir", Shorthand: "C", ViperKey: "project.dir", Description: "project directory to load"},
	FlagTests:       {Name: "tests", ViperKey: "project.tests", Description: "include _test.go files"},
	FlagVariant:     {Name: "variant", ViperKey: "trace.variant", Description: "trace variant: calls or backtrace"},
	FlagParameters:  {Name: "parameters", ViperKey: "trace.parameters", Description: "render arguments and results"},
	FlagHistory:     {Name: "history", ViperKey: "trace.history", Description: "suppress repeated call trees"},
	FlagFingerprint: {Name: "fingerprint", ViperKey: "trace.fingerprint", Description: "block fingerprint: cyrb53 or xxhash"},
	FlagColor:       {Name: "color", ViperKey: "trace.color", Description: "colour trace output"},
	FlagRules:       {Name: "rules", Shorthand: "r", ViperKey: "project.rules", Description: "YAML rules file"},
	FlagTransport:   {Name: "transport", Shorthand: "t", ViperKey: "server.transport", Description: "MCP transport: stdio or sse"},
	FlagAddr:        {Name: "addr", ViperKey: "server.addr", Description: "listen address for the sse transport"},
}

// AddStringFlag registers the string flag key on cmd with its config default.
func AddStringFlag(cmd *cobra.Command, key string) {
	def, ok := Flags[key]
	if !ok {
		return
	}
	cmd.Flags().StringP(def.Name, def.Shorthand, defaults().GetString(def.ViperKey), def.Description)
}

// AddBoolFlag registers the bool flag key on cmd with its config default.
func AddBoolFlag(cmd *cobra.Command, key string) {
	def, ok := Flags[key]
	if !ok {
		return
	}
	cmd.Flags().BoolP(def.Name, def.Shorthand, defaults().GetBool(def.ViperKey), def.Description)
}

// BindFlags connects the registered flags of cmd to v. Only flags the user
// set are bound, so unset flags never shadow lower layers.
func BindFlags(v *viper.Viper, cmd *cobra.Command, keys ...string) {
	for _, key := range keys {
		def, ok := Flags[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil && f.Changed {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
