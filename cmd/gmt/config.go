package main

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"go-method-tracer/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gmt.toml",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Long:  "Write the default configuration to --config, or ./" + config.DefaultFile + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath
			if path == "" {
				path = config.DefaultFile
			}
			if err := config.Write(path, config.NewDefaultConfig(), force); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

var showFlags = []string{
	config.FlagDir, config.FlagTests, config.FlagRules,
	config.FlagVariant, config.FlagParameters, config.FlagHistory, config.FlagFingerprint, config.FlagColor,
	config.FlagTransport, config.FlagAddr,
}

func newConfigShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after applying gmt.toml, GMT_* variables and the given flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, showFlags...); err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(a.cfg)
		},
	}
	for _, key := range showFlags {
		switch key {
		case config.FlagTests, config.FlagParameters, config.FlagHistory, config.FlagColor:
			config.AddBoolFlag(cmd, key)
		default:
			config.AddStringFlag(cmd, key)
		}
	}
	return cmd
}
