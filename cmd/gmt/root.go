package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-method-tracer/internal/config"
	"go-method-tracer/internal/logging"
)

const rootLongDesc = `gmt selects functions of a Go program for call tracing.

It loads a project's packages, narrows them down to target functions with
rules or flags, and serves the same capabilities to MCP clients.

  gmt select        List the functions a selection resolves to
  gmt code          Print the source of a function or type
  gmt calls         List the functions a function calls
  gmt serve         Serve the MCP tools over stdio or SSE
  gmt config init   Write a default gmt.toml

Settings come from flags, then GMT_* environment variables, then gmt.toml,
then built-in defaults.`

// app carries the state shared by every command.
type app struct {
	configPath string
	debug      bool

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "gmt",
		Short:        "Go method tracer",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./"+config.DefaultFile+")")
	cmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(newSelectCmd(a))
	cmd.AddCommand(newCodeCmd(a))
	cmd.AddCommand(newCallsCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	return cmd
}

// setup resolves the configuration for cmd, binding the given registry
// flags, and installs the logger it describes.
func (a *app) setup(cmd *cobra.Command, flags ...string) error {
	v, err := config.InitViper(a.configPath)
	if err != nil {
		return err
	}
	config.BindFlags(v, cmd, flags...)
	if f := cmd.Flags().Lookup("debug"); f != nil {
		_ = v.BindPFlag("log.debug", f)
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	a.v, a.cfg = v, cfg
	a.logger = logging.New(
		logging.WithWriter(cmd.ErrOrStderr()),
		logging.WithDebug(cfg.Log.Debug),
		logging.WithPretty(cfg.Log.Pretty),
		logging.WithJSON(cfg.Log.JSON),
	)
	slog.SetDefault(a.logger)
	return nil
}
