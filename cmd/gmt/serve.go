package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-method-tracer/internal/config"
	"go-method-tracer/internal/metrics"
	"go-method-tracer/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio or SSE",
		Long: `Serve list_packages, select_targets, func_code, type_code and called_funcs
to MCP clients. With the sse transport, /healthz and (unless server.metrics is
off) /metrics are served next to the SSE endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, config.FlagDir, config.FlagTests, config.FlagTransport, config.FlagAddr); err != nil {
				return err
			}
			opts := []server.Option{
				server.WithLogger(a.logger),
				server.WithProject(a.cfg.Project.Dir, a.cfg.Project.Patterns, a.cfg.Project.Tests),
			}
			if a.cfg.Server.Metrics {
				opts = append(opts, server.WithMetrics(metrics.New(true)))
			}
			s := server.New(opts...)

			if a.cfg.Server.Transport == "stdio" {
				return s.ServeStdio()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.ServeSSE(ctx, a.cfg.Server.Addr, a.cfg.Server.SSEPath)
		},
	}
	config.AddStringFlag(cmd, config.FlagDir)
	config.AddBoolFlag(cmd, config.FlagTests)
	config.AddStringFlag(cmd, config.FlagTransport)
	config.AddStringFlag(cmd, config.FlagAddr)
	return cmd
}
