package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/mcpserver"
)

func newMCPCmd(opts *globalOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the classify_intent tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}

			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			return mcpserver.New(st.agent, version, logger).Run(ctx)
		},
	}
}
