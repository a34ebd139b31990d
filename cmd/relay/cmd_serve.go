package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/server"
)

func newServeCmd(opts *globalOptions, logger *slog.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			hub := server.NewHub(logger)
			st, err := buildStack(ctx, cfg, logger, hub.Publish)
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := server.LoadSpec(ctx)
			if err != nil {
				return fmt.Errorf("loading OpenAPI document: %w", err)
			}

			handler := server.NewHandler(&server.Handlers{
				Agent:     st.agent,
				History:   st.store,
				Events:    hub,
				Version:   version,
				Model:     cfg.Ollama.API.Model,
				StartTime: time.Now(),
				Logger:    logger,
			}, doc)

			return server.New(cfg.Server.Addr, handler, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
