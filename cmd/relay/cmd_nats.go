package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/bus"
)

func newNATSCmd(opts *globalOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "nats",
		Short: "Answer classification requests over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.NATS.URL == "" {
				return errors.New("nats.url is not configured")
			}

			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := bus.Connect(bus.Options{
				URL:     cfg.NATS.URL,
				Name:    "relay",
				Subject: cfg.NATS.Subject,
				Queue:   cfg.NATS.Queue,
			}, st.agent, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			return r.Run(ctx)
		},
	}
}
