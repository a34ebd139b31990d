package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/inbox"
)

func newWatchCmd(opts *globalOptions, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Classify .txt files dropped into a directory",
		Long: `Classify .txt files dropped into a directory.

Each file's outcome is written next to it as <name>.result.json. Defaults to inbox.dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			dir := cfg.Inbox.Dir
			if len(args) == 1 {
				dir = args[0]
			}

			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			return inbox.New(dir, st.agent, logger).Run(ctx)
		},
	}
}
