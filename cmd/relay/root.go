package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "relay",
		Short: "Classify natural-language requests with a local Ollama model",
		Long: `relay sorts free-form requests into send_email, schedule_meeting or no_action
and extracts the recipient and message. Unknown arguments are treated as text to classify:

  relay email Carlos that the report is late`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logLevel.Set(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNaturalLanguage(cmd, opts, logger, args)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "relay.yaml", "path to the config file (.yaml or .toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newClassifyCmd(opts, logger),
		newServeCmd(opts, logger),
		newWatchCmd(opts, logger),
		newNATSCmd(opts, logger),
		newMCPCmd(opts, logger),
		newHistoryCmd(opts),
		newContactsCmd(opts),
		newCompletionCmd(),
		newVersionCmd(),
	)

	return root
}
