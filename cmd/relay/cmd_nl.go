package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// runNaturalLanguage classifies arguments that did not match a subcommand.
func runNaturalLanguage(cmd *cobra.Command, opts *globalOptions, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	query := strings.Join(args, " ")
	logger.Debug("classifying natural language input", "query", query)

	return classify(cmd, opts, logger, query)
}
