package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/store"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts.configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No classifications yet.")
				return nil
			}

			fmt.Fprintf(out, "%-20s  %-17s  %-20s  %s\n", "CREATED", "INTENT", "RECIPIENT", "INPUT")
			for _, r := range records {
				outcome := string(r.Intent)
				if r.ErrorKind != "" {
					outcome = "!" + r.ErrorKind
				}
				recipient, _ := r.Params.Recipient()
				fmt.Fprintf(out, "%-20s  %-17s  %-20s  %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					outcome,
					recipient,
					truncate(r.Input, 60),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultLimit, fmt.Sprintf("number of records to show (1-%d)", store.MaxLimit))

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
