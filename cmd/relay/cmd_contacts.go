package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newContactsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List recipients seen in past requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts.configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			contacts, err := s.Contacts(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing contacts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(contacts) == 0 {
				fmt.Fprintln(out, "No contacts yet.")
				return nil
			}

			fmt.Fprintf(out, "%-20s  %-8s  %-17s  %s\n", "NAME", "REQUESTS", "LAST INTENT", "LAST SEEN")
			for _, c := range contacts {
				fmt.Fprintf(out, "%-20s  %-8d  %-17s  %s\n",
					c.Name,
					c.Requests,
					c.LastIntent,
					c.LastSeen.Local().Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}
