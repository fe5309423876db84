package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of orders in the active backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.selector.Count(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"backend": s.selector.Current(),
					"count":   n,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
