package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

func newDeleteCommand() *cobra.Command {
	var (
		name      string
		timestamp string
		id        int64
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete orders",
		Long: `Delete orders by name and timestamp, or by id.

With the XML backend, --name and --timestamp remove the first order whose name and
timestamp match exactly. With the SQL backend they remove every order with that
name placed on the same day as --timestamp. --id is only available with SQL.`,
		Example: `  # Remove one XML order
  pedidos delete --name Aspirin --timestamp "2026-10-17 09:30:00"

  # Remove a database row by id
  pedidos delete --backend sql --id 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 && (name == "" || timestamp == "") {
				return fmt.Errorf("either --id or both --name and --timestamp are required")
			}

			var ts time.Time
			if id == 0 {
				var err error
				ts, err = parseTimestampFlag(timestamp)
				if err != nil {
					return err
				}
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if id != 0 {
				if err := s.selector.DeleteByID(cmd.Context(), id); err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(out, map[string]interface{}{"deleted": 1, "id": id})
				}
				fmt.Fprintf(out, "✓ Deleted order %d\n", id)
				return nil
			}

			n, err := s.selector.Delete(cmd.Context(), name, ts)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, map[string]interface{}{"deleted": n, "name": name})
			}
			if n == 0 {
				fmt.Fprintln(out, "No matching orders")
				return nil
			}
			fmt.Fprintf(out, "✓ Deleted %d order(s) named %s\n", n, name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "order name")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", `order timestamp, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD"`)
	cmd.Flags().Int64Var(&id, "id", 0, "order id (SQL backend only)")
	cmd.MarkFlagsMutuallyExclusive("id", "name")
	cmd.MarkFlagsMutuallyExclusive("id", "timestamp")

	return cmd
}

// parseTimestampFlag accepts a full timestamp or a bare date in local time.
func parseTimestampFlag(s string) (time.Time, error) {
	for _, layout := range []string{stores.TimestampLayout, stores.DateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, expected %q", s, stores.TimestampLayout)
}
