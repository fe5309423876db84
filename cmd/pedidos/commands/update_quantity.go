package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateQuantityCommand() *cobra.Command {
	var (
		id       int64
		quantity int
	)

	cmd := &cobra.Command{
		Use:   "update-quantity",
		Short: "Change the quantity of an order (SQL backend only)",
		Example: `  pedidos update-quantity --backend sql --id 42 --quantity 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.selector.UpdateQuantity(cmd.Context(), id, quantity); err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"id": id, "quantity": quantity})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Order %d quantity set to %d\n", id, quantity)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "order id")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 0, "new quantity, greater than zero")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}
