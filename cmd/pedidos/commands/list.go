package commands

import (
	"github.com/spf13/cobra"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

func newListCommand() *cobra.Command {
	var (
		filter stores.Filter
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders in the active backend",
		Long: `List orders in the active backend.

--type and --distributor narrow the listing; the values "` + stores.AllTypes + `" and
"` + stores.AllDistributors + `" disable the corresponding filter. --search matches
orders whose name contains the given text and ignores the other filters.`,
		Example: `  # All orders
  pedidos list

  # Antibiotics ordered from Cemefar, as JSON
  pedidos list --type antibiótico --distributor Cemefar --json

  # Name search
  pedidos list --search cilin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var orders []*stores.Order
			switch {
			case search != "":
				orders, err = s.selector.SearchByName(cmd.Context(), search)
			case filter.Type != "" || filter.Distributor != "":
				orders, err = s.selector.ListFiltered(cmd.Context(), filter)
			default:
				orders, err = s.selector.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			return printOrders(cmd.OutOrStdout(), s.selector.Current(), orders)
		},
	}

	cmd.Flags().StringVarP(&filter.Type, "type", "t", "", "only orders of this type")
	cmd.Flags().StringVarP(&filter.Distributor, "distributor", "d", "", "only orders from this distributor")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only orders whose name contains this text")

	return cmd
}
