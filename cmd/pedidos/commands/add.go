package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

func newAddCommand() *cobra.Command {
	var (
		order    stores.Order
		branches []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new medication order",
		Long: fmt.Sprintf(`Record a new medication order in the active backend.

Types:        %s
Distributors: %s
Branches:     %s (repeat --branch for several)`,
			strings.Join(stores.KnownTypes, ", "),
			strings.Join(stores.KnownDistributors, ", "),
			strings.Join(stores.KnownBranches, ", ")),
		Example: `  # Order ten boxes of aspirin for both branches
  pedidos add --name Aspirin --type analgésico --quantity 10 \
    --distributor Cofarma --branch Principal --branch Secundaria

  # Store it in the database regardless of config
  pedidos add --backend sql --name Omeprazol --type antiácido --quantity 2 --distributor Cemefar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			order.Branches = branches
			if err := s.selector.Add(cmd.Context(), &order); err != nil {
				return fmt.Errorf("failed to add order: %w", err)
			}

			s.logger.Info().
				Str("backend", s.selector.Current().String()).
				Str("name", order.Name).
				Int("quantity", order.Quantity).
				Msg("Order added")

			return printSummary(cmd.OutOrStdout(), s.selector.Current(), &order)
		},
	}

	cmd.Flags().StringVarP(&order.Name, "name", "n", "", "medication name (letters, digits and spaces)")
	cmd.Flags().StringVarP(&order.Type, "type", "t", "", "medication type")
	cmd.Flags().IntVarP(&order.Quantity, "quantity", "q", 0, "number of units, greater than zero")
	cmd.Flags().StringVarP(&order.Distributor, "distributor", "d", "", "distributor")
	cmd.Flags().StringSliceVar(&branches, "branch", []string{stores.KnownBranches[0]}, "destination branch")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("quantity")
	_ = cmd.MarkFlagRequired("distributor")

	return cmd
}
