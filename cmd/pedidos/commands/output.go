package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOrders renders orders as a table, or as JSON with --json.
func printOrders(w io.Writer, backend stores.Backend, orders []*stores.Order) error {
	if jsonOutput {
		return printJSON(w, orders)
	}
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders found")
		return nil
	}

	header := []string{"Name", "Type", "Quantity", "Distributor", "Branches", "Timestamp"}
	if backend == stores.BackendSQL {
		header = append([]string{"ID"}, header...)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	for _, o := range orders {
		row := []string{
			o.Name,
			o.Type,
			strconv.Itoa(o.Quantity),
			o.Distributor,
			strings.Join(o.Branches, stores.BranchSeparator),
			o.FormattedTimestamp(),
		}
		if backend == stores.BackendSQL {
			row = append([]string{strconv.FormatInt(o.ID, 10)}, row...)
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

// printSummary prints the confirmation shown after an order is stored.
func printSummary(w io.Writer, backend stores.Backend, o *stores.Order) error {
	if jsonOutput {
		return printJSON(w, o)
	}
	fmt.Fprintf(w, "✓ Order stored in %s backend\n", backend)
	if o.ID != 0 {
		fmt.Fprintf(w, "  ID:          %d\n", o.ID)
	}
	fmt.Fprintf(w, "  Name:        %s\n", o.Name)
	fmt.Fprintf(w, "  Type:        %s\n", o.Type)
	fmt.Fprintf(w, "  Quantity:    %d\n", o.Quantity)
	fmt.Fprintf(w, "  Distributor: %s\n", o.Distributor)
	fmt.Fprintf(w, "  Branches:    %s\n", strings.Join(o.Branches, stores.BranchSeparator))
	fmt.Fprintf(w, "  Timestamp:   %s\n", o.FormattedTimestamp())
	return nil
}
