package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

type backendStatus struct {
	Backend   string `json:"backend"`
	Active    bool   `json:"active"`
	Location  string `json:"location"`
	State     string `json:"state"`
	Reachable bool   `json:"reachable"`
	Count     *int   `json:"count,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of both backends",
		Long: `Show which backend is active, where each one keeps its data, whether the
database is reachable, and how many orders each backend holds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			current := s.selector.Current()
			statuses := make([]backendStatus, 0, 2)

			xmlStatus := backendStatus{
				Backend:   stores.BackendXML.String(),
				Active:    current == stores.BackendXML,
				Location:  s.selector.XML().Path(),
				State:     "ready",
				Reachable: true,
			}
			if n, err := s.selector.XML().Count(ctx); err != nil {
				xmlStatus.Error = err.Error()
			} else {
				xmlStatus.Count = &n
			}
			statuses = append(statuses, xmlStatus)

			if sqlStore := s.selector.SQL(); sqlStore != nil {
				sqlStatus := backendStatus{
					Backend:  stores.BackendSQL.String(),
					Active:   current == stores.BackendSQL,
					Location: fmt.Sprintf("%s %s", s.cfg.SQL.Driver, s.cfg.SQL.Endpoint),
				}
				sqlStatus.Reachable = sqlStore.IsConnected(ctx)
				if sqlStatus.Reachable {
					if n, err := sqlStore.Count(ctx); err != nil {
						sqlStatus.Error = err.Error()
					} else {
						sqlStatus.Count = &n
					}
				}
				sqlStatus.State = sqlStore.State().String()
				statuses = append(statuses, sqlStatus)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, statuses)
			}

			for _, st := range statuses {
				marker := " "
				if st.Active {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-4s %-13s %s\n", marker, st.Backend, st.State, st.Location)
				if st.Count != nil {
					fmt.Fprintf(out, "       orders: %d\n", *st.Count)
				}
				if st.Error != "" {
					fmt.Fprintf(out, "       error:  %s\n", st.Error)
				}
			}
			return nil
		},
	}
}
