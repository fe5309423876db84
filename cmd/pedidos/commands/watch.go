package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmaorders/pedidos/pkg/stores"
	"github.com/pharmaorders/pedidos/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		showEvents bool
		minLevel   string
		eventTypes []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprint the XML order list whenever the document changes",
		Long: `Watch the XML order document and print the current list each time it is
written, for example by another pedidos process. Stops on interrupt.`,
		Example: `  pedidos watch
  pedidos watch --events --json
  pedidos watch --events --level warning
  pedidos watch --events --type document.changed,operation.failed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := watchFilter(minLevel, eventTypes)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			xmlStore := s.selector.XML()

			if showEvents {
				s.tel.Events.Subscribe(telemetry.JSONLinesSubscriber(out), filter)
			}

			refresh := func() {
				orders, err := xmlStore.List(ctx)
				if err != nil {
					s.logger.Warn().Err(err).Msg("Failed to reload order document")
					return
				}
				if !showEvents {
					_ = printOrders(out, stores.BackendXML, orders)
				}
			}

			if !jsonOutput && !showEvents {
				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", xmlStore.Path())
			}
			refresh()

			return xmlStore.Watch(ctx, func() {
				if err := s.tel.Events.PublishDocumentChanged(xmlStore.Path()); err != nil {
					s.logger.Debug().Err(err).Msg("Event dropped")
				}
				refresh()
			})
		},
	}

	cmd.Flags().BoolVar(&showEvents, "events", false, "print XML store events as JSON lines instead of listings")
	cmd.Flags().StringVar(&minLevel, "level", telemetry.EventLevelInfo, "minimum event level with --events (info, warning, error)")
	cmd.Flags().StringSliceVar(&eventTypes, "type", nil, "only print these event types with --events")

	return cmd
}

var (
	knownEventLevels = []string{telemetry.EventLevelInfo, telemetry.EventLevelWarning, telemetry.EventLevelError}
	knownEventTypes  = []string{
		telemetry.EventTypeOperationCompleted,
		telemetry.EventTypeOperationFailed,
		telemetry.EventTypeConnectFailed,
		telemetry.EventTypeConnected,
		telemetry.EventTypeDocumentChanged,
	}
)

// watchFilter builds the event filter for watch --events.
func watchFilter(level string, types []string) (telemetry.EventFilter, error) {
	if !slices.Contains(knownEventLevels, level) {
		return nil, fmt.Errorf("invalid --level %q (must be one of %s)", level, strings.Join(knownEventLevels, ", "))
	}
	filters := []telemetry.EventFilter{
		telemetry.FilterByBackend(stores.BackendXML),
		telemetry.FilterByLevel(level),
	}
	if len(types) > 0 {
		for _, t := range types {
			if !slices.Contains(knownEventTypes, t) {
				return nil, fmt.Errorf("invalid --type %q (must be one of %s)", t, strings.Join(knownEventTypes, ", "))
			}
		}
		filters = append(filters, telemetry.FilterByType(types...))
	}
	return telemetry.FilterAll(filters...), nil
}
