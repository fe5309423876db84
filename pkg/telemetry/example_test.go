package telemetry_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/pharmaorders/pedidos/pkg/stores"
	"github.com/pharmaorders/pedidos/pkg/telemetry"
)

// Example_eventSubscription demonstrates filtering store events.
func Example_eventSubscription() {
	events := telemetry.NewEventPublisher(telemetry.DefaultEventsConfig())

	events.Subscribe(func(e telemetry.Event) {
		fmt.Println(e.Type, e.Backend, e.Operation)
	}, telemetry.FilterByLevel(telemetry.EventLevelError))

	events.ObserveOperation(stores.BackendSQL, "list", time.Millisecond, nil)
	events.ObserveOperation(stores.BackendSQL, "add", time.Millisecond, errors.New("duplicate"))

	_ = events.Shutdown(context.Background())
	// Output: operation.failed sql add
}

// ExampleMetrics_ObserveOperation demonstrates recording store operations.
func ExampleMetrics_ObserveOperation() {
	cfg := telemetry.DefaultMetricsConfig()
	cfg.Enabled = true
	m := telemetry.NewMetrics(cfg)

	m.ObserveOperation(stores.BackendXML, "add", 2*time.Millisecond, nil)
	m.ObserveConnectAttempt(stores.BackendSQL, errors.New("refused"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "# TYPE "); ok {
			fmt.Println(strings.Fields(name)[0])
		}
	}
	// Output:
	// pedidos_connect_attempts_total
	// pedidos_store_operation_duration_seconds
	// pedidos_store_operations_total
}
