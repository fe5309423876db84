package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// setupXMLStore creates a store over a fresh document in a temp dir
func setupXMLStore(t *testing.T) *XMLStore {
	t.Helper()

	store, err := NewXMLStore(XMLConfig{
		Path:   filepath.Join(t.TempDir(), "medicamentos.xml"),
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// fixedClock returns a clock that always reports t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newOrder(name, typ string, qty int, distributor string, branches ...string) *Order {
	return &Order{
		Name:        name,
		Type:        typ,
		Quantity:    qty,
		Distributor: distributor,
		Branches:    branches,
	}
}

func TestXMLStoreEnsureInitialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "orders.xml")
	store, err := NewXMLStore(XMLConfig{Path: path, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("document was not created: %v", err)
	}
	if !strings.Contains(string(data), "<medicamentos>") {
		t.Errorf("expected empty root container, got %q", data)
	}

	// Idempotent: existing content is kept
	ctx := context.Background()
	if err := store.Add(ctx, newOrder("Aspirin", "analgésico", 10, "Cofarma", "Principal")); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if err := store.EnsureInitialized(); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1 after re-init, got %d", count)
	}
}

func TestXMLStoreEndToEnd(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 30, 15, 500, time.Local)
	store.now = fixedClock(now)

	order := newOrder("Aspirin", "analgésico", 10, "Cofarma", "Principal")
	if err := store.Add(ctx, order); err != nil {
		t.Fatalf("failed to add order: %v", err)
	}
	if order.FormattedTimestamp() != "2026-10-17 09:30:15" {
		t.Errorf("unexpected timestamp %s", order.FormattedTimestamp())
	}

	orders, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	want := []*Order{{
		Name:        "Aspirin",
		Type:        "analgésico",
		Quantity:    10,
		Distributor: "Cofarma",
		Branches:    []string{"Principal"},
		Timestamp:   now.Truncate(time.Second),
	}}
	if diff := cmp.Diff(want, orders); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	removed, err := store.DeleteByNameAndTimestamp(ctx, "Aspirin", orders[0].Timestamp)
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	orders, err = store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected empty list, got %d orders", len(orders))
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
}

func TestXMLStoreDocumentFormat(t *testing.T) {
	store := setupXMLStore(t)
	store.now = fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local))

	order := newOrder("Ibuprofeno", "analgésico", 3, "Cemefar", "Principal", "Secundaria")
	if err := store.Add(context.Background(), order); err != nil {
		t.Fatalf("failed to add order: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	doc := string(data)

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<medicamento nombre="Ibuprofeno" tipo="analgésico" cantidad="3" distribuidor="Cemefar" fecha="2026-01-02 03:04:05">`,
		"\n    <sucursal>Principal</sucursal>",
		"\n    <sucursal>Secundaria</sucursal>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestXMLStoreFilters(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()

	for _, o := range []*Order{
		newOrder("Aspirin", "analgésico", 10, "Cofarma", "Principal"),
		newOrder("Amoxicilina", "antibiótico", 5, "Empsephar", "Secundaria"),
		newOrder("Paracetamol", "Analgésico", 7, "Empsephar", "Principal", "Secundaria"),
	} {
		if err := store.Add(ctx, o); err != nil {
			t.Fatalf("failed to add %s: %v", o.Name, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}

	t.Run("sentinel returns everything", func(t *testing.T) {
		got, err := store.ListFiltered(ctx, Filter{Type: AllTypes, Distributor: AllDistributors})
		if err != nil {
			t.Fatalf("failed to filter: %v", err)
		}
		if diff := cmp.Diff(all, got); diff != "" {
			t.Errorf("ListFiltered(all) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("type is case-insensitive", func(t *testing.T) {
		got, err := store.ListByType(ctx, "ANALGÉSICO")
		if err != nil {
			t.Fatalf("failed to filter: %v", err)
		}
		if names(got) != "Aspirin,Paracetamol" {
			t.Errorf("unexpected orders %s", names(got))
		}
		for _, o := range all {
			if strings.EqualFold(o.Type, "analgésico") != strings.Contains(names(got), o.Name) {
				t.Errorf("order %s misclassified", o.Name)
			}
		}
	})

	t.Run("distributor", func(t *testing.T) {
		got, err := store.ListByDistributor(ctx, "empsephar")
		if err != nil {
			t.Fatalf("failed to filter: %v", err)
		}
		if names(got) != "Amoxicilina,Paracetamol" {
			t.Errorf("unexpected orders %s", names(got))
		}
	})

	t.Run("combined", func(t *testing.T) {
		got, err := store.ListFiltered(ctx, Filter{Type: "analgésico", Distributor: "Empsephar"})
		if err != nil {
			t.Fatalf("failed to filter: %v", err)
		}
		if names(got) != "Paracetamol" {
			t.Errorf("unexpected orders %s", names(got))
		}
	})

	t.Run("search", func(t *testing.T) {
		got, err := store.SearchByName(ctx, "CIL")
		if err != nil {
			t.Fatalf("failed to search: %v", err)
		}
		if names(got) != "Amoxicilina" {
			t.Errorf("unexpected orders %s", names(got))
		}
	})
}

func TestXMLStoreDeleteFirstMatchOnly(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()
	stamp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	store.now = fixedClock(stamp)

	// Two entries share name and timestamp; quantities tell them apart
	for _, qty := range []int{1, 2} {
		if err := store.Add(ctx, newOrder("Aspirin", "analgésico", qty, "Cofarma", "Principal")); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
	}
	if err := store.Add(ctx, newOrder("Other", "antiácido", 3, "Cemefar", "Principal")); err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	removed, err := store.DeleteByNameAndTimestamp(ctx, "Aspirin", stamp)
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected exactly 1 removed, got %d", removed)
	}

	orders, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(orders))
	}
	if orders[0].Name != "Aspirin" || orders[0].Quantity != 2 {
		t.Errorf("expected the second Aspirin to survive, got %+v", orders[0])
	}
	if orders[1].Name != "Other" {
		t.Errorf("expected Other to be untouched, got %+v", orders[1])
	}
}

func TestXMLStoreDeleteMissingIsNoop(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()
	stamp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	store.now = fixedClock(stamp)

	if err := store.Add(ctx, newOrder("Aspirin", "analgésico", 1, "Cofarma", "Principal")); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}

	cases := []struct {
		name string
		ts   time.Time
	}{
		{"Aspirin", stamp.Add(time.Second)},
		{"aspirin", stamp},
		{"Missing", stamp},
	}
	for _, tc := range cases {
		removed, err := store.DeleteByNameAndTimestamp(ctx, tc.name, tc.ts)
		if err != nil {
			t.Fatalf("delete %s: unexpected error %v", tc.name, err)
		}
		if removed != 0 {
			t.Errorf("delete %s: expected no-op, removed %d", tc.name, removed)
		}
	}

	after, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("document changed by no-op delete")
	}
}

func TestXMLStoreCountAfterAddsAndDeletes(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.Local)

	const n = 6
	for i := 0; i < n; i++ {
		store.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		if err := store.Add(ctx, newOrder("Order", "antiácido", i+1, "Cemefar", "Principal")); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
	}

	const m = 4
	for i := 0; i < m; i++ {
		removed, err := store.DeleteByNameAndTimestamp(ctx, "Order", base.Add(time.Duration(i)*time.Minute))
		if err != nil || removed != 1 {
			t.Fatalf("delete %d: removed=%d err=%v", i, removed, err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != n-m {
		t.Errorf("expected count %d, got %d", n-m, count)
	}
}

func TestXMLStoreCorruptDocument(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()

	if err := os.WriteFile(store.Path(), []byte("<medicamentos><medicamento"), 0644); err != nil {
		t.Fatalf("failed to corrupt document: %v", err)
	}

	orders, err := store.List(ctx)
	if err == nil {
		t.Fatalf("expected error for corrupt document, got %d orders", len(orders))
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Backend != BackendXML || opErr.Operation != "list" {
		t.Errorf("expected xml list OpError, got %v", err)
	}

	if _, err := store.Count(ctx); err == nil {
		t.Error("expected count to fail on corrupt document")
	}
	if err := store.Add(ctx, newOrder("Aspirin", "analgésico", 1, "Cofarma", "Principal")); err == nil {
		t.Error("expected add to fail on corrupt document")
	}
}

func TestXMLStoreReadsExistingDocument(t *testing.T) {
	store := setupXMLStore(t)
	ctx := context.Background()

	existing := `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<medicamentos>
    <medicamento cantidad="12" distribuidor="Empsephar" fecha="2025-03-04 10:11:12" nombre="Omeprazol" tipo="antiácido">
        <sucursal>Principal</sucursal>
        <sucursal>Secundaria</sucursal>
    </medicamento>
</medicamentos>
`
	if err := os.WriteFile(store.Path(), []byte(existing), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	orders, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	want := []*Order{{
		Name:        "Omeprazol",
		Type:        "antiácido",
		Quantity:    12,
		Distributor: "Empsephar",
		Branches:    []string{"Principal", "Secundaria"},
		Timestamp:   time.Date(2025, 3, 4, 10, 11, 12, 0, time.Local),
	}}
	if diff := cmp.Diff(want, orders); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	removed, err := store.DeleteByNameAndTimestamp(ctx, "Omeprazol", want[0].Timestamp)
	if err != nil || removed != 1 {
		t.Fatalf("expected existing order deleted, removed=%d err=%v", removed, err)
	}
}

func TestXMLStoreRejectsForeignRoot(t *testing.T) {
	store := setupXMLStore(t)

	if err := os.WriteFile(store.Path(), []byte("<records></records>"), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	_, err := store.Count(context.Background())
	if err == nil || !strings.Contains(err.Error(), "medicamentos") {
		t.Errorf("expected error naming the expected root, got %v", err)
	}
}

func TestXMLStoreCancelledContext(t *testing.T) {
	store := setupXMLStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func names(orders []*Order) string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Name)
	}
	return strings.Join(out, ",")
}
