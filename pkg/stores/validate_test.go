package stores

import (
	"errors"
	"strings"
	"testing"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   *Order
		wantErr bool
	}{
		{
			name:  "valid",
			order: newOrder("Aspirin 500", "analgésico", 10, "Cofarma", "Principal", "Secundaria"),
		},
		{
			name:  "type and distributor match case-insensitively",
			order: newOrder("Aspirin", "ANALGÉSICO", 1, "cofarma", "Principal"),
		},
		{
			name:  "surrounding whitespace is trimmed",
			order: newOrder("  Aspirin  ", "analgésico", 1, "Cofarma", "Principal"),
		},
		{
			name:    "empty name",
			order:   newOrder("   ", "analgésico", 1, "Cofarma", "Principal"),
			wantErr: true,
		},
		{
			name:    "punctuation in name",
			order:   newOrder("Aspirin-C", "analgésico", 1, "Cofarma", "Principal"),
			wantErr: true,
		},
		{
			name:    "name too long",
			order:   newOrder(strings.Repeat("a", 256), "analgésico", 1, "Cofarma", "Principal"),
			wantErr: true,
		},
		{
			name:    "unknown type",
			order:   newOrder("Aspirin", "vitamina", 1, "Cofarma", "Principal"),
			wantErr: true,
		},
		{
			name:    "zero quantity",
			order:   newOrder("Aspirin", "analgésico", 0, "Cofarma", "Principal"),
			wantErr: true,
		},
		{
			name:    "negative quantity",
			order:   newOrder("Aspirin", "analgésico", -3, "Cofarma", "Principal"),
			wantErr: true,
		},
		{
			name:    "unknown distributor",
			order:   newOrder("Aspirin", "analgésico", 1, "Farmadis", "Principal"),
			wantErr: true,
		},
		{
			name:    "no branches",
			order:   newOrder("Aspirin", "analgésico", 1, "Cofarma"),
			wantErr: true,
		},
		{
			name:    "duplicate branches",
			order:   newOrder("Aspirin", "analgésico", 1, "Cofarma", "Principal", "Principal"),
			wantErr: true,
		},
		{
			name:    "branch containing separator",
			order:   newOrder("Aspirin", "analgésico", 1, "Cofarma", "Principal, Norte"),
			wantErr: true,
		},
		{
			name:    "blank branch",
			order:   newOrder("Aspirin", "analgésico", 1, "Cofarma", ""),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOrder) {
					t.Errorf("expected ErrInvalidOrder, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOrderValidateTrimsName(t *testing.T) {
	order := newOrder("  Aspirin  ", "analgésico", 1, "Cofarma", "Principal")
	if err := order.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Name != "Aspirin" {
		t.Errorf("expected trimmed name, got %q", order.Name)
	}
}

func TestOrderValidateUsesCatalogueSpelling(t *testing.T) {
	order := newOrder("Aspirin", "ANALGÉSICO", 1, "cofarma", "Principal")
	if err := order.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Type != "analgésico" {
		t.Errorf("expected catalogue type, got %q", order.Type)
	}
	if order.Distributor != "Cofarma" {
		t.Errorf("expected catalogue distributor, got %q", order.Distributor)
	}
}
