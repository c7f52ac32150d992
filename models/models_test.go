package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLookupMarketplace(t *testing.T) {
	tests := []struct {
		input   string
		host    string
		wantErr bool
	}{
		{input: "co.uk", host: "www.amazon.co.uk"},
		{input: " .DE ", host: "www.amazon.de"},
		{input: "com", host: "www.amazon.com"},
		{input: "uk", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mp, err := LookupMarketplace(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMarketplace) {
					t.Fatalf("expected ErrInvalidMarketplace, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("lookup %q: %v", tt.input, err)
			}
			if mp.Host != tt.host {
				t.Fatalf("host=%q, want %q", mp.Host, tt.host)
			}
		})
	}
}

func TestDetailURL(t *testing.T) {
	mp, err := LookupMarketplace("co.uk")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := mp.DetailURL("B000000001"); got != "https://www.amazon.co.uk/dp/B000000001" {
		t.Fatalf("detail url = %q", got)
	}
}

func TestValidateSellerID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{id: "A1B2C3D4E5F6G7"},
		{id: "abc12"},
		{id: "S1"},
		{id: "", wantErr: true},
		{id: strings.Repeat("A", 33), wantErr: true},
		{id: "A1B2C3/../x", wantErr: true},
		{id: "A1B2 C3D4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateSellerID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSellerID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotNormalizeAndFresh(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := &InventorySnapshot{
		Products:     []ProductRecord{{ID: "B000000001"}, {ID: "B000000002"}},
		ProductCount: 7,
		CapturedAt:   now.Add(-11 * time.Hour),
	}
	snap.Normalize()
	if snap.ProductCount != 2 {
		t.Fatalf("product count = %d, want 2", snap.ProductCount)
	}
	if snap.SellerName != UnknownSeller {
		t.Fatalf("seller name = %q, want %q", snap.SellerName, UnknownSeller)
	}
	if !snap.Fresh(now, 12*time.Hour) {
		t.Fatalf("snapshot within window should be fresh")
	}
	if snap.Fresh(now, 10*time.Hour) {
		t.Fatalf("snapshot outside window should be stale")
	}

	clone := snap.Clone()
	clone.Products[0].Title = "changed"
	if snap.Products[0].Title != "" {
		t.Fatalf("clone shares product slice with original")
	}
}
