// Package models defines data structures for the inventory scanner.
package models

import "time"

// UnknownSeller is recorded when the storefront name cannot be resolved.
const UnknownSeller = "unknown"

// ProductRecord is one catalog entry discovered on a storefront.
type ProductRecord struct {
	ID          string `csv:"id" json:"id"`
	Title       string `csv:"title" json:"title"`
	PriceText   string `csv:"price_text" json:"price_text,omitempty"`
	DetailURL   string `csv:"detail_url" json:"detail_url"`
	Marketplace string `csv:"marketplace" json:"marketplace"`
	SellerID    string `csv:"seller_id" json:"seller_id"`
	SellerName  string `csv:"seller_name" json:"seller_name"`
}

// InventorySnapshot is the deduplicated result of one scan.
type InventorySnapshot struct {
	ScanID       string          `json:"scan_id,omitempty"`
	SellerID     string          `json:"seller_id"`
	SellerName   string          `json:"seller_name"`
	Marketplace  string          `json:"marketplace"`
	Products     []ProductRecord `json:"products"`
	ProductCount int             `json:"product_count"`
	CapturedAt   time.Time       `json:"captured_at"`
	PagesCrawled int             `json:"pages_crawled,omitempty"`
	Partial      bool            `json:"partial,omitempty"`
}

// Normalize recomputes derived fields.
func (s *InventorySnapshot) Normalize() {
	if s.Products == nil {
		s.Products = []ProductRecord{}
	}
	s.ProductCount = len(s.Products)
	if s.SellerName == "" {
		s.SellerName = UnknownSeller
	}
}

// Clone returns a copy that shares no product slice with s.
func (s *InventorySnapshot) Clone() *InventorySnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Products = make([]ProductRecord, len(s.Products))
	copy(out.Products, s.Products)
	return &out
}

// Fresh reports whether the snapshot is within window of now.
func (s *InventorySnapshot) Fresh(now time.Time, window time.Duration) bool {
	if s == nil || s.CapturedAt.IsZero() {
		return false
	}
	return now.Sub(s.CapturedAt) <= window
}
