// Package cache stores one inventory snapshot per (seller, marketplace) key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// ErrCacheIO wraps failures writing or opening the at-rest store.
var ErrCacheIO = errors.New("cache io")

// Store is a keyed snapshot cache with a freshness window.
type Store interface {
	// Get returns the snapshot for the key when present, parseable and fresh.
	Get(ctx context.Context, sellerID, marketplace string) (*models.InventorySnapshot, bool)
	// Put stamps the snapshot with the current time and replaces the stored entry.
	Put(ctx context.Context, snapshot *models.InventorySnapshot) error
	Close() error
}

// Key identifies a snapshot.
func Key(sellerID, marketplace string) string {
	return sellerID + "_" + marketplace
}

// document is the at-rest JSON shape. captured_at is RFC3339 UTC; timestamp
// (ISO8601 without zone) and last_updated (epoch seconds) are accepted on
// read for files written by older tooling.
type document struct {
	ScanID       string                 `json:"scan_id,omitempty"`
	SellerID     string                 `json:"seller_id"`
	SellerName   string                 `json:"seller_name"`
	Marketplace  string                 `json:"marketplace"`
	Products     []models.ProductRecord `json:"products"`
	ProductCount int                    `json:"product_count"`
	CapturedAt   *time.Time             `json:"captured_at,omitempty"`
	PagesCrawled int                    `json:"pages_crawled,omitempty"`
	Timestamp    string                 `json:"timestamp,omitempty"`
	LastUpdated  json.Number            `json:"last_updated,omitempty"`
}

var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

func encodeSnapshot(s *models.InventorySnapshot) ([]byte, error) {
	captured := s.CapturedAt.UTC()
	doc := document{
		ScanID:       s.ScanID,
		SellerID:     s.SellerID,
		SellerName:   s.SellerName,
		Marketplace:  s.Marketplace,
		Products:     s.Products,
		ProductCount: len(s.Products),
		CapturedAt:   &captured,
		PagesCrawled: s.PagesCrawled,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func decodeSnapshot(data []byte) (*models.InventorySnapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	captured, err := doc.capturedAt()
	if err != nil {
		return nil, err
	}
	s := &models.InventorySnapshot{
		ScanID:       doc.ScanID,
		SellerID:     doc.SellerID,
		SellerName:   doc.SellerName,
		Marketplace:  doc.Marketplace,
		Products:     doc.Products,
		CapturedAt:   captured,
		PagesCrawled: doc.PagesCrawled,
	}
	s.Normalize()
	return s, nil
}

func (d document) capturedAt() (time.Time, error) {
	if d.CapturedAt != nil && !d.CapturedAt.IsZero() {
		return *d.CapturedAt, nil
	}
	if d.Timestamp != "" {
		for _, layout := range legacyTimestampLayouts {
			if t, err := time.ParseInLocation(layout, d.Timestamp, time.Local); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", d.Timestamp)
	}
	if d.LastUpdated != "" {
		secs, err := strconv.ParseFloat(string(d.LastUpdated), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable last_updated %q: %w", d.LastUpdated, err)
		}
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)), nil
	}
	return time.Time{}, errors.New("snapshot has no capture time")
}

func stamp(s *models.InventorySnapshot, now time.Time) *models.InventorySnapshot {
	out := s.Clone()
	out.CapturedAt = now
	out.Partial = false
	out.Normalize()
	return out
}
