// Package pipeline accumulates scan results and writes them out.
package pipeline

import (
	"github.com/aluiziolira/go-seller-inventory/models"
	"github.com/aluiziolira/go-seller-inventory/parser"
)

// Stats counts what an Accumulator accepted and rejected.
type Stats struct {
	Accepted   int            `json:"accepted"`
	Duplicates int            `json:"duplicates"`
	Invalid    int            `json:"invalid"`
	ByReason   map[string]int `json:"by_reason,omitempty"`
}

// Accumulator is the dedup map for one scan. The first record seen for an id
// is kept and later records for the same id are dropped whole. It is owned by
// a single scan and is not safe for concurrent use.
type Accumulator struct {
	seen     map[string]struct{}
	products []models.ProductRecord
	stats    Stats
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		seen:  make(map[string]struct{}),
		stats: Stats{ByReason: make(map[string]int)},
	}
}

// Add merges products and returns how many were new.
func (a *Accumulator) Add(products []models.ProductRecord) int {
	added := 0
	for i := range products {
		p := products[i]
		if err := parser.ValidateProduct(&p); err != nil {
			a.stats.Invalid++
			a.stats.ByReason["invalid_record"]++
			continue
		}
		if _, ok := a.seen[p.ID]; ok {
			a.stats.Duplicates++
			a.stats.ByReason["duplicate_id"]++
			continue
		}
		a.seen[p.ID] = struct{}{}
		a.products = append(a.products, p)
		a.stats.Accepted++
		added++
	}
	return added
}

// Len returns the number of unique products.
func (a *Accumulator) Len() int {
	return len(a.products)
}

// Products returns a copy of the unique products in discovery order.
func (a *Accumulator) Products() []models.ProductRecord {
	out := make([]models.ProductRecord, len(a.products))
	copy(out, a.products)
	return out
}

// Stats returns a snapshot of the counters.
func (a *Accumulator) Stats() Stats {
	out := a.stats
	out.ByReason = make(map[string]int, len(a.stats.ByReason))
	for k, v := range a.stats.ByReason {
		out.ByReason[k] = v
	}
	return out
}
