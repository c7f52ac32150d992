// Package inventory is the entry point host processes call to list a
// seller's products.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-seller-inventory/cache"
	"github.com/aluiziolira/go-seller-inventory/config"
	"github.com/aluiziolira/go-seller-inventory/models"
	"github.com/aluiziolira/go-seller-inventory/query"
	"github.com/aluiziolira/go-seller-inventory/scraper"
)

// FetcherFactory builds the Fetcher owned by one scan.
type FetcherFactory func(cfg *config.Config, mp models.Marketplace, metrics *scraper.Metrics) (scraper.Fetcher, error)

// Service answers product and seller-name lookups, serving fresh snapshots
// from the cache and scanning otherwise.
type Service struct {
	cfg        *config.Config
	store      cache.Store
	catalog    *query.Catalog
	metrics    *scraper.Metrics
	newFetcher FetcherFactory
}

// Option customises a Service.
type Option func(*Service)

// WithCatalog replaces the built-in query catalog.
func WithCatalog(catalog *query.Catalog) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

// WithMetrics records scan and cache metrics on m.
func WithMetrics(m *scraper.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFetcherFactory replaces the colly-backed fetcher.
func WithFetcherFactory(factory FetcherFactory) Option {
	return func(s *Service) {
		s.newFetcher = factory
	}
}

// Request names one seller scan.
type Request struct {
	SellerID     string
	Marketplace  string
	ForceRefresh bool
}

// Result pairs a Request with its snapshot or error.
type Result struct {
	Request  Request
	Snapshot *models.InventorySnapshot
	Err      error
}

// NewService validates cfg and wires the cache store.
func NewService(cfg *config.Config, store cache.Store, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Service{
		cfg:        cfg,
		store:      store,
		catalog:    query.DefaultCatalog(),
		newFetcher: collyFetcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.catalog.Validate(); err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	return s, nil
}

func collyFetcher(cfg *config.Config, mp models.Marketplace, metrics *scraper.Metrics) (scraper.Fetcher, error) {
	return scraper.NewFetcher(cfg, mp, metrics)
}

// GetSellerProducts returns the seller's products, empty when nothing could
// be retrieved. It never fails; causes are logged.
func (s *Service) GetSellerProducts(ctx context.Context, sellerID, marketplace string, forceRefresh bool) []models.ProductRecord {
	snapshot, err := s.Scan(ctx, sellerID, marketplace, forceRefresh)
	if err != nil {
		slog.Error("seller products unavailable",
			slog.String("seller_id", sellerID),
			slog.String("marketplace", marketplace),
			slog.Any("error", err),
		)
		return []models.ProductRecord{}
	}
	return snapshot.Products
}

// GetSellerName resolves the storefront display name, preferring a fresh
// cached snapshot.
func (s *Service) GetSellerName(ctx context.Context, sellerID, marketplace string) (string, bool) {
	mp, err := s.resolve(sellerID, marketplace)
	if err != nil {
		slog.Error("seller name unavailable", slog.String("seller_id", sellerID), slog.Any("error", err))
		return "", false
	}
	if cached, ok := s.store.Get(ctx, sellerID, mp.Suffix); ok && cached.SellerName != models.UnknownSeller {
		return cached.SellerName, true
	}

	fetcher, err := s.newFetcher(s.cfg, mp, s.metrics)
	if err != nil {
		slog.Error("build fetcher", slog.Any("error", err))
		return "", false
	}
	name, ok, err := scraper.NewWalker(fetcher, s.catalog, s.cfg, s.metrics).SellerName(ctx, sellerID, mp.Suffix)
	if err != nil {
		slog.Error("seller name unavailable", slog.String("seller_id", sellerID), slog.Any("error", err))
		return "", false
	}
	return name, ok
}

// Scan returns the cached snapshot when fresh and forceRefresh is unset,
// otherwise walks the storefront. Complete, non-empty results replace the
// cached entry. Errors are limited to malformed input and setup failures.
func (s *Service) Scan(ctx context.Context, sellerID, marketplace string, forceRefresh bool) (*models.InventorySnapshot, error) {
	mp, err := s.resolve(sellerID, marketplace)
	if err != nil {
		return nil, err
	}

	if !forceRefresh {
		if cached, ok := s.store.Get(ctx, sellerID, mp.Suffix); ok {
			s.metrics.IncCacheLookup("hit")
			slog.Info("serving cached snapshot",
				slog.String("seller_id", sellerID),
				slog.String("marketplace", mp.Suffix),
				slog.Int("products", cached.ProductCount),
				slog.Time("captured_at", cached.CapturedAt),
			)
			return cached, nil
		}
		s.metrics.IncCacheLookup("miss")
	} else {
		s.metrics.IncCacheLookup("bypass")
	}

	fetcher, err := s.newFetcher(s.cfg, mp, s.metrics)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}
	snapshot, err := scraper.NewWalker(fetcher, s.catalog, s.cfg, s.metrics).Scan(ctx, sellerID, mp.Suffix)
	if err != nil {
		return nil, err
	}

	switch {
	case snapshot.Partial:
		slog.Warn("partial scan not cached", slog.String("scan_id", snapshot.ScanID))
	case snapshot.ProductCount == 0:
		slog.Warn("empty scan not cached", slog.String("scan_id", snapshot.ScanID))
	default:
		if err := s.store.Put(ctx, snapshot); err != nil {
			slog.Error("cache write failed", slog.String("scan_id", snapshot.ScanID), slog.Any("error", err))
		}
	}
	return snapshot, nil
}

// ScanMany runs requests with at most workers scans in flight. Each scan
// owns its Fetcher and dedup state; results keep request order.
func (s *Service) ScanMany(ctx context.Context, requests []Request, workers int) []Result {
	if workers <= 0 {
		workers = s.cfg.Workers
	}
	results := make([]Result, len(requests))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, req := range requests {
		g.Go(func() error {
			results[i].Request = req
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Snapshot, results[i].Err = s.Scan(ctx, req.SellerID, req.Marketplace, req.ForceRefresh)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) resolve(sellerID, marketplace string) (models.Marketplace, error) {
	if err := models.ValidateSellerID(sellerID); err != nil {
		return models.Marketplace{}, err
	}
	if strings.TrimSpace(marketplace) == "" {
		marketplace = s.cfg.Marketplace
	}
	return models.LookupMarketplace(marketplace)
}
