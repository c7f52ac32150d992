package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-seller-inventory/config"
	"github.com/aluiziolira/go-seller-inventory/models"
	"github.com/aluiziolira/go-seller-inventory/parser"
	"github.com/aluiziolira/go-seller-inventory/pipeline"
	"github.com/aluiziolira/go-seller-inventory/query"
)

// StopReason records why a variant walk ended.
type StopReason string

const (
	StopFetchFailed       StopReason = "fetch_failed"
	StopUnparseable       StopReason = "unparseable"
	StopInvalidStorefront StopReason = "invalid_storefront"
	StopRobotCheck        StopReason = "robot_check"
	StopEmptyPage         StopReason = "empty_page"
	StopLastPage          StopReason = "last_page"
	StopCeiling           StopReason = "ceiling"
	StopCancelled         StopReason = "cancelled"
)

// Walker drives one seller scan across every catalog variant. A Walker and
// its Fetcher belong to a single scan at a time.
type Walker struct {
	fetcher   Fetcher
	catalog   *query.Catalog
	threshold int
	extended  int
	metrics   *Metrics
	now       func() time.Time
}

type variantResult struct {
	pages  int
	added  int
	reason StopReason
}

// NewWalker binds a fetcher and catalog. A nil catalog uses DefaultCatalog.
func NewWalker(fetcher Fetcher, catalog *query.Catalog, cfg *config.Config, metrics *Metrics) *Walker {
	if catalog == nil {
		catalog = query.DefaultCatalog()
	}
	return &Walker{
		fetcher:   fetcher,
		catalog:   catalog,
		threshold: cfg.ProductivityThreshold,
		extended:  cfg.ExtendedPageCeiling,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Scan walks every variant for the seller and returns the deduplicated
// products. Only malformed input is an error; fetch and parse failures
// shrink the result. A cancelled ctx yields the partial snapshot so far.
func (w *Walker) Scan(ctx context.Context, sellerID, marketplace string) (*models.InventorySnapshot, error) {
	if err := models.ValidateSellerID(sellerID); err != nil {
		return nil, err
	}
	mp, err := models.LookupMarketplace(marketplace)
	if err != nil {
		return nil, err
	}

	scanID := uuid.NewString()
	logger := slog.With(
		slog.String("scan_id", scanID),
		slog.String("seller_id", sellerID),
		slog.String("marketplace", mp.Suffix),
	)
	start := w.now()
	logger.Info("scan started", slog.String("catalog", w.catalog.Version))

	name, ok := w.resolveName(ctx, sellerID, mp)
	if !ok {
		name = models.UnknownSeller
	}
	logger.Info("seller name", slog.String("seller_name", name), slog.Bool("resolved", ok))

	acc := pipeline.NewAccumulator()
	snapshot := &models.InventorySnapshot{
		ScanID:      scanID,
		SellerID:    sellerID,
		SellerName:  name,
		Marketplace: mp.Suffix,
	}

	for v := range w.catalog.Generate(sellerID, mp) {
		if ctx.Err() != nil {
			snapshot.Partial = true
			break
		}

		ceiling := v.Template.Ceiling
		res := w.walk(ctx, v, 1, ceiling, name, acc, logger)
		if w.extends(res, ceiling) {
			logger.Info("extending productive variant",
				slog.String("variant", v.Template.Name),
				slog.Int("added", res.added),
				slog.Int("ceiling", w.extended),
			)
			more := w.walk(ctx, v, ceiling+1, w.extended, name, acc, logger)
			res.pages += more.pages
			res.added += more.added
			res.reason = more.reason
		}
		snapshot.PagesCrawled += res.pages
		w.metrics.IncVariantStop(string(res.reason))

		logger.Debug("variant finished",
			slog.String("variant", v.Template.Name),
			slog.String("reason", string(res.reason)),
			slog.Int("pages", res.pages),
			slog.Int("added", res.added),
			slog.Int("total", acc.Len()),
		)
		if res.reason == StopCancelled {
			snapshot.Partial = true
			break
		}
	}

	snapshot.Products = acc.Products()
	snapshot.CapturedAt = w.now().UTC()
	snapshot.Normalize()

	stats := acc.Stats()
	status := "complete"
	if snapshot.Partial {
		status = "partial"
	}
	w.metrics.IncScan(status)
	logger.Info("scan finished",
		slog.String("status", status),
		slog.Int("products", snapshot.ProductCount),
		slog.Int("pages", snapshot.PagesCrawled),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("invalid", stats.Invalid),
		slog.Duration("elapsed", w.now().Sub(start)),
	)
	return snapshot, nil
}

// extends reports whether a variant earned pages past its ceiling: it added
// at least threshold new products and was not stopped by the storefront
// itself saying there is nothing more.
func (w *Walker) extends(res variantResult, ceiling int) bool {
	if res.added < w.threshold || w.extended <= ceiling {
		return false
	}
	return res.reason == StopCeiling || res.reason == StopFetchFailed
}

// SellerName fetches the seller profile page and extracts the display name.
func (w *Walker) SellerName(ctx context.Context, sellerID, marketplace string) (string, bool, error) {
	if err := models.ValidateSellerID(sellerID); err != nil {
		return "", false, err
	}
	mp, err := models.LookupMarketplace(marketplace)
	if err != nil {
		return "", false, err
	}
	name, ok := w.resolveName(ctx, sellerID, mp)
	return name, ok, nil
}

func (w *Walker) resolveName(ctx context.Context, sellerID string, mp models.Marketplace) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	out := w.fetcher.Fetch(ctx, query.SellerPageURL(mp, sellerID), FetchOptions{UseRelay: true})
	if !out.OK() {
		slog.Debug("seller page unavailable",
			slog.String("seller_id", sellerID),
			slog.String("outcome", string(out.Kind)),
			slog.Any("error", out.Err),
		)
		return "", false
	}
	return parser.ExtractSellerName(out.Body)
}

// walk fetches pages from..to of one variant, stopping at the first page that
// yields nothing or signals it is the last.
func (w *Walker) walk(ctx context.Context, v query.Variant, from, to int, sellerName string, acc *pipeline.Accumulator, logger *slog.Logger) variantResult {
	var res variantResult
	for q := range v.Pages(from, to) {
		if ctx.Err() != nil {
			res.reason = StopCancelled
			return res
		}

		out := w.fetcher.Fetch(ctx, q.URL, FetchOptions{UseRelay: true, Paginated: q.Page > 1})
		if !out.OK() {
			if ctx.Err() != nil {
				res.reason = StopCancelled
				return res
			}
			logger.Warn("variant page failed",
				slog.String("variant", q.Variant),
				slog.Int("page", q.Page),
				slog.String("outcome", string(out.Kind)),
				slog.Int("attempts", out.Attempts),
				slog.Any("error", out.Err),
			)
			res.reason = StopFetchFailed
			return res
		}

		page, err := parser.ParsePage(out.Body)
		if err != nil {
			logger.Warn("variant page unparseable",
				slog.String("variant", q.Variant),
				slog.Int("page", q.Page),
				slog.Any("error", err),
			)
			res.reason = StopUnparseable
			return res
		}
		if page.RobotCheck() {
			logger.Warn("robot check page",
				slog.String("variant", q.Variant),
				slog.Int("page", q.Page),
			)
			w.metrics.IncError("rate_limited")
			res.reason = StopRobotCheck
			return res
		}
		if page.InvalidStorefront() {
			logger.Info("storefront not found",
				slog.String("variant", q.Variant),
				slog.Any("error", fmt.Errorf("%s page %d: %w", q.Variant, q.Page, ErrInvalidStorefront)),
			)
			w.metrics.IncError(errorTypeLabel(ErrInvalidStorefront))
			res.reason = StopInvalidStorefront
			return res
		}

		products, strategy := page.Products(v.SellerID, v.Market, sellerName)
		if len(products) == 0 {
			res.reason = StopEmptyPage
			return res
		}

		added := acc.Add(products)
		res.pages++
		res.added += added
		w.metrics.IncPages()
		w.metrics.AddProducts(added)
		logger.Debug("page extracted",
			slog.String("variant", q.Variant),
			slog.Int("page", q.Page),
			slog.String("strategy", strategy),
			slog.Int("found", len(products)),
			slog.Int("added", added),
		)

		if !page.HasNextPage() {
			res.reason = StopLastPage
			return res
		}
	}
	res.reason = StopCeiling
	return res
}
