package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aluiziolira/go-seller-inventory/config"
	"github.com/aluiziolira/go-seller-inventory/models"
	"github.com/aluiziolira/go-seller-inventory/query"
)

const (
	testSeller     = "S1"
	sellerPageHTML = `<html><head><title>Amazon.co.uk: Acme Ltd</title></head><body></body></html>`
	emptyPageHTML  = `<html><body><div class="s-main-slot"></div></body></html>`
	notFoundHTML   = `<html><body><h1>Sorry! We couldn't find that page</h1></body></html>`
)

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	calls   []string
	opts    []FetchOptions
	onFetch func(call int)
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string, opts FetchOptions) Outcome {
	s.mu.Lock()
	s.calls = append(s.calls, rawURL)
	s.opts = append(s.opts, opts)
	call := len(s.calls)
	body, ok := s.pages[rawURL]
	hook := s.onFetch
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if !ok {
		return Outcome{URL: rawURL, Kind: OutcomeExhaustedRetries, StatusCode: 503, Attempts: 3, Err: errors.New("blocked")}
	}
	return Outcome{URL: rawURL, Kind: OutcomeOK, StatusCode: 200, Body: []byte(body), Attempts: 1}
}

func (s *stubFetcher) called(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == rawURL {
			return true
		}
	}
	return false
}

func resultsPage(next bool, ids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="s-main-slot">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div data-asin="%s"><h2><a><span class="a-text-normal">Item %s</span></a></h2>`+
			`<span class="a-price"><span class="a-offscreen">£1.00</span></span></div>`, id, id)
	}
	b.WriteString(`</div>`)
	if next {
		b.WriteString(`<a class="s-pagination-next" href="?page=next">Next</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func testCatalog(ceiling int, names ...string) *query.Catalog {
	catalog := &query.Catalog{Version: "test"}
	for _, name := range names {
		catalog.Templates = append(catalog.Templates, query.Template{
			Name:    name,
			Kind:    query.KindMerchant,
			Pattern: "http://example.test/" + name + "?me={seller_id}&page={page}",
			Ceiling: ceiling,
		})
	}
	return catalog
}

func pageURL(variant string, page int) string {
	return fmt.Sprintf("http://example.test/%s?me=%s&page=%d", variant, testSeller, page)
}

func sellerURL(t *testing.T) string {
	t.Helper()
	mp, err := models.LookupMarketplace("co.uk")
	if err != nil {
		t.Fatalf("lookup marketplace: %v", err)
	}
	return query.SellerPageURL(mp, testSeller)
}

func TestWalkerScanDedupsAcrossVariants(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): resultsPage(true, "B00000000X", "B00000000Y"),
		pageURL("a", 2): emptyPageHTML,
		pageURL("b", 1): resultsPage(false, "B00000000X"),
	}}
	w := NewWalker(fetcher, testCatalog(3, "a", "b"), config.DefaultConfig(), NewMetrics())

	snapshot, err := w.Scan(context.Background(), testSeller, "co.uk")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if snapshot.ProductCount != 2 || len(snapshot.Products) != 2 {
		t.Fatalf("products = %d (count %d), want 2", len(snapshot.Products), snapshot.ProductCount)
	}
	if snapshot.SellerName != "Acme Ltd" {
		t.Fatalf("seller name = %q, want Acme Ltd", snapshot.SellerName)
	}
	for _, p := range snapshot.Products {
		if p.SellerName != "Acme Ltd" || p.SellerID != testSeller || p.Marketplace != "co.uk" {
			t.Fatalf("unexpected record %+v", p)
		}
		if p.DetailURL != "https://www.amazon.co.uk/dp/"+p.ID {
			t.Fatalf("detail url = %q", p.DetailURL)
		}
	}
	if snapshot.PagesCrawled != 2 {
		t.Fatalf("pages crawled = %d, want 2", snapshot.PagesCrawled)
	}
	if snapshot.Partial {
		t.Fatalf("complete scan marked partial")
	}
	if snapshot.ScanID == "" || snapshot.CapturedAt.IsZero() {
		t.Fatalf("scan id and capture time must be set")
	}
	if got := len(fetcher.calls); got != 4 {
		t.Fatalf("fetch calls = %d, want 4: %v", got, fetcher.calls)
	}
	if fetcher.called(pageURL("a", 3)) || fetcher.called(pageURL("b", 2)) {
		t.Fatalf("walker fetched past a stop signal: %v", fetcher.calls)
	}
	if !fetcher.opts[2].Paginated || fetcher.opts[1].Paginated {
		t.Fatalf("paginated flag should be set only past page 1: %+v", fetcher.opts)
	}
}

func TestWalkerScanTerminatesWhenEverythingFails(t *testing.T) {
	catalog := query.DefaultCatalog()
	fetcher := &stubFetcher{pages: map[string]string{}}
	w := NewWalker(fetcher, catalog, config.DefaultConfig(), nil)

	snapshot, err := w.Scan(context.Background(), testSeller, "co.uk")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(snapshot.Products) != 0 || snapshot.Products == nil {
		t.Fatalf("products = %v, want empty non-nil", snapshot.Products)
	}
	if snapshot.SellerName != models.UnknownSeller {
		t.Fatalf("seller name = %q, want %q", snapshot.SellerName, models.UnknownSeller)
	}
	if want := 1 + len(catalog.Templates); len(fetcher.calls) != want {
		t.Fatalf("fetch calls = %d, want %d", len(fetcher.calls), want)
	}
}

func TestWalkerScanCancelledReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &stubFetcher{pages: map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): resultsPage(true, "B00000000X", "B00000000Y"),
		pageURL("a", 2): resultsPage(true, "B00000000Z"),
	}}
	fetcher.onFetch = func(call int) {
		if call == 2 {
			cancel()
		}
	}
	w := NewWalker(fetcher, testCatalog(3, "a", "b"), config.DefaultConfig(), nil)

	snapshot, err := w.Scan(ctx, testSeller, "co.uk")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !snapshot.Partial {
		t.Fatalf("cancelled scan should be partial")
	}
	if len(snapshot.Products) != 2 {
		t.Fatalf("products = %d, want the 2 fetched before cancel", len(snapshot.Products))
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("fetch calls = %d, want no fetch after cancel", len(fetcher.calls))
	}
}

func TestWalkerScanStopsOnInvalidStorefront(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): notFoundHTML,
		pageURL("b", 1): resultsPage(false, "B00000000Q"),
	}}
	w := NewWalker(fetcher, testCatalog(3, "a", "b"), config.DefaultConfig(), NewMetrics())

	snapshot, err := w.Scan(context.Background(), testSeller, "co.uk")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(snapshot.Products) != 1 || snapshot.Products[0].ID != "B00000000Q" {
		t.Fatalf("products = %+v, want only B00000000Q", snapshot.Products)
	}
	if fetcher.called(pageURL("a", 2)) {
		t.Fatalf("walker continued past an invalid storefront page")
	}
}

func TestWalkerProductivityExtension(t *testing.T) {
	pages := map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): resultsPage(true, "B00000000A", "B00000000B"),
		pageURL("a", 2): resultsPage(true, "B00000000C", "B00000000D"),
		pageURL("a", 3): resultsPage(false, "B00000000E"),
		pageURL("a", 4): resultsPage(false, "B00000000F"),
	}
	// page 2 of a three-page variant fails; pages 4 and 5 lie past its ceiling.
	failing := map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): resultsPage(true, "B00000000A", "B00000000B", "B00000000C"),
		pageURL("a", 4): resultsPage(false, "B00000000D"),
	}
	emptied := map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): resultsPage(true, "B00000000A", "B00000000B", "B00000000C"),
		pageURL("a", 2): emptyPageHTML,
		pageURL("a", 4): resultsPage(false, "B00000000D"),
	}

	tests := []struct {
		name      string
		pages     map[string]string
		ceiling   int
		threshold int
		want      int
		page      int
		extended  bool
	}{
		{name: "productive variant extends", pages: pages, ceiling: 2, threshold: 3, want: 5, page: 3, extended: true},
		{name: "unproductive variant stops at ceiling", pages: pages, ceiling: 2, threshold: 10, want: 4, page: 3, extended: false},
		{name: "productive variant extends after fetch failure", pages: failing, ceiling: 3, threshold: 3, want: 4, page: 4, extended: true},
		{name: "empty page ends productive variant", pages: emptied, ceiling: 3, threshold: 3, want: 3, page: 4, extended: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.ProductivityThreshold = tt.threshold
			cfg.ExtendedPageCeiling = tt.ceiling + 2
			fetcher := &stubFetcher{pages: tt.pages}
			w := NewWalker(fetcher, testCatalog(tt.ceiling, "a"), cfg, nil)

			snapshot, err := w.Scan(context.Background(), testSeller, "co.uk")
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(snapshot.Products) != tt.want {
				t.Fatalf("products = %d, want %d", len(snapshot.Products), tt.want)
			}
			if got := fetcher.called(pageURL("a", tt.page)); got != tt.extended {
				t.Fatalf("fetched page %d = %v, want %v", tt.page, got, tt.extended)
			}
			if fetcher.called(pageURL("a", tt.ceiling+2)) {
				t.Fatalf("extension should stop at the last page signal")
			}
		})
	}
}

func TestWalkerScanRejectsBadInput(t *testing.T) {
	w := NewWalker(&stubFetcher{}, testCatalog(1, "a"), config.DefaultConfig(), nil)

	if _, err := w.Scan(context.Background(), "bad id!", "co.uk"); !errors.Is(err, models.ErrInvalidSellerID) {
		t.Fatalf("expected ErrInvalidSellerID, got %v", err)
	}
	if _, err := w.Scan(context.Background(), testSeller, "zz"); !errors.Is(err, models.ErrInvalidMarketplace) {
		t.Fatalf("expected ErrInvalidMarketplace, got %v", err)
	}
}

func TestWalkerSellerName(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{sellerURL(t): sellerPageHTML}}
	w := NewWalker(fetcher, nil, config.DefaultConfig(), nil)

	name, ok, err := w.SellerName(context.Background(), testSeller, "co.uk")
	if err != nil || !ok || name != "Acme Ltd" {
		t.Fatalf("SellerName = %q, %v, %v", name, ok, err)
	}

	missing := NewWalker(&stubFetcher{}, nil, config.DefaultConfig(), nil)
	if _, ok, err := missing.SellerName(context.Background(), testSeller, "co.uk"); ok || err != nil {
		t.Fatalf("unreachable seller page should be unresolved without error, got %v, %v", ok, err)
	}
}

func TestWalkerScanStopsOnRobotCheck(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		sellerURL(t):    sellerPageHTML,
		pageURL("a", 1): resultsPage(true, "B00000000A"),
		pageURL("a", 2): `<html><body><p>Enter the characters you see below</p>` + resultsPage(false, "B00000000B") + `</body></html>`,
		pageURL("b", 1): resultsPage(false, "B00000000C"),
	}}
	w := NewWalker(fetcher, testCatalog(3, "a", "b"), config.DefaultConfig(), NewMetrics())

	snapshot, err := w.Scan(context.Background(), testSeller, "co.uk")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	ids := make(map[string]bool, len(snapshot.Products))
	for _, p := range snapshot.Products {
		ids[p.ID] = true
	}
	if len(ids) != 2 || !ids["B00000000A"] || !ids["B00000000C"] {
		t.Fatalf("products = %v, want the captcha page skipped", ids)
	}
	if fetcher.called(pageURL("a", 3)) {
		t.Fatalf("walker continued past a robot check page")
	}
}
