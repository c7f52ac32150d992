package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"

	"github.com/aluiziolira/go-seller-inventory/config"
	"github.com/aluiziolira/go-seller-inventory/models"
	"github.com/aluiziolira/go-seller-inventory/parser"
)

// OutcomeKind classifies the result of one Fetch call.
type OutcomeKind string

const (
	OutcomeOK               OutcomeKind = "ok"
	OutcomeRateLimited      OutcomeKind = "rate_limited"
	OutcomeForbidden        OutcomeKind = "forbidden"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeTransient        OutcomeKind = "transient_error"
	OutcomeExhaustedRetries OutcomeKind = "exhausted_retries"
)

// Outcome is the result of one Fetch call. Body is set only when Kind is OutcomeOK.
type Outcome struct {
	URL        string
	Kind       OutcomeKind
	StatusCode int
	Body       []byte
	Attempts   int
	Err        error
}

// OK reports whether the fetch returned a usable document.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeOK
}

// FetchOptions tune a single Fetch call.
type FetchOptions struct {
	// Attempts overrides the policy's MaxAttempts when positive.
	Attempts int
	// UseRelay routes the request through the relay pool when one is configured.
	UseRelay bool
	// Paginated selects the longer between-pages delay.
	Paginated bool
}

// Fetcher issues storefront GETs.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) Outcome
}

const responseKey = "response"

// CollyFetcher is the colly-backed Fetcher. It is meant to be owned by one
// scan at a time.
type CollyFetcher struct {
	policy  config.FetchPolicy
	market  models.Marketplace
	direct  *colly.Collector
	relayed *colly.Collector
	metrics *Metrics
	sleep   func(context.Context, time.Duration) error
}

// NewFetcher builds a fetcher for one marketplace.
func NewFetcher(cfg *config.Config, mp models.Marketplace, metrics *Metrics) (*CollyFetcher, error) {
	if err := cfg.Fetch.Validate(); err != nil {
		return nil, fmt.Errorf("fetch policy: %w", err)
	}

	direct, err := newCollector(cfg, mp)
	if err != nil {
		return nil, err
	}

	f := &CollyFetcher{
		policy:  cfg.Fetch,
		market:  mp,
		direct:  direct,
		metrics: metrics,
		sleep:   sleepContext,
	}

	if len(cfg.Relays) > 0 {
		relayed, err := newCollector(cfg, mp)
		if err != nil {
			return nil, err
		}
		switcher, err := proxy.RoundRobinProxySwitcher(cfg.Relays...)
		if err != nil {
			return nil, fmt.Errorf("configure relays: %w", err)
		}
		relayed.SetProxyFunc(switcher)
		f.relayed = relayed
	}
	return f, nil
}

func newCollector(cfg *config.Config, mp models.Marketplace) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(RandomIdentity().UserAgent),
	)
	collector.SetRequestTimeout(cfg.Fetch.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Fetch.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if err := collector.SetCookies(mp.BaseURL(), sessionCookies(mp, time.Now())); err != nil {
		return nil, fmt.Errorf("seed cookies: %w", err)
	}
	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})
	return collector, nil
}

// Fetch GETs rawURL with pacing, identity rotation and retries. It never
// fails outright; callers treat any non-OK outcome as "no data".
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) Outcome {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = f.policy.MaxAttempts
	}
	collector := f.direct
	relayed := opts.UseRelay && f.relayed != nil
	if relayed {
		collector = f.relayed
	}

	var last Outcome
	immediate := false
	for attempt := 1; attempt <= attempts; attempt++ {
		if !immediate {
			if err := f.sleep(ctx, f.pace(opts.Paginated)); err != nil {
				return Outcome{URL: rawURL, Kind: OutcomeTransient, Attempts: attempt - 1, Err: err}
			}
		}
		immediate = false

		identity := RandomIdentity()
		start := time.Now()
		status, body, err := f.do(collector, rawURL, identity)
		f.metrics.ObserveDuration(time.Since(start))

		classified := classifyResponse(err, status, body)
		kind := outcomeKind(classified)
		f.metrics.IncRequest(string(kind))
		last = Outcome{URL: rawURL, Kind: kind, StatusCode: status, Attempts: attempt, Err: classified}
		if kind == OutcomeOK {
			last.Body = body
			return last
		}

		f.metrics.IncError(errorTypeLabel(classified))
		if kind == OutcomeNotFound {
			return last
		}
		if attempt == attempts {
			break
		}

		f.metrics.IncRetries()
		delay := f.backoff(kind, attempt)
		if kind == OutcomeRateLimited && relayed {
			delay = 0
			immediate = true
		}
		slog.Warn("fetch attempt failed",
			slog.String("url", rawURL),
			slog.String("outcome", string(kind)),
			slog.Int("status", status),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("agent", identity.Family),
			slog.Duration("backoff", delay),
			slog.Any("error", classified),
		)
		if err := f.sleep(ctx, delay); err != nil {
			last.Err = err
			return last
		}
	}

	return Outcome{
		URL:        rawURL,
		Kind:       OutcomeExhaustedRetries,
		StatusCode: last.StatusCode,
		Attempts:   last.Attempts,
		Err:        last.Err,
	}
}

func (f *CollyFetcher) do(collector *colly.Collector, rawURL string, identity Identity) (int, []byte, error) {
	reqCtx := colly.NewContext()
	err := collector.Request(http.MethodGet, rawURL, nil, reqCtx, identity.Headers(f.market))
	resp, _ := reqCtx.GetAny(responseKey).(*colly.Response)
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return 0, nil, err
	}
	if resp.Request != nil && resp.Request.ProxyURL != "" {
		slog.Debug("fetched via relay", slog.String("url", rawURL), slog.String("relay", resp.Request.ProxyURL))
	}
	return resp.StatusCode, resp.Body, err
}

func (f *CollyFetcher) pace(paginated bool) time.Duration {
	if paginated {
		return jitter(f.policy.PageDelayMin, f.policy.PageDelayMax)
	}
	return jitter(f.policy.RequestDelayMin, f.policy.RequestDelayMax)
}

// backoff scales with attempt: exponential for rate limiting, linear
// otherwise, forbidden responses waiting longest.
func (f *CollyFetcher) backoff(kind OutcomeKind, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := f.policy.RetryBackoff

	var delay time.Duration
	switch kind {
	case OutcomeRateLimited:
		delay = time.Duration(float64(base) * f.policy.RateLimitBackoffMultiplier * float64(int64(1)<<(attempt-1)))
	case OutcomeForbidden:
		delay = time.Duration(float64(base) * f.policy.ForbiddenBackoffMultiplier * float64(attempt))
	default:
		delay = base*time.Duration(attempt) + jitter(0, base)
	}
	if max := f.policy.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func classifyResponse(err error, status int, body []byte) error {
	if err != nil {
		return classifyError(err, status)
	}
	if status == http.StatusOK {
		if parser.IsRobotCheck(body) {
			return ErrRateLimited{Status: status, Err: errors.New("robot check page")}
		}
		return nil
	}
	if classified := classifyError(nil, status); classified != nil {
		return classified
	}
	return fmt.Errorf("http status %d", status)
}

func outcomeKind(err error) OutcomeKind {
	if err == nil {
		return OutcomeOK
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return OutcomeRateLimited
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return OutcomeForbidden
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return OutcomeNotFound
	}
	return OutcomeTransient
}

func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
