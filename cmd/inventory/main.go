package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-seller-inventory/cache"
	"github.com/aluiziolira/go-seller-inventory/config"
	"github.com/aluiziolira/go-seller-inventory/inventory"
	"github.com/aluiziolira/go-seller-inventory/models"
	"github.com/aluiziolira/go-seller-inventory/pipeline"
	"github.com/aluiziolira/go-seller-inventory/query"
	"github.com/aluiziolira/go-seller-inventory/scraper"
)

type target struct {
	sellers      []string
	marketplace  string
	forceRefresh bool
}

func main() {
	cfg, err := envConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	marketplace := flag.String("marketplace", cfg.Marketplace, "Marketplace domain suffix (co.uk, com, de, ...)")
	force := flag.Bool("force", false, "Ignore cached snapshots and rescan")
	nameOnly := flag.Bool("name", false, "Print the seller display name instead of products")
	outputFormat := flag.String("format", cfg.OutputFormat, "Output format: json, jsonl, or csv")
	outputFile := flag.String("output", cfg.OutputFile, "Output file path (- for stdout)")
	cacheDir := flag.String("cache-dir", cfg.CacheDir, "Snapshot cache directory")
	cacheBackend := flag.String("cache-backend", cfg.CacheBackend, "Snapshot cache backend: file or sqlite")
	freshness := flag.Duration("freshness", cfg.FreshnessWindow, "Maximum age of a cached snapshot")
	templates := flag.String("templates", cfg.TemplatesFile, "YAML query catalog replacing the built-in one")
	relays := flag.String("relays", strings.Join(cfg.Relays, ","), "Comma separated relay proxy URLs")
	attempts := flag.Int("attempts", cfg.Fetch.MaxAttempts, "Maximum attempts per URL")
	workers := flag.Int("workers", cfg.Workers, "Concurrent seller scans")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	respectRobots := flag.Bool("respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <seller_id[,seller_id...]> [marketplace] [force_refresh]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	tgt, err := parseTarget(flag.Args(), *marketplace, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	cfg.Marketplace = tgt.marketplace
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.OutputFile = *outputFile
	cfg.CacheDir = *cacheDir
	cfg.CacheBackend = strings.ToLower(*cacheBackend)
	cfg.FreshnessWindow = *freshness
	cfg.TemplatesFile = *templates
	cfg.Relays = config.SplitList(*relays)
	cfg.Fetch.MaxAttempts = *attempts
	cfg.Workers = *workers
	cfg.MetricsAddr = *metricsAddr
	cfg.RespectRobotsTxt = *respectRobots
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	catalog := query.DefaultCatalog()
	if cfg.TemplatesFile != "" {
		if catalog, err = query.LoadCatalog(cfg.TemplatesFile); err != nil {
			slog.Error("loading query catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}

	store, err := cache.Open(cfg)
	if err != nil {
		slog.Error("opening cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("close cache", slog.Any("error", err))
		}
	}()

	metrics := scraper.NewMetrics()
	svc, err := inventory.NewService(cfg, store, inventory.WithCatalog(catalog), inventory.WithMetrics(metrics))
	if err != nil {
		slog.Error("initialising service", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current page")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}()

	if *nameOnly {
		if !printNames(ctx, svc, tgt) {
			os.Exit(1)
		}
		return
	}

	startTime := time.Now()
	requests := make([]inventory.Request, 0, len(tgt.sellers))
	for _, seller := range tgt.sellers {
		requests = append(requests, inventory.Request{SellerID: seller, Marketplace: tgt.marketplace, ForceRefresh: tgt.forceRefresh})
	}
	slog.Info("starting scan",
		slog.Any("sellers", tgt.sellers),
		slog.String("marketplace", tgt.marketplace),
		slog.Bool("force_refresh", tgt.forceRefresh),
		slog.String("catalog", catalog.Version),
		slog.Int("workers", cfg.Workers),
	)
	results := svc.ScanMany(ctx, requests, cfg.Workers)

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile, os.Stdout)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			slog.Error("scan failed", slog.String("seller_id", result.Request.SellerID), slog.Any("error", result.Err))
			continue
		}
		if err := writer.Write(result.Snapshot.Products); err != nil {
			slog.Error("writing products", slog.Any("error", err))
			writer.Close()
			os.Exit(1)
		}
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(results, time.Since(startTime), cfg.OutputFile)
	if failed == len(results) {
		os.Exit(1)
	}
}

// envConfig applies INVENTORY_* environment overrides to the defaults.
func envConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if value, ok := config.EnvString("INVENTORY_MARKETPLACE"); ok {
		cfg.Marketplace = value
	}
	if value, ok := config.EnvString("INVENTORY_CACHE_DIR"); ok {
		cfg.CacheDir = value
	}
	if value, ok := config.EnvString("INVENTORY_CACHE_BACKEND"); ok {
		cfg.CacheBackend = value
	}
	if value, ok := config.EnvString("INVENTORY_TEMPLATES"); ok {
		cfg.TemplatesFile = value
	}
	if value, ok := config.EnvString("INVENTORY_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok := config.EnvString("INVENTORY_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvList("INVENTORY_RELAYS"); ok {
		cfg.Relays = value
	}
	if value, ok, err := config.EnvDuration("INVENTORY_FRESHNESS"); err != nil {
		return nil, fmt.Errorf("invalid INVENTORY_FRESHNESS: %w", err)
	} else if ok {
		cfg.FreshnessWindow = value
	}
	if value, ok, err := config.EnvInt("INVENTORY_ATTEMPTS"); err != nil {
		return nil, fmt.Errorf("invalid INVENTORY_ATTEMPTS: %w", err)
	} else if ok {
		cfg.Fetch.MaxAttempts = value
	}
	if value, ok, err := config.EnvInt("INVENTORY_WORKERS"); err != nil {
		return nil, fmt.Errorf("invalid INVENTORY_WORKERS: %w", err)
	} else if ok {
		cfg.Workers = value
	}
	if value, ok, err := config.EnvBool("INVENTORY_RESPECT_ROBOTS"); err != nil {
		return nil, fmt.Errorf("invalid INVENTORY_RESPECT_ROBOTS: %w", err)
	} else if ok {
		cfg.RespectRobotsTxt = value
	}
	return cfg, nil
}

// parseTarget reads "<seller_id[,seller_id...]> [marketplace] [force_refresh]".
func parseTarget(args []string, marketplace string, force bool) (target, error) {
	if len(args) == 0 || len(args) > 3 {
		return target{}, errors.New("expected a seller id")
	}
	tgt := target{
		sellers:      config.SplitList(args[0]),
		marketplace:  marketplace,
		forceRefresh: force,
	}
	if len(tgt.sellers) == 0 {
		return target{}, errors.New("expected a seller id")
	}
	if len(args) > 1 {
		tgt.marketplace = args[1]
	}
	if _, err := models.LookupMarketplace(tgt.marketplace); err != nil {
		return target{}, fmt.Errorf("%w (supported: %s)", err, strings.Join(models.Marketplaces(), ", "))
	}
	if len(args) > 2 {
		value, err := parseForce(args[2])
		if err != nil {
			return target{}, err
		}
		tgt.forceRefresh = tgt.forceRefresh || value
	}
	return tgt, nil
}

func parseForce(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "force", "force_refresh", "refresh":
		return true, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid force_refresh %q", raw)
	}
	return value, nil
}

func printNames(ctx context.Context, svc *inventory.Service, tgt target) bool {
	resolved := false
	for _, seller := range tgt.sellers {
		name, ok := svc.GetSellerName(ctx, seller, tgt.marketplace)
		if !ok {
			name = models.UnknownSeller
		} else {
			resolved = true
		}
		fmt.Printf("%s\t%s\n", seller, name)
	}
	return resolved
}

func printSummary(results []inventory.Result, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(os.Stderr, separator)
	fmt.Fprintln(os.Stderr, "Scan complete")
	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "  %-14s failed: %v\n", result.Request.SellerID, result.Err)
			continue
		}
		s := result.Snapshot
		status := "complete"
		if s.Partial {
			status = "partial"
		}
		fmt.Fprintf(os.Stderr, "  %-14s %-24s %5d products  %4d pages  %s\n",
			s.SellerID, s.SellerName, s.ProductCount, s.PagesCrawled, status)
	}
	fmt.Fprintf(os.Stderr, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Output:        %s\n", outputFile)
	fmt.Fprintln(os.Stderr, separator)
}

// newLogger writes to stderr; stdout carries the product output.
func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
