package config

import (
	"fmt"
	"net/url"
	"time"
)

// FetchPolicy holds the retry and pacing knobs shared by every fetch.
type FetchPolicy struct {
	MaxAttempts                int
	Timeout                    time.Duration
	RequestDelayMin            time.Duration
	RequestDelayMax            time.Duration
	PageDelayMin               time.Duration
	PageDelayMax               time.Duration
	RetryBackoff               time.Duration
	RetryBackoffMax            time.Duration
	RateLimitBackoffMultiplier float64
	ForbiddenBackoffMultiplier float64
}

// Config holds scanner configuration.
type Config struct {
	Marketplace           string
	Fetch                 FetchPolicy
	Relays                []string
	ProductivityThreshold int
	ExtendedPageCeiling   int
	TemplatesFile         string
	CacheDir              string
	CacheBackend          string // file or sqlite
	CacheMemorySize       int
	FreshnessWindow       time.Duration
	Workers               int
	OutputFile            string
	OutputFormat          string // json, jsonl, or csv
	MetricsAddr           string
	Verbose               bool
	RespectRobotsTxt      bool
}

// DefaultFetchPolicy returns the pacing used against live storefronts.
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{
		MaxAttempts:                3,
		Timeout:                    20 * time.Second,
		RequestDelayMin:            2 * time.Second,
		RequestDelayMax:            5 * time.Second,
		PageDelayMin:               3 * time.Second,
		PageDelayMax:               7 * time.Second,
		RetryBackoff:               2 * time.Second,
		RetryBackoffMax:            time.Minute,
		RateLimitBackoffMultiplier: 1,
		ForbiddenBackoffMultiplier: 2,
	}
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		Marketplace:           "co.uk",
		Fetch:                 DefaultFetchPolicy(),
		ProductivityThreshold: 100,
		ExtendedPageCeiling:   15,
		CacheDir:              "data/cache",
		CacheBackend:          "file",
		CacheMemorySize:       128,
		FreshnessWindow:       12 * time.Hour,
		Workers:               2,
		OutputFile:            "-",
		OutputFormat:          "json",
		Verbose:               false,
		RespectRobotsTxt:      false,
	}
}

// Validate ensures the fetch policy is coherent.
func (p FetchPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if p.RequestDelayMin < 0 || p.RequestDelayMax < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if p.RequestDelayMin > p.RequestDelayMax {
		return fmt.Errorf("request delay min (%s) cannot exceed max (%s)", p.RequestDelayMin, p.RequestDelayMax)
	}
	if p.PageDelayMin < 0 || p.PageDelayMax < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if p.PageDelayMin > p.PageDelayMax {
		return fmt.Errorf("page delay min (%s) cannot exceed max (%s)", p.PageDelayMin, p.PageDelayMax)
	}
	if p.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if p.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if p.RetryBackoffMax > 0 && p.RetryBackoff > p.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", p.RetryBackoff, p.RetryBackoffMax)
	}
	if p.RateLimitBackoffMultiplier <= 0 {
		return fmt.Errorf("rate limit backoff multiplier must be positive")
	}
	if p.ForbiddenBackoffMultiplier <= 0 {
		return fmt.Errorf("forbidden backoff multiplier must be positive")
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Marketplace == "" {
		return fmt.Errorf("marketplace cannot be empty")
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch policy: %w", err)
	}
	for _, relay := range c.Relays {
		parsed, err := url.Parse(relay)
		if err != nil {
			return fmt.Errorf("invalid relay %q: %w", relay, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("relay %q must include scheme and host", relay)
		}
	}
	if c.ProductivityThreshold <= 0 {
		return fmt.Errorf("productivity threshold must be positive")
	}
	if c.ExtendedPageCeiling < 0 {
		return fmt.Errorf("extended page ceiling cannot be negative")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache dir cannot be empty")
	}
	if c.CacheBackend != "file" && c.CacheBackend != "sqlite" {
		return fmt.Errorf("cache backend must be file or sqlite")
	}
	if c.CacheMemorySize < 0 {
		return fmt.Errorf("cache memory size cannot be negative")
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "jsonl" && c.OutputFormat != "csv" {
		return fmt.Errorf("output format must be json, jsonl, or csv")
	}
	return nil
}
