package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidMarketplace is returned for marketplace suffixes outside the registry.
	ErrInvalidMarketplace = errors.New("invalid marketplace")
	// ErrInvalidSellerID is returned for seller ids that cannot name a storefront.
	ErrInvalidSellerID = errors.New("invalid seller id")
)

// Marketplace describes one regional storefront.
type Marketplace struct {
	Suffix        string
	Host          string
	MarketplaceID string
	Currency      string
	Language      string
	Locale        string
}

// marketplaces is keyed by the domain suffix callers pass in ("co.uk", "de").
var marketplaces = map[string]Marketplace{
	"com":    {Suffix: "com", Host: "www.amazon.com", MarketplaceID: "ATVPDKIKX0DER", Currency: "USD", Language: "en-US,en;q=0.9", Locale: "en_US"},
	"ca":     {Suffix: "ca", Host: "www.amazon.ca", MarketplaceID: "A2EUQ1WTGCTBG2", Currency: "CAD", Language: "en-CA,en;q=0.9", Locale: "en_CA"},
	"co.uk":  {Suffix: "co.uk", Host: "www.amazon.co.uk", MarketplaceID: "A1F83G8C2ARO7P", Currency: "GBP", Language: "en-GB,en-US;q=0.9,en;q=0.8", Locale: "en_GB"},
	"de":     {Suffix: "de", Host: "www.amazon.de", MarketplaceID: "A1PA6795UKMFR9", Currency: "EUR", Language: "de-DE,de;q=0.9,en;q=0.8", Locale: "de_DE"},
	"fr":     {Suffix: "fr", Host: "www.amazon.fr", MarketplaceID: "A13V1IB3VIYZZH", Currency: "EUR", Language: "fr-FR,fr;q=0.9,en;q=0.8", Locale: "fr_FR"},
	"es":     {Suffix: "es", Host: "www.amazon.es", MarketplaceID: "A1RKKUPIHCS9HS", Currency: "EUR", Language: "es-ES,es;q=0.9,en;q=0.8", Locale: "es_ES"},
	"it":     {Suffix: "it", Host: "www.amazon.it", MarketplaceID: "APJ6JRA9NG5V4", Currency: "EUR", Language: "it-IT,it;q=0.9,en;q=0.8", Locale: "it_IT"},
	"in":     {Suffix: "in", Host: "www.amazon.in", MarketplaceID: "A21TJRUUN4KGV", Currency: "INR", Language: "en-IN,en;q=0.9", Locale: "en_IN"},
	"co.jp":  {Suffix: "co.jp", Host: "www.amazon.co.jp", MarketplaceID: "A1VC38T7YXB528", Currency: "JPY", Language: "ja-JP,ja;q=0.9,en;q=0.8", Locale: "ja_JP"},
	"com.au": {Suffix: "com.au", Host: "www.amazon.com.au", MarketplaceID: "A39IBJ37TRP1C6", Currency: "AUD", Language: "en-AU,en;q=0.9", Locale: "en_AU"},
	"com.br": {Suffix: "com.br", Host: "www.amazon.com.br", MarketplaceID: "A2Q3Y263D00KWC", Currency: "BRL", Language: "pt-BR,pt;q=0.9,en;q=0.8", Locale: "pt_BR"},
	"com.mx": {Suffix: "com.mx", Host: "www.amazon.com.mx", MarketplaceID: "A1AM78C64UM0Y8", Currency: "MXN", Language: "es-MX,es;q=0.9,en;q=0.8", Locale: "es_MX"},
	"ae":     {Suffix: "ae", Host: "www.amazon.ae", MarketplaceID: "A2VIGQ35RCS4UG", Currency: "AED", Language: "en-AE,en;q=0.9,ar;q=0.8", Locale: "en_AE"},
	"sg":     {Suffix: "sg", Host: "www.amazon.sg", MarketplaceID: "A19VAU5U5O7RUS", Currency: "SGD", Language: "en-SG,en;q=0.9", Locale: "en_SG"},
}

// LookupMarketplace resolves a domain suffix such as "co.uk".
func LookupMarketplace(suffix string) (Marketplace, error) {
	normalized := strings.ToLower(strings.TrimSpace(suffix))
	normalized = strings.TrimPrefix(normalized, ".")
	if mp, ok := marketplaces[normalized]; ok {
		return mp, nil
	}
	return Marketplace{}, fmt.Errorf("%w: %q", ErrInvalidMarketplace, suffix)
}

// Marketplaces returns the supported suffixes in sorted order.
func Marketplaces() []string {
	out := make([]string, 0, len(marketplaces))
	for suffix := range marketplaces {
		out = append(out, suffix)
	}
	sort.Strings(out)
	return out
}

// BaseURL is the storefront root, e.g. https://www.amazon.co.uk.
func (m Marketplace) BaseURL() string {
	return "https://" + m.Host
}

// DetailURL derives the product page for an item id.
func (m Marketplace) DetailURL(id string) string {
	return m.BaseURL() + "/dp/" + id
}

// ValidateSellerID rejects ids that are empty or contain anything but ASCII
// letters and digits.
func ValidateSellerID(id string) error {
	if len(id) == 0 || len(id) > 32 {
		return fmt.Errorf("%w: %q must be 1-32 characters", ErrInvalidSellerID, id)
	}
	for _, r := range id {
		if !isAlnum(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidSellerID, id, r)
		}
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
