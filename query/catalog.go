// Package query generates the ordered storefront queries probed for a seller.
package query

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind groups templates by the query shape they probe.
type Kind string

const (
	KindMerchant    Kind = "merchant"
	KindMarketplace Kind = "marketplace"
	KindWildcard    Kind = "wildcard"
	KindStorefront  Kind = "storefront"
	KindCategory    Kind = "category"
	KindSort        Kind = "sort"
)

// Placeholders recognised in template patterns.
const (
	PlaceholderHost          = "{host}"
	PlaceholderSellerID      = "{seller_id}"
	PlaceholderMarketplaceID = "{marketplace_id}"
	PlaceholderPage          = "{page}"
)

// Template is one URL pattern. Ceiling is the last page probed unless the
// walker extends it.
type Template struct {
	Name    string `yaml:"name"`
	Kind    Kind   `yaml:"kind"`
	Pattern string `yaml:"pattern"`
	Ceiling int    `yaml:"ceiling"`
}

// Catalog is a versioned, ordered list of templates.
type Catalog struct {
	Version   string     `yaml:"version"`
	Templates []Template `yaml:"templates"`
}

const (
	deepCeiling    = 100
	shallowCeiling = 7
)

// DefaultCatalog returns the built-in template list.
func DefaultCatalog() *Catalog {
	merchant := "https://{host}/s?i=merchant-items&me={seller_id}"
	templates := []Template{
		{Name: "merchant-items", Kind: KindMerchant, Pattern: merchant + "&page={page}", Ceiling: deepCeiling},
		{Name: "marketplace-id", Kind: KindMarketplace, Pattern: "https://{host}/s?me={seller_id}&marketplaceID={marketplace_id}&page={page}", Ceiling: deepCeiling},
		{Name: "wildcard", Kind: KindWildcard, Pattern: "https://{host}/s?k=*&me={seller_id}&page={page}", Ceiling: deepCeiling},
		{Name: "seller-refinement", Kind: KindMerchant, Pattern: "https://{host}/s?rh=p_6%3A{seller_id}&page={page}", Ceiling: shallowCeiling},
		{Name: "merchant-param", Kind: KindMerchant, Pattern: "https://{host}/s?merchant={seller_id}&page={page}", Ceiling: shallowCeiling},
		{Name: "merchant-seller-refinement", Kind: KindMerchant, Pattern: merchant + "&rh=p_6%3A{seller_id}&page={page}", Ceiling: shallowCeiling},
		{Name: "shops", Kind: KindStorefront, Pattern: "https://{host}/shops/{seller_id}/page/{page}", Ceiling: shallowCeiling},
		{Name: "stores", Kind: KindStorefront, Pattern: "https://{host}/stores/{seller_id}/page/{page}", Ceiling: shallowCeiling},
	}

	categories := []struct {
		name string
		node string
	}{
		{name: "beauty", node: "65801031"},
		{name: "electronics", node: "66280031"},
		{name: "clothing", node: "117332031"},
		{name: "toys", node: "560798"},
		{name: "books", node: "266239"},
		{name: "fashion", node: "1025612"},
		{name: "computers", node: "560800"},
		{name: "home-kitchen", node: "11052681"},
	}
	for _, c := range categories {
		templates = append(templates, Template{
			Name:    "category-" + c.name,
			Kind:    KindCategory,
			Pattern: merchant + "&rh=n%3A" + c.node + "&page={page}",
			Ceiling: shallowCeiling,
		})
	}

	sorts := []struct {
		name  string
		order string
	}{
		{name: "price-desc", order: "price-desc-rank"},
		{name: "price-asc", order: "price-asc-rank"},
		{name: "newest", order: "date-desc-rank"},
		{name: "rating", order: "review-rank"},
		{name: "relevance", order: "relevancerank"},
	}
	for _, s := range sorts {
		templates = append(templates, Template{
			Name:    "sort-" + s.name,
			Kind:    KindSort,
			Pattern: merchant + "&s=" + s.order + "&page={page}",
			Ceiling: shallowCeiling,
		})
	}

	return &Catalog{Version: "2024.06", Templates: templates}
}

// LoadCatalog reads a YAML catalog from path and validates it.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names are unique and every pattern is usable.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("catalog version cannot be empty")
	}
	if len(c.Templates) == 0 {
		return fmt.Errorf("catalog %s has no templates", c.Version)
	}
	names := make(map[string]struct{}, len(c.Templates))
	for i, t := range c.Templates {
		if t.Name == "" {
			return fmt.Errorf("template %d has no name", i)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("duplicate template name %q", t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Ceiling <= 0 {
			return fmt.Errorf("template %q ceiling must be positive", t.Name)
		}
		if !strings.HasPrefix(t.Pattern, "https://"+PlaceholderHost) && !strings.HasPrefix(t.Pattern, "http://") {
			return fmt.Errorf("template %q must start with https://%s", t.Name, PlaceholderHost)
		}
		for _, required := range []string{PlaceholderSellerID, PlaceholderPage} {
			if !strings.Contains(t.Pattern, required) {
				return fmt.Errorf("template %q is missing %s", t.Name, required)
			}
		}
	}
	return nil
}
