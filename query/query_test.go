package query

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-seller-inventory/models"
)

func ukMarketplace(t *testing.T) models.Marketplace {
	t.Helper()
	mp, err := models.LookupMarketplace("co.uk")
	if err != nil {
		t.Fatalf("lookup marketplace: %v", err)
	}
	return mp
}

func TestDefaultCatalogValid(t *testing.T) {
	c := DefaultCatalog()
	if err := c.Validate(); err != nil {
		t.Fatalf("default catalog should validate, got %v", err)
	}

	kinds := make(map[Kind]int)
	for _, tpl := range c.Templates {
		kinds[tpl.Kind]++
	}
	for _, k := range []Kind{KindMerchant, KindMarketplace, KindWildcard, KindStorefront, KindCategory, KindSort} {
		if kinds[k] == 0 {
			t.Errorf("default catalog has no %s templates", k)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	mp := ukMarketplace(t)
	c := DefaultCatalog()

	collect := func() []string {
		var out []string
		for q := range c.Queries("A1SELLER01", mp) {
			out = append(out, q.URL)
		}
		return out
	}
	first, second := collect(), collect()
	if len(first) == 0 {
		t.Fatalf("no queries generated")
	}
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Fatalf("generation is not deterministic")
	}

	want := "https://www.amazon.co.uk/s?i=merchant-items&me=A1SELLER01&page=1"
	if first[0] != want {
		t.Fatalf("first query = %q, want %q", first[0], want)
	}

	total := 0
	for _, tpl := range c.Templates {
		total += tpl.Ceiling
	}
	if len(first) != total {
		t.Fatalf("queries=%d, want %d", len(first), total)
	}
}

func TestVariantQuery(t *testing.T) {
	mp := ukMarketplace(t)
	var variants []Variant
	for v := range DefaultCatalog().Generate("A1SELLER01", mp) {
		variants = append(variants, v)
	}

	byName := make(map[string]Variant, len(variants))
	for i, v := range variants {
		if v.Index != i {
			t.Fatalf("variant %q index=%d, want %d", v.Template.Name, v.Index, i)
		}
		byName[v.Template.Name] = v
	}

	tests := []struct {
		name string
		page int
		want string
	}{
		{name: "marketplace-id", page: 3, want: "https://www.amazon.co.uk/s?me=A1SELLER01&marketplaceID=A1F83G8C2ARO7P&page=3"},
		{name: "shops", page: 2, want: "https://www.amazon.co.uk/shops/A1SELLER01/page/2"},
		{name: "category-toys", page: 1, want: "https://www.amazon.co.uk/s?i=merchant-items&me=A1SELLER01&rh=n%3A560798&page=1"},
		{name: "sort-price-asc", page: 4, want: "https://www.amazon.co.uk/s?i=merchant-items&me=A1SELLER01&s=price-asc-rank&page=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := byName[tt.name]
			if !ok {
				t.Fatalf("variant %q missing", tt.name)
			}
			if got := v.Query(tt.page).URL; got != tt.want {
				t.Fatalf("url=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestVariantPagesStopsEarly(t *testing.T) {
	mp := ukMarketplace(t)
	var v Variant
	for first := range DefaultCatalog().Generate("A1SELLER01", mp) {
		v = first
		break
	}

	var pages []int
	for q := range v.Pages(8, 15) {
		pages = append(pages, q.Page)
		if q.Page == 10 {
			break
		}
	}
	if len(pages) != 3 || pages[0] != 8 || pages[2] != 10 {
		t.Fatalf("pages=%v, want [8 9 10]", pages)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	data := `version: "2025.01"
templates:
  - name: merchant
    kind: merchant
    pattern: "https://{host}/s?me={seller_id}&page={page}"
    ceiling: 5
  - name: shops
    kind: storefront
    pattern: "https://{host}/shops/{seller_id}/page/{page}"
    ceiling: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if c.Version != "2025.01" || len(c.Templates) != 2 {
		t.Fatalf("unexpected catalog: %+v", c)
	}
	if c.Templates[1].Kind != KindStorefront || c.Templates[1].Ceiling != 2 {
		t.Fatalf("unexpected template: %+v", c.Templates[1])
	}
}

func TestParseCatalogRejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "no version",
			data:    "templates:\n  - {name: a, pattern: 'https://{host}/s?me={seller_id}&page={page}', ceiling: 1}\n",
			wantErr: "version",
		},
		{
			name:    "missing page",
			data:    "version: v1\ntemplates:\n  - {name: a, pattern: 'https://{host}/s?me={seller_id}', ceiling: 1}\n",
			wantErr: "{page}",
		},
		{
			name:    "duplicate",
			data:    "version: v1\ntemplates:\n  - {name: a, pattern: 'https://{host}/s?me={seller_id}&page={page}', ceiling: 1}\n  - {name: a, pattern: 'https://{host}/s?me={seller_id}&page={page}', ceiling: 1}\n",
			wantErr: "duplicate",
		},
		{
			name:    "zero ceiling",
			data:    "version: v1\ntemplates:\n  - {name: a, pattern: 'https://{host}/s?me={seller_id}&page={page}', ceiling: 0}\n",
			wantErr: "ceiling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.data)); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
