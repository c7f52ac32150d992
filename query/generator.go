package query

import (
	"iter"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// Variant is one template bound to a seller and marketplace.
type Variant struct {
	Index    int
	Template Template
	SellerID string
	Market   models.Marketplace

	base *strings.Replacer
}

// Query is one concrete URL for a variant page.
type Query struct {
	Variant string
	Page    int
	URL     string
}

// Generate yields the catalog's variants for a seller in catalog order.
func (c *Catalog) Generate(sellerID string, mp models.Marketplace) iter.Seq[Variant] {
	return func(yield func(Variant) bool) {
		base := strings.NewReplacer(
			PlaceholderHost, mp.Host,
			PlaceholderSellerID, sellerID,
			PlaceholderMarketplaceID, mp.MarketplaceID,
		)
		for i, t := range c.Templates {
			v := Variant{Index: i, Template: t, SellerID: sellerID, Market: mp, base: base}
			if !yield(v) {
				return
			}
		}
	}
}

// Queries flattens every variant's pages up to its ceiling.
func (c *Catalog) Queries(sellerID string, mp models.Marketplace) iter.Seq[Query] {
	return func(yield func(Query) bool) {
		for v := range c.Generate(sellerID, mp) {
			for q := range v.Pages(1, v.Template.Ceiling) {
				if !yield(q) {
					return
				}
			}
		}
	}
}

// Query renders the URL for page.
func (v Variant) Query(page int) Query {
	pattern := v.Template.Pattern
	if v.base != nil {
		pattern = v.base.Replace(pattern)
	}
	return Query{
		Variant: v.Template.Name,
		Page:    page,
		URL:     strings.ReplaceAll(pattern, PlaceholderPage, strconv.Itoa(page)),
	}
}

// Pages yields queries for pages from..to inclusive.
func (v Variant) Pages(from, to int) iter.Seq[Query] {
	return func(yield func(Query) bool) {
		if from < 1 {
			from = 1
		}
		for page := from; page <= to; page++ {
			if !yield(v.Query(page)) {
				return
			}
		}
	}
}

// SellerPageURL is the seller profile page used to resolve the display name.
func SellerPageURL(mp models.Marketplace, sellerID string) string {
	return mp.BaseURL() + "/sp?seller=" + sellerID
}
