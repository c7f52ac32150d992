package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// Page is a parsed storefront document. All methods are read-only.
type Page struct {
	doc *goquery.Document
	raw string
}

// ParsePage parses one HTML document.
func ParsePage(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{doc: doc, raw: string(body)}, nil
}

// ExtractProducts parses body and returns the products it lists.
func ExtractProducts(body []byte, sellerID string, mp models.Marketplace) []models.ProductRecord {
	page, err := ParsePage(body)
	if err != nil {
		return nil
	}
	products, _ := page.Products(sellerID, mp, models.UnknownSeller)
	return products
}

// ExtractSellerName parses body and returns the storefront display name.
func ExtractSellerName(body []byte) (string, bool) {
	page, err := ParsePage(body)
	if err != nil {
		return "", false
	}
	return page.SellerName()
}

// Products returns the records found by the first strategy matching any
// element, along with that strategy's name. Elements without a valid id,
// promoted elements and elements without a title are skipped.
func (p *Page) Products(sellerID string, mp models.Marketplace, sellerName string) ([]models.ProductRecord, string) {
	for _, strategy := range ProductStrategies {
		elements := p.doc.Find(strategy.Selector)
		if elements.Length() == 0 {
			continue
		}

		seen := make(map[string]struct{}, elements.Length())
		var products []models.ProductRecord
		elements.Each(func(_ int, el *goquery.Selection) {
			id := itemID(el)
			if !IsValidItemID(id) {
				return
			}
			if _, dup := seen[id]; dup {
				return
			}
			if isSponsored(el) {
				return
			}
			title := firstText(el, TitleSelectors)
			if title == "" {
				return
			}
			seen[id] = struct{}{}
			products = append(products, models.ProductRecord{
				ID:          id,
				Title:       title,
				PriceText:   firstText(el, PriceSelectors),
				DetailURL:   mp.DetailURL(id),
				Marketplace: mp.Suffix,
				SellerID:    sellerID,
				SellerName:  sellerName,
			})
		})
		return products, strategy.Name
	}
	return nil, ""
}

// SellerName resolves the storefront display name.
func (p *Page) SellerName() (string, bool) {
	for _, selector := range SellerNameSelectors {
		if name := NormalizeText(p.doc.Find(selector).First().Text()); name != "" {
			return name, true
		}
	}
	return nameFromTitle(NormalizeText(p.doc.Find("title").First().Text()))
}

// HasNextPage reports whether an enabled "next page" control exists.
func (p *Page) HasNextPage() bool {
	if next := p.doc.Find(".s-pagination-next").First(); next.Length() > 0 {
		if !next.Is("a") || next.HasClass("s-pagination-disabled") {
			return false
		}
		return next.AttrOr("aria-disabled", "") != "true"
	}

	last := p.doc.Find(".a-pagination .a-last").First()
	if last.Length() == 0 || last.HasClass("a-disabled") {
		return false
	}
	return last.Find("a").Length() > 0
}

// InvalidStorefront reports whether the page says the listing does not exist.
func (p *Page) InvalidStorefront() bool {
	return containsAny(p.raw, invalidStorefrontMarkers) || containsAny(p.doc.Text(), invalidStorefrontMarkers)
}

// RobotCheck reports whether the page is a captcha interstitial.
func (p *Page) RobotCheck() bool {
	return containsAny(p.raw, robotCheckMarkers)
}

// IsRobotCheck is RobotCheck on a raw body without building a document.
func IsRobotCheck(body []byte) bool {
	return containsAny(string(body), robotCheckMarkers)
}

func itemID(el *goquery.Selection) string {
	if id := strings.TrimSpace(el.AttrOr("data-asin", "")); id != "" {
		return id
	}
	props, ok := el.Attr("data-component-props")
	if !ok || !strings.Contains(props, "asin") {
		return ""
	}
	var decoded struct {
		ASIN string `json:"asin"`
	}
	if err := json.Unmarshal([]byte(props), &decoded); err != nil {
		return ""
	}
	return strings.TrimSpace(decoded.ASIN)
}

func isSponsored(el *goquery.Selection) bool {
	if el.HasClass("AdHolder") || el.AttrOr("data-component-type", "") == "sp-sponsored-result" {
		return true
	}
	if strings.Contains(el.Find("span.s-label-popover-default").Text(), "Sponsored") {
		return true
	}
	for _, selector := range sponsoredSelectors {
		if el.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}

func firstText(el *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := NormalizeText(el.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func nameFromTitle(title string) (string, bool) {
	if title == "" {
		return "", false
	}
	for _, sep := range titleSeparators {
		if !strings.Contains(title, sep) {
			continue
		}
		for _, segment := range strings.Split(title, sep) {
			segment = strings.TrimSpace(segment)
			if segment == "" || strings.Contains(strings.ToLower(segment), "amazon") {
				continue
			}
			return segment, true
		}
		return "", false
	}
	return "", false
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
