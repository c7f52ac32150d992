package parser

// Strategy is one markup layout for result grids.
type Strategy struct {
	Name     string
	Selector string
}

// ProductStrategies are tried in order; the first one matching any element wins.
var ProductStrategies = []Strategy{
	{Name: "data-asin", Selector: `div[data-asin]:not([data-asin=""])`},
	{Name: "result-item", Selector: `.s-result-item[data-asin]:not([data-asin=""])`},
	{Name: "col-inner", Selector: `.sg-col-inner div[data-asin]`},
	{Name: "section", Selector: `div.a-section[data-asin]`},
	{Name: "carousel", Selector: `li.a-carousel-card[data-asin]`},
	{Name: "search-result", Selector: `div[data-component-type="s-search-result"]`},
	{Name: "rush", Selector: `div.rush-component[data-asin]`},
	{Name: "main-slot", Selector: `.s-main-slot div[data-asin]`},
	{Name: "widget", Selector: `div[cel_widget_id*="MAIN-SEARCH_RESULTS"]`},
	{Name: "card", Selector: `div.s-card-container`},
	{Name: "legacy-grid", Selector: `div.s-result-list div.s-result-item`},
	{Name: "legacy-col", Selector: `div.sg-col-4-of-12`},
}

// TitleSelectors resolve a product title; the first non-empty match wins.
var TitleSelectors = []string{
	".a-text-normal",
	"h2 a span",
	".a-size-base-plus",
	".a-size-medium",
	"h2",
	"h5 a",
}

// PriceSelectors resolve the optional raw price text.
var PriceSelectors = []string{
	".a-price .a-offscreen",
	".a-price",
	".a-color-price",
}

// SellerNameSelectors are tried on the seller profile page before the <title> fallback.
var SellerNameSelectors = []string{
	"#sellerName",
	"#seller-name",
	"span.a-size-extra-large.a-text-bold",
	"h1.a-size-large",
	"span.a-size-extra-large",
	"h1.a-spacing-none",
	"h1 span",
}

// titleSeparators split "<seller>: Amazon.co.uk" style page titles.
var titleSeparators = []string{":", "|", "-", "–"}

var invalidStorefrontMarkers = []string{
	"Sorry! We couldn't find that page",
	"Sorry! We couldn’t find that page",
	"We're sorry",
	"We’re sorry",
	"Looking for something?",
}

var robotCheckMarkers = []string{
	"Enter the characters you see below",
	"/errors/validateCaptcha",
	"Type the characters you see in this image",
}

var sponsoredSelectors = []string{
	".puis-sponsored-label-text",
	".s-sponsored-label-text",
}
