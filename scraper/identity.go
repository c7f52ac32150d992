package scraper

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// Identity is a browser persona presented on one request.
type Identity struct {
	UserAgent string
	Family    string // chrome, edge, firefox, or safari
	Platform  string // Windows, macOS, or Linux
	Version   string
}

var identities = []Identity{
	{Family: "chrome", Platform: "Windows", Version: "124", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"},
	{Family: "chrome", Platform: "Windows", Version: "123", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"},
	{Family: "chrome", Platform: "macOS", Version: "124", UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"},
	{Family: "chrome", Platform: "Linux", Version: "122", UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"},
	{Family: "edge", Platform: "Windows", Version: "124", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0"},
	{Family: "firefox", Platform: "Windows", Version: "125", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0"},
	{Family: "firefox", Platform: "macOS", Version: "125", UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:125.0) Gecko/20100101 Firefox/125.0"},
	{Family: "safari", Platform: "macOS", Version: "17", UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15"},
}

// RandomIdentity picks a persona uniformly.
func RandomIdentity() Identity {
	return identities[rand.IntN(len(identities))]
}

// Headers builds a header set consistent with the persona's browser family.
// Accept-Encoding is left to the transport so bodies arrive decompressed.
func (id Identity) Headers(mp models.Marketplace) http.Header {
	h := http.Header{}
	h.Set("User-Agent", id.UserAgent)
	h.Set("Accept-Language", mp.Language)
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Referer", mp.BaseURL()+"/")

	switch id.Family {
	case "chrome", "edge":
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
		brand := "Google Chrome"
		if id.Family == "edge" {
			brand = "Microsoft Edge"
		}
		h.Set("Sec-Ch-Ua", fmt.Sprintf(`"%s";v="%s", "Chromium";v="%s", "Not-A.Brand";v="99"`, brand, id.Version, id.Version))
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", strconv.Quote(id.Platform))
		setFetchMetadata(h)
		h.Set("Cache-Control", "max-age=0")
	case "firefox":
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		h.Set("DNT", "1")
		setFetchMetadata(h)
	default:
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	return h
}

func setFetchMetadata(h http.Header) {
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-User", "?1")
}

// sessionCookies mimics the cookies a browser holds after a first visit.
func sessionCookies(mp models.Marketplace, now time.Time) []*http.Cookie {
	sessionID := fmt.Sprintf("%03d-%07d-%07d", rand.IntN(1000), rand.IntN(10000000), rand.IntN(10000000))
	return []*http.Cookie{
		{Name: "session-id", Value: sessionID, Path: "/"},
		{Name: "session-id-time", Value: strconv.FormatInt(now.Unix(), 10), Path: "/"},
		{Name: "i18n-prefs", Value: mp.Currency, Path: "/"},
		{Name: "lc-main", Value: mp.Locale, Path: "/"},
	}
}
