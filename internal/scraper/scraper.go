// Package scraper fetches full listing pages for deep enrichment.
//
// Best-effort: many ATS pages (Greenhouse, Lever, …) render the description
// server-side and work well; sites that block bare clients are the reason for
// the browser-identifying request headers.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	fetchTimeout = 10 * time.Second

	// ContentCap bounds the text handed to re-analysis.
	ContentCap = 5000

	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
)

// Content is the text pulled out of a fetched listing page.
type Content struct {
	Title       string
	Description string
	URL         string
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper downloads and strips listing pages.
type Scraper struct {
	client HTTPClient
}

// New creates a Scraper with the default HTTP client and a bounded timeout.
func New() *Scraper {
	return &Scraper{client: &http.Client{Timeout: fetchTimeout}}
}

// NewWithClient creates a Scraper with a custom client (useful for testing).
func NewWithClient(client HTTPClient) *Scraper {
	return &Scraper{client: client}
}

// Fetch downloads url, removes non-content markup, prefers a semantic
// main-content region over the whole body, and truncates to ContentCap.
func (s *Scraper) Fetch(ctx context.Context, url string) (*Content, error) {
	if url == "" || !strings.HasPrefix(url, "http") {
		return nil, fmt.Errorf("not a fetchable url: %q", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s returned %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, footer, header").Remove()

	mainContent := strings.TrimSpace(
		doc.Find(`main, #content, .job-description, .description, [role="main"]`).Text())
	bodyContent := strings.TrimSpace(doc.Find("body").Text())

	description := bodyContent
	if len(mainContent) > 200 {
		description = mainContent
	}
	description = collapseWhitespace(description)
	if len(description) > ContentCap {
		// Back off to a rune boundary so the cut never leaves an invalid
		// UTF-8 tail.
		cut := ContentCap
		for cut > 0 && !utf8.RuneStart(description[cut]) {
			cut--
		}
		description = description[:cut]
	}

	return &Content{Title: title, Description: description, URL: url}, nil
}

// collapseWhitespace squashes runs of whitespace left behind by tag removal.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
