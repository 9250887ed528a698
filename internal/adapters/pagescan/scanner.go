package pagescan

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const DefaultTimeout = 30 * time.Second

// Canonicalizer maps a raw link to its canonical media locator, or "" when
// the link is not media.
type Canonicalizer func(raw string) string

// Scanner implements ports.LinkFinder by scraping iframes and anchors.
type Scanner struct {
	client    *http.Client
	canonical Canonicalizer
}

// NewScanner creates a new Scanner.
func NewScanner(canonical Canonicalizer, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scanner{
		client:    &http.Client{Timeout: timeout},
		canonical: canonical,
	}
}

// FindLinks returns the media locators embedded in or linked from pageURL,
// de-duplicated in document order. A page URL that is itself media is
// returned as the only candidate without fetching it.
func (s *Scanner) FindLinks(ctx context.Context, pageURL string) ([]string, error) {
	if c := s.canonical(pageURL); c != "" {
		return []string{c}, nil
	}

	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, errors.Errorf("invalid page URL: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse page")
	}

	seen := make(map[string]bool)
	links := make([]string, 0)
	collect := func(attr string) func(int, *goquery.Selection) {
		return func(_ int, sel *goquery.Selection) {
			raw, ok := sel.Attr(attr)
			if !ok || raw == "" {
				return
			}
			ref, err := base.Parse(raw)
			if err != nil {
				return
			}
			c := s.canonical(ref.String())
			if c == "" || seen[c] {
				return
			}
			seen[c] = true
			links = append(links, c)
		}
	}

	doc.Find("iframe[src]").Each(collect("src"))
	doc.Find("a[href]").Each(collect("href"))

	return links, nil
}
