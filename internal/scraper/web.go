package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"LinkVault/internal/domain"
	"LinkVault/internal/sanitize"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxHTMLBytes     = 2 << 20
	defaultBodyLimit = 20000
)

// Selectors removed before body extraction: scripts, chrome, and comment
// sections carry no capture-worthy text.
var strippedSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	"#comments", ".comments", ".comment-section", ".sidebar",
}

// Containers preferred over raw body text, in order.
var contentSelectors = []string{"article", "main", "[role=main]"}

// WebScraper is the final-fallback strategy for arbitrary HTML pages.
type WebScraper struct {
	client    *http.Client
	logger    *slog.Logger
	bodyLimit int
}

var _ Strategy = (*WebScraper)(nil)

// NewWebScraper wires an HTTP client; bodyLimit <= 0 selects the default
// truncation size.
func NewWebScraper(client *http.Client, bodyLimit int, logger *slog.Logger) *WebScraper {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}
	return &WebScraper{client: client, logger: logger, bodyLimit: bodyLimit}
}

// Name identifies the strategy in dispatcher logs.
func (w *WebScraper) Name() string {
	return "web"
}

// CanHandle always claims the URL; the web scraper terminates the
// dispatcher's priority list.
func (w *WebScraper) CanHandle(_ *url.URL) bool {
	return true
}

// Scrape fetches the page and extracts metadata, body text, and media.
func (w *WebScraper) Scrape(ctx context.Context, rawURL string, opts Options) (*domain.ScrapedContent, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("fetch %s: %w", rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("%s returned %s", rawURL, resp.Status))
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("read body: %w", err))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeParse, fmt.Errorf("parse html: %w", err))
	}

	base := resp.Request.URL

	content := &domain.ScrapedContent{
		Title:       pickMeta(doc, []string{"og:title", "twitter:title"}, doc.Find("title").First().Text()),
		Description: pickMeta(doc, []string{"og:description", "twitter:description"}, nameMeta(doc, "description")),
		AuthorName:  firstNonEmpty(nameMeta(doc, "author"), propMeta(doc, "article:author")),
		PublishedAt: parsePublished(propMeta(doc, "article:published_time")),
		Images:      w.collectImages(doc, base, opts.MaxImages),
		Videos:      collectVideos(doc),
		Metadata:    map[string]any{"final_url": base.String()},
	}

	content.Title = sanitize.Clean(content.Title)
	content.Description = sanitize.Clean(content.Description)
	content.BodyText = sanitize.Truncate(w.extractBody(doc, html, base), w.bodyLimit)

	return content, nil
}

// extractBody prefers semantic containers, then readability extraction,
// then the stripped page body.
func (w *WebScraper) extractBody(doc *goquery.Document, html []byte, base *url.URL) string {
	cleaned := doc.Clone()
	for _, sel := range strippedSelectors {
		cleaned.Find(sel).Remove()
	}

	for _, sel := range contentSelectors {
		text := sanitize.Clean(cleaned.Find(sel).First().Text())
		if len(text) >= 80 {
			return text
		}
	}

	if article, err := readability.FromReader(bytes.NewReader(html), base); err == nil {
		if text := sanitize.Clean(article.TextContent); text != "" {
			return text
		}
	} else {
		w.debug("readability extraction failed", "url", base.String(), "error", err)
	}

	return sanitize.Clean(cleaned.Find("body").Text())
}

// collectImages prefers Open-Graph and Twitter-card images, then inline
// <img> sources, filtering tracking pixels and low-value formats.
func (w *WebScraper) collectImages(doc *goquery.Document, base *url.URL, limit int) []string {
	var candidates []string
	for _, prop := range []string{"og:image", "og:image:secure_url"} {
		doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok {
				candidates = append(candidates, v)
			}
		})
	}
	if v := pickMeta(doc, []string{"twitter:image"}, ""); v != "" {
		candidates = append(candidates, v)
	}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if tinyImage(s) {
			return
		}
		src, _ := s.Attr("src")
		candidates = append(candidates, src)
	})

	seen := map[string]struct{}{}
	var images []string
	for _, raw := range candidates {
		resolved := resolveURL(base, raw)
		if resolved == "" || !keepImage(resolved) {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		images = append(images, resolved)
		if len(images) >= limit {
			break
		}
	}
	return images
}

func collectVideos(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var videos []string
	for _, prop := range []string{"og:video", "og:video:url", "og:video:secure_url"} {
		doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).Each(func(_ int, s *goquery.Selection) {
			v, ok := s.Attr("content")
			if !ok || strings.TrimSpace(v) == "" {
				return
			}
			if _, dup := seen[v]; dup {
				return
			}
			seen[v] = struct{}{}
			videos = append(videos, v)
		})
	}
	return videos
}

// tinyImage drops obvious tracking pixels and icons by declared size.
func tinyImage(s *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		if v, ok := s.Attr(attr); ok {
			if n, err := strconv.Atoi(strings.TrimSuffix(v, "px")); err == nil && n <= 32 {
				return true
			}
		}
	}
	return false
}

var lowValueImageMarkers = []string{"pixel", "spacer", "1x1", "tracker", "beacon"}

func keepImage(u string) bool {
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "data:") {
		return false
	}
	for _, ext := range []string{".svg", ".ico", ".gif"} {
		if strings.HasSuffix(strings.SplitN(lower, "?", 2)[0], ext) {
			return false
		}
	}
	for _, marker := range lowValueImageMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// pickMeta walks Open-Graph/Twitter property names in priority order and
// falls back to the provided value.
func pickMeta(doc *goquery.Document, props []string, fallback string) string {
	for _, prop := range props {
		if v := propMeta(doc, prop); v != "" {
			return v
		}
		if v := nameMeta(doc, prop); v != "" {
			return v
		}
	}
	return strings.TrimSpace(fallback)
}

func propMeta(doc *goquery.Document, prop string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).First().Attr("content")
	return strings.TrimSpace(v)
}

func nameMeta(doc *goquery.Document, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(v)
}

var publishedLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parsePublished(value string) *time.Time {
	for _, layout := range publishedLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (w *WebScraper) debug(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
