package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"LinkVault/internal/domain"
	"LinkVault/internal/sanitize"
)

const maxPDFBytes = 20 << 20

// DocumentScraper handles PDF links and academic preprint abstract pages.
// For abstract pages it extracts citation metadata first and then derives
// and fetches the binary document; if the document fetch fails after
// metadata succeeded it degrades to an abstract-only result.
type DocumentScraper struct {
	client *http.Client
	logger *slog.Logger
}

var _ Strategy = (*DocumentScraper)(nil)

// NewDocumentScraper wires an HTTP client; a nil client gets a bounded
// default.
func NewDocumentScraper(client *http.Client, logger *slog.Logger) *DocumentScraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &DocumentScraper{client: client, logger: logger}
}

// Name identifies the strategy in dispatcher logs.
func (d *DocumentScraper) Name() string {
	return "document"
}

// CanHandle claims .pdf suffixes, /pdf/ path markers, and preprint
// abstract pages.
func (d *DocumentScraper) CanHandle(u *url.URL) bool {
	p := strings.ToLower(u.Path)
	if strings.HasSuffix(p, ".pdf") || strings.Contains(p, "/pdf/") {
		return true
	}
	return isAbstractPage(u)
}

func isAbstractPage(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host != "arxiv.org" && !strings.HasSuffix(host, ".arxiv.org") {
		return false
	}
	return strings.HasPrefix(u.Path, "/abs/")
}

// Scrape extracts full document text, degrading to abstract-only when the
// binary is unreachable but the abstract page was readable.
func (d *DocumentScraper) Scrape(ctx context.Context, rawURL string, opts Options) (*domain.ScrapedContent, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeUnsupported, fmt.Errorf("parse url: %w", err))
	}

	if isAbstractPage(u) {
		return d.scrapeAbstractPage(ctx, u)
	}

	text, err := d.fetchDocumentText(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	return &domain.ScrapedContent{
		Title:    title,
		BodyText: text,
		Metadata: map[string]any{"kind": "pdf", "document_url": rawURL},
	}, nil
}

func (d *DocumentScraper) scrapeAbstractPage(ctx context.Context, u *url.URL) (*domain.ScrapedContent, error) {
	meta, metaErr := d.fetchCitationMeta(ctx, u.String())
	if metaErr != nil {
		d.debug("abstract metadata fetch failed", "url", u.String(), "error", metaErr)
	}

	docURL := ""
	if meta != nil && meta.pdfURL != "" {
		docURL = meta.pdfURL
	} else {
		// Fixed path substitution: /abs/<id> -> /pdf/<id>.
		derived := *u
		derived.Path = "/pdf/" + strings.TrimPrefix(u.Path, "/abs/")
		docURL = derived.String()
	}

	text, docErr := d.fetchDocumentText(ctx, docURL)
	if metaErr != nil && docErr != nil {
		return nil, metaErr
	}

	content := &domain.ScrapedContent{
		Metadata: map[string]any{"kind": "abstract", "document_url": docURL},
	}
	if meta != nil {
		content.Title = meta.title
		content.Description = meta.abstract
		content.AuthorName = strings.Join(meta.authors, ", ")
		content.PublishedAt = meta.published
	}

	switch {
	case docErr != nil:
		// Abstract-only degradation: keep the record instead of failing.
		d.debug("document fetch failed, degrading to abstract", "url", docURL, "error", docErr)
		content.BodyText = content.Description
		content.Metadata["abstract_only"] = true
	default:
		content.BodyText = text
		if content.Title == "" {
			content.Title = path.Base(u.Path)
		}
	}

	return content, nil
}

type citationMeta struct {
	title     string
	abstract  string
	authors   []string
	pdfURL    string
	published *time.Time
}

var citationDateLayouts = []string{"2006/01/02", "2006-01-02", "2006/01", "2006"}

func (d *DocumentScraper) fetchCitationMeta(ctx context.Context, pageURL string) (*citationMeta, error) {
	doc, err := d.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	meta := &citationMeta{}
	meta.title = metaContent(doc, "citation_title")
	meta.abstract = sanitize.Clean(metaContent(doc, "citation_abstract"))
	if meta.abstract == "" {
		meta.abstract = sanitize.Clean(doc.Find("blockquote.abstract").First().Text())
		meta.abstract = strings.TrimSpace(strings.TrimPrefix(meta.abstract, "Abstract:"))
	}
	doc.Find(`meta[name="citation_author"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			meta.authors = append(meta.authors, strings.TrimSpace(v))
		}
	})
	meta.pdfURL = metaContent(doc, "citation_pdf_url")

	dateText := metaContent(doc, "citation_date")
	if dateText == "" {
		dateText = metaContent(doc, "citation_online_date")
	}
	for _, layout := range citationDateLayouts {
		if parsed, err := time.Parse(layout, dateText); err == nil {
			parsed = parsed.UTC()
			meta.published = &parsed
			break
		}
	}

	if meta.title == "" && meta.abstract == "" {
		return nil, domain.NewScrapeError(domain.ScrapeParse, fmt.Errorf("no citation metadata on %s", pageURL))
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(v)
}

func (d *DocumentScraper) fetchHTML(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := d.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeParse, fmt.Errorf("parse html: %w", err))
	}
	return doc, nil
}

// fetchDocumentText downloads and extracts the full text of a PDF. The
// primary path keeps the complete text without truncation.
func (d *DocumentScraper) fetchDocumentText(ctx context.Context, docURL string) (string, error) {
	resp, err := d.get(ctx, docURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return "", domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("read document: %w", err))
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", domain.NewScrapeError(domain.ScrapeUnsupported, fmt.Errorf("%s is not a PDF document", docURL))
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.NewScrapeError(domain.ScrapeParse, fmt.Errorf("open pdf: %w", err))
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.NewScrapeError(domain.ScrapeParse, fmt.Errorf("extract pdf text: %w", err))
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", domain.NewScrapeError(domain.ScrapeParse, fmt.Errorf("read pdf text: %w", err))
	}

	return sanitize.Clean(string(text)), nil
}

func (d *DocumentScraper) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("request %s: %w", target, err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, domain.NewScrapeError(domain.ScrapeNetwork, fmt.Errorf("%s returned %s", target, resp.Status))
	}
	return resp, nil
}

func (d *DocumentScraper) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
