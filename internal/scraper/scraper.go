// Package scraper implements the content-acquisition strategies and the
// dispatcher that selects exactly one of them per capture.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"LinkVault/internal/domain"
)

// Options bounds a single scrape.
type Options struct {
	Timeout   time.Duration
	MaxImages int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxImages <= 0 {
		o.MaxImages = 6
	}
	return o
}

// Strategy is one way of turning a URL into scraped content.
type Strategy interface {
	Name() string
	CanHandle(u *url.URL) bool
	Scrape(ctx context.Context, rawURL string, opts Options) (*domain.ScrapedContent, error)
}

// Dispatcher walks a fixed priority list of strategies and runs the first
// one that claims the URL. The web strategy sits last and claims
// everything, so dispatch is total for valid URLs.
type Dispatcher struct {
	strategies []Strategy
	opts       Options
	logger     *slog.Logger
}

// NewDispatcher fixes the strategy priority order.
func NewDispatcher(opts Options, logger *slog.Logger, strategies ...Strategy) *Dispatcher {
	return &Dispatcher{
		strategies: strategies,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// Scrape selects and runs exactly one strategy for rawURL.
func (d *Dispatcher) Scrape(ctx context.Context, rawURL string) (*domain.ScrapedContent, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.NewScrapeError(domain.ScrapeUnsupported, fmt.Errorf("parse url: %w", err))
	}

	for _, s := range d.strategies {
		if !s.CanHandle(u) {
			continue
		}
		d.debug("strategy selected", "strategy", s.Name(), "url", rawURL)
		content, err := s.Scrape(ctx, rawURL, d.opts)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
		}
		return content, nil
	}

	return nil, domain.NewScrapeError(domain.ScrapeUnsupported, fmt.Errorf("no strategy for %s", rawURL))
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
