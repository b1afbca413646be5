package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
	"LinkVault/internal/sanitize"
)

// Processor executes the asynchronous half of a capture: scrape, enrich,
// persist, and embed. It runs on the queue worker, never on the caller.
type Processor struct {
	repo     ports.CaptureRepository
	scraper  ports.Scraper
	threads  ports.ThreadReconstructor
	embedder ports.Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// NewProcessor constructs the worker-side orchestrator.
func NewProcessor(repo ports.CaptureRepository, scraper ports.Scraper, threads ports.ThreadReconstructor, embedder ports.Embedder, logger *slog.Logger) *Processor {
	return &Processor{
		repo:     repo,
		scraper:  scraper,
		threads:  threads,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessCapture handles one queue delivery. Scrape failures are recorded
// on the capture and do not propagate; store failures do. Re-delivery of a
// completed capture is a no-op, and re-processing otherwise overwrites
// whole fields, so at-least-once delivery converges.
func (p *Processor) ProcessCapture(ctx context.Context, msg ports.CaptureMessage) error {
	rec, err := p.repo.Get(ctx, msg.CaptureID)
	if err != nil {
		return fmt.Errorf("load capture %s: %w", msg.CaptureID, err)
	}
	if rec.Status == domain.StatusComplete {
		p.debug("capture already complete, skipping", "capture_id", rec.ID, "trace_id", msg.TraceID)
		return nil
	}

	rec.Attempts++

	content, err := p.scraper.Scrape(ctx, rec.URL)
	if err != nil {
		p.warn("scrape failed", "capture_id", rec.ID, "trace_id", msg.TraceID, "error", err)
		return p.markFailed(ctx, rec, err)
	}

	p.applyScraped(rec, content)

	if rec.SourceType.IsSocial() && p.threads != nil {
		p.mergeThread(ctx, rec, msg.TraceID)
	}

	if !domain.CanTransition(rec.Status, domain.StatusComplete) {
		return fmt.Errorf("illegal transition %s -> %s for capture %s", rec.Status, domain.StatusComplete, rec.ID)
	}
	rec.Status = domain.StatusComplete
	rec.ErrorMessage = ""
	processedAt := p.now().UTC()
	rec.ProcessedAt = &processedAt

	if err := p.repo.UpdateProcessed(ctx, rec); err != nil {
		return fmt.Errorf("persist capture %s: %w", rec.ID, err)
	}

	// Embedding is an independent completion signal: its failure leaves a
	// complete record without a vector, picked up later by the backfill.
	if err := p.generateEmbedding(ctx, rec); err != nil {
		p.warn("embedding deferred", "capture_id", rec.ID, "trace_id", msg.TraceID, "error", err)
	}

	p.debug("capture processed", "capture_id", rec.ID, "trace_id", msg.TraceID, "attempts", rec.Attempts)
	return nil
}

func (p *Processor) applyScraped(rec *domain.ContentRecord, content *domain.ScrapedContent) {
	rec.Title = sanitize.Clean(content.Title)
	rec.Description = sanitize.Clean(content.Description)
	rec.BodyText = sanitize.Clean(content.BodyText)
	rec.AuthorName = sanitize.Clean(content.AuthorName)
	rec.AuthorHandle = sanitize.Clean(content.AuthorHandle)
	rec.PublishedAt = content.PublishedAt
	rec.Images = content.Images
	rec.Videos = content.Videos
	if len(content.Metadata) > 0 {
		rec.Metadata = content.Metadata
	} else {
		rec.Metadata = map[string]any{}
	}
}

// mergeThread enriches a social capture with the reconstructed thread.
// Reconstruction failure is tolerated; the scraped single post stands.
func (p *Processor) mergeThread(ctx context.Context, rec *domain.ContentRecord, traceID string) {
	bundle, err := p.threads.Reconstruct(ctx, rec.URL)
	if err != nil {
		p.warn("thread reconstruction failed", "capture_id", rec.ID, "trace_id", traceID, "error", err)
		return
	}

	if bundle.PostCount > 1 && bundle.FullText != "" {
		rec.BodyText = bundle.FullText
	}
	if rec.AuthorName == "" {
		rec.AuthorName = bundle.AuthorName
	}
	if rec.AuthorHandle == "" {
		rec.AuthorHandle = bundle.AuthorHandle
	}
	rec.Metadata["thread_provenance"] = string(bundle.Provenance)
	rec.Metadata["thread_post_count"] = bundle.PostCount
	if len(bundle.Links) > 0 {
		rec.Metadata["thread_links"] = bundle.Links
	}
}

func (p *Processor) markFailed(ctx context.Context, rec *domain.ContentRecord, cause error) error {
	if !domain.CanTransition(rec.Status, domain.StatusFailed) {
		return fmt.Errorf("illegal transition %s -> %s for capture %s", rec.Status, domain.StatusFailed, rec.ID)
	}
	rec.Status = domain.StatusFailed
	rec.ErrorMessage = cause.Error()
	processedAt := p.now().UTC()
	rec.ProcessedAt = &processedAt

	if err := p.repo.UpdateProcessed(ctx, rec); err != nil {
		return fmt.Errorf("persist failed capture %s: %w", rec.ID, err)
	}
	return nil
}

func (p *Processor) generateEmbedding(ctx context.Context, rec *domain.ContentRecord) error {
	if p.embedder == nil {
		return nil
	}

	input := BuildEmbeddingInput(rec)
	if input == "" {
		return nil
	}

	vector, err := p.embedder.Embed(ctx, input)
	if err != nil {
		return err
	}

	at := p.now().UTC()
	if err := p.repo.UpdateEmbedding(ctx, rec.ID, vector, at); err != nil {
		return fmt.Errorf("persist embedding: %w", err)
	}
	rec.Embedding = vector
	rec.EmbeddedAt = &at
	return nil
}

func (p *Processor) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Processor) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
