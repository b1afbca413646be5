package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
)

func seedPending(t *testing.T, repo *fakeRepo, id string, sourceType domain.SourceType) *domain.ContentRecord {
	t.Helper()
	rec := &domain.ContentRecord{
		ID:         id,
		UserID:     "u1",
		URL:        "https://example.com/" + id,
		SourceType: sourceType,
		Status:     domain.StatusPending,
		CapturedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return rec
}

func TestProcessCaptureCompletesAndEmbeds(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	seedPending(t, repo, "cap-1", domain.SourceWeb)

	scraper := &fakeScraper{content: &domain.ScrapedContent{
		Title:       "Dependent Types\x00 in Practice",
		Description: "An introduction.",
		BodyText:    "Long form body.",
		AuthorName:  "A. Writer",
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	proc := NewProcessor(repo, scraper, nil, embedder, nil)

	msg := ports.CaptureMessage{CaptureID: "cap-1", TraceID: "t-1"}
	if err := proc.ProcessCapture(context.Background(), msg); err != nil {
		t.Fatalf("ProcessCapture: %v", err)
	}

	rec, _ := repo.Get(context.Background(), "cap-1")
	if rec.Status != domain.StatusComplete {
		t.Fatalf("status = %s, want complete", rec.Status)
	}
	if rec.Title != "Dependent Types in Practice" {
		t.Errorf("title = %q, control characters not stripped", rec.Title)
	}
	if rec.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", rec.Attempts)
	}
	if rec.ProcessedAt == nil {
		t.Error("processed_at not set")
	}
	if len(rec.Embedding) != 3 {
		t.Errorf("embedding = %v, want stored vector", rec.Embedding)
	}
	if len(embedder.inputs) != 1 || !strings.Contains(embedder.inputs[0], "Title: Dependent Types in Practice") {
		t.Errorf("embedding input = %q", embedder.inputs)
	}
}

func TestProcessCaptureRecordsScrapeFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	seedPending(t, repo, "cap-2", domain.SourceWeb)

	scraper := &fakeScraper{err: domain.NewScrapeError(domain.ScrapeNetwork, errors.New("connection refused"))}
	proc := NewProcessor(repo, scraper, nil, nil, nil)

	err := proc.ProcessCapture(context.Background(), ports.CaptureMessage{CaptureID: "cap-2"})
	if err != nil {
		t.Fatalf("scrape failure must not propagate, got %v", err)
	}

	rec, _ := repo.Get(context.Background(), "cap-2")
	if rec.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", rec.Status)
	}
	if !strings.Contains(rec.ErrorMessage, "connection refused") {
		t.Errorf("error message = %q", rec.ErrorMessage)
	}
	if rec.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", rec.Attempts)
	}
}

func TestProcessCaptureSkipsCompleted(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	rec := seedPending(t, repo, "cap-3", domain.SourceWeb)
	rec.Status = domain.StatusComplete
	repo.records["cap-3"] = rec

	scraper := &fakeScraper{content: &domain.ScrapedContent{Title: "should not be used"}}
	proc := NewProcessor(repo, scraper, nil, nil, nil)

	if err := proc.ProcessCapture(context.Background(), ports.CaptureMessage{CaptureID: "cap-3"}); err != nil {
		t.Fatalf("ProcessCapture: %v", err)
	}
	if scraper.calls != 0 {
		t.Errorf("scraper called %d times on completed capture", scraper.calls)
	}
}

func TestProcessCaptureMergesThread(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	seedPending(t, repo, "cap-4", domain.SourceTwitter)

	scraper := &fakeScraper{content: &domain.ScrapedContent{BodyText: "first post only"}}
	threads := &fakeThreads{bundle: domain.ThreadBundle{
		PostCount:    3,
		Texts:        []string{"one", "two", "three"},
		Links:        []string{"https://example.org/paper"},
		FullText:     "one\n\ntwo\n\nthree",
		Provenance:   domain.ProvenanceUnroll,
		AuthorName:   "Thread Author",
		AuthorHandle: "author",
	}}
	proc := NewProcessor(repo, scraper, threads, nil, nil)

	if err := proc.ProcessCapture(context.Background(), ports.CaptureMessage{CaptureID: "cap-4"}); err != nil {
		t.Fatalf("ProcessCapture: %v", err)
	}

	rec, _ := repo.Get(context.Background(), "cap-4")
	if rec.BodyText != "one\n\ntwo\n\nthree" {
		t.Errorf("body = %q, want full thread text", rec.BodyText)
	}
	if rec.AuthorName != "Thread Author" {
		t.Errorf("author = %q", rec.AuthorName)
	}
	if rec.Metadata["thread_provenance"] != string(domain.ProvenanceUnroll) {
		t.Errorf("provenance = %v", rec.Metadata["thread_provenance"])
	}
	if rec.Metadata["thread_post_count"] != 3 {
		t.Errorf("post count = %v", rec.Metadata["thread_post_count"])
	}
}

func TestProcessCaptureToleratesThreadFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	seedPending(t, repo, "cap-5", domain.SourceMastodon)

	scraper := &fakeScraper{content: &domain.ScrapedContent{BodyText: "single post"}}
	threads := &fakeThreads{err: errors.New("mirror unavailable")}
	proc := NewProcessor(repo, scraper, threads, nil, nil)

	if err := proc.ProcessCapture(context.Background(), ports.CaptureMessage{CaptureID: "cap-5"}); err != nil {
		t.Fatalf("ProcessCapture: %v", err)
	}

	rec, _ := repo.Get(context.Background(), "cap-5")
	if rec.Status != domain.StatusComplete {
		t.Fatalf("status = %s, want complete despite thread failure", rec.Status)
	}
	if rec.BodyText != "single post" {
		t.Errorf("body = %q, scraped post must stand", rec.BodyText)
	}
}

func TestProcessCaptureSkipsThreadsForNonSocial(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	seedPending(t, repo, "cap-6", domain.SourceWeb)

	threads := &fakeThreads{}
	proc := NewProcessor(repo, &fakeScraper{content: &domain.ScrapedContent{}}, threads, nil, nil)

	if err := proc.ProcessCapture(context.Background(), ports.CaptureMessage{CaptureID: "cap-6"}); err != nil {
		t.Fatalf("ProcessCapture: %v", err)
	}
	if threads.calls != 0 {
		t.Errorf("thread reconstructor called for web capture")
	}
}

func TestProcessCaptureEmbeddingFailureLeavesComplete(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	seedPending(t, repo, "cap-7", domain.SourceWeb)

	scraper := &fakeScraper{content: &domain.ScrapedContent{Title: "Paper"}}
	embedder := &fakeEmbedder{err: &domain.ProviderError{Provider: "embedding", Err: errors.New("429")}}
	proc := NewProcessor(repo, scraper, nil, embedder, nil)

	if err := proc.ProcessCapture(context.Background(), ports.CaptureMessage{CaptureID: "cap-7"}); err != nil {
		t.Fatalf("embedding failure must not fail the capture, got %v", err)
	}

	rec, _ := repo.Get(context.Background(), "cap-7")
	if rec.Status != domain.StatusComplete {
		t.Fatalf("status = %s, want complete", rec.Status)
	}
	if rec.Embedding != nil {
		t.Errorf("embedding = %v, want nil for backfill", rec.Embedding)
	}
}
