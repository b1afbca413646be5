package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
)

// fakeRepo is an in-memory ports.CaptureRepository.
type fakeRepo struct {
	records map[string]*domain.ContentRecord
	failOn  map[string]error // method name -> error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]*domain.ContentRecord{}, failOn: map[string]error{}}
}

func (f *fakeRepo) Create(_ context.Context, rec *domain.ContentRecord) error {
	if err := f.failOn["Create"]; err != nil {
		return err
	}
	for _, existing := range f.records {
		if existing.UserID == rec.UserID && existing.URL == rec.URL {
			return &domain.DuplicateError{URL: rec.URL, UserID: rec.UserID}
		}
	}
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*domain.ContentRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeRepo) ExistsByURL(_ context.Context, userID, url string) (bool, error) {
	if err := f.failOn["ExistsByURL"]; err != nil {
		return false, err
	}
	for _, rec := range f.records {
		if rec.UserID == userID && rec.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) UpdateProcessed(_ context.Context, rec *domain.ContentRecord) error {
	if err := f.failOn["UpdateProcessed"]; err != nil {
		return err
	}
	if _, ok := f.records[rec.ID]; !ok {
		return fmt.Errorf("record %s not found", rec.ID)
	}
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeRepo) UpdateEmbedding(_ context.Context, id string, vector []float32, at time.Time) error {
	if err := f.failOn["UpdateEmbedding"]; err != nil {
		return err
	}
	rec, ok := f.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	rec.Embedding = vector
	rec.EmbeddedAt = &at
	return nil
}

func (f *fakeRepo) ListFailed(_ context.Context, limit int) ([]domain.ContentRecord, error) {
	var out []domain.ContentRecord
	for _, rec := range f.sorted() {
		if rec.Status == domain.StatusFailed {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkPending(_ context.Context, ids []string) error {
	for _, id := range ids {
		if rec, ok := f.records[id]; ok && rec.Status == domain.StatusFailed {
			rec.Status = domain.StatusPending
			rec.ErrorMessage = ""
		}
	}
	return nil
}

func (f *fakeRepo) ListSearchable(_ context.Context, userID string) ([]domain.ContentRecord, error) {
	if err := f.failOn["ListSearchable"]; err != nil {
		return nil, err
	}
	var out []domain.ContentRecord
	for _, rec := range f.sorted() {
		if rec.UserID == userID && rec.Status == domain.StatusComplete && rec.Embedding != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListMissingEmbedding(_ context.Context, limit int) ([]domain.ContentRecord, error) {
	var out []domain.ContentRecord
	for _, rec := range f.sorted() {
		if rec.Status == domain.StatusComplete && rec.Embedding == nil {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPending(_ context.Context, _ ports.Cursor, limit int) ([]domain.ContentRecord, ports.Cursor, error) {
	var out []domain.ContentRecord
	for _, rec := range f.sorted() {
		if rec.Status == domain.StatusPending {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, ports.Cursor{}, nil
}

func (f *fakeRepo) sorted() []domain.ContentRecord {
	out := make([]domain.ContentRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fakeQueue records published messages.
type fakeQueue struct {
	published []ports.CaptureMessage
	err       error
}

func (f *fakeQueue) Publish(_ context.Context, msg ports.CaptureMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

// fakeScraper returns a canned result or error.
type fakeScraper struct {
	content *domain.ScrapedContent
	err     error
	calls   int
}

func (f *fakeScraper) Scrape(_ context.Context, _ string) (*domain.ScrapedContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

// fakeThreads returns a canned bundle.
type fakeThreads struct {
	bundle domain.ThreadBundle
	err    error
	calls  int
}

func (f *fakeThreads) Reconstruct(_ context.Context, _ string) (domain.ThreadBundle, error) {
	f.calls++
	if f.err != nil {
		return domain.ThreadBundle{Provenance: domain.ProvenanceNone}, f.err
	}
	return f.bundle, nil
}

// fakeEmbedder returns a fixed vector, optionally recording inputs.
type fakeEmbedder struct {
	vector []float32
	err    error
	inputs []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.inputs = append(f.inputs, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

// fakeGenerator captures the request and returns a canned completion.
type fakeGenerator struct {
	answer string
	err    error
	last   *ports.CompletionRequest
}

func (f *fakeGenerator) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.last = &req
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
