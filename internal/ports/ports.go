package ports

import (
	"context"
	"time"

	"LinkVault/internal/domain"
)

// Cursor pages record listings by (captured_at, id) descending.
type Cursor struct {
	CapturedAt time.Time
	ID         string
}

// IsZero reports whether the cursor points at the start of the listing.
func (c Cursor) IsZero() bool {
	return c.ID == "" && c.CapturedAt.IsZero()
}

// CaptureRepository persists ContentRecord state. The store owns record
// state exclusively; all mutations are whole-field updates issued here.
type CaptureRepository interface {
	// Create inserts a new record; a (url, user) uniqueness violation
	// surfaces as *domain.DuplicateError.
	Create(ctx context.Context, rec *domain.ContentRecord) error
	Get(ctx context.Context, id string) (*domain.ContentRecord, error)
	ExistsByURL(ctx context.Context, userID, url string) (bool, error)
	// UpdateProcessed overwrites every scraped field, the status, the
	// attempt counter, and the processing timestamp in one statement.
	UpdateProcessed(ctx context.Context, rec *domain.ContentRecord) error
	UpdateEmbedding(ctx context.Context, id string, vector []float32, at time.Time) error
	ListFailed(ctx context.Context, limit int) ([]domain.ContentRecord, error)
	// MarkPending resets failed records to pending for requeue.
	MarkPending(ctx context.Context, ids []string) error
	// ListSearchable returns complete records carrying an embedding,
	// restricted to one user's scope.
	ListSearchable(ctx context.Context, userID string) ([]domain.ContentRecord, error)
	ListMissingEmbedding(ctx context.Context, limit int) ([]domain.ContentRecord, error)
	ListPending(ctx context.Context, cursor Cursor, limit int) ([]domain.ContentRecord, Cursor, error)
}

// CaptureMessage is the work-queue payload handed to the processing worker.
type CaptureMessage struct {
	CaptureID  string            `json:"capture_id"`
	URL        string            `json:"url"`
	SourceType domain.SourceType `json:"source_type"`
	Notes      string            `json:"notes,omitempty"`
	UserID     string            `json:"user_id"`
	TraceID    string            `json:"trace_id"`
}

// WorkQueue provides at-least-once delivery of capture messages. Publish
// reports success or failure explicitly.
type WorkQueue interface {
	Publish(ctx context.Context, msg CaptureMessage) error
}

// Scraper resolves a URL to scraped content via the strategy dispatcher.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*domain.ScrapedContent, error)
}

// ThreadReconstructor recovers the full same-author thread behind a single
// short-form post URL.
type ThreadReconstructor interface {
	Reconstruct(ctx context.Context, postURL string) (domain.ThreadBundle, error)
}

// Embedder turns text into a fixed-dimension vector. The provider enforces
// an input-size ceiling; callers truncate before submission.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CompletionRequest describes one generation call.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Generator produces a text completion from a generative model provider.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
