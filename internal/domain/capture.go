package domain

import "time"

// EmbeddingDimensions is the fixed width of stored embedding vectors.
const EmbeddingDimensions = 1536

// SourceType classifies the platform a capture originates from.
type SourceType string

const (
	SourceWeb      SourceType = "web"
	SourceDocument SourceType = "document"
	SourceTwitter  SourceType = "twitter"
	SourceBluesky  SourceType = "bluesky"
	SourceMastodon SourceType = "mastodon"
	SourceThreads  SourceType = "threads"
)

// IsSocial reports whether the source type is a short-form social platform
// eligible for thread reconstruction.
func (s SourceType) IsSocial() bool {
	switch s {
	case SourceTwitter, SourceBluesky, SourceMastodon, SourceThreads:
		return true
	}
	return false
}

// Status enumerates capture lifecycle states.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// CanTransition reports whether moving between two statuses is legal.
// failed -> pending is the explicit requeue path; nothing else leaves a
// terminal state.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusComplete || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	}
	return false
}

// ContentRecord is the persistent capture entity. Uniqueness of
// (URL, UserID) is enforced by the store before any record is created.
type ContentRecord struct {
	ID     string
	UserID string
	URL    string // normalized form
	Notes  string

	SourceType SourceType
	Status     Status

	Title        string
	Description  string
	BodyText     string
	AuthorName   string
	AuthorHandle string
	PublishedAt  *time.Time
	Images       []string
	Videos       []string

	// Derived by an external analyzer; carried along for embedding input
	// and answer context.
	Summary string
	Topics  []string

	// Platform-specific payloads (thread provenance, extracted links).
	Metadata map[string]any

	Embedding  []float32 // nil until generated
	EmbeddedAt *time.Time

	ErrorMessage string
	Attempts     int

	CapturedAt  time.Time
	ProcessedAt *time.Time
	UpdatedAt   time.Time
}

// ScrapedContent is the transient output of one scraper strategy, consumed
// by the orchestrator to populate a ContentRecord.
type ScrapedContent struct {
	Title        string
	Description  string
	BodyText     string
	AuthorName   string
	AuthorHandle string
	PublishedAt  *time.Time
	Images       []string
	Videos       []string
	Metadata     map[string]any
}

// ThreadProvenance records which recovery strategy produced a thread.
type ThreadProvenance string

const (
	ProvenanceUnroll     ThreadProvenance = "unroll-service"
	ProvenanceReplyChain ThreadProvenance = "reply-chain"
	ProvenanceNone       ThreadProvenance = "none"
)

// ThreadBundle is the transient result of social thread reconstruction.
// len(Texts) == PostCount always holds.
type ThreadBundle struct {
	PostCount    int
	Texts        []string
	Links        []string
	FullText     string
	Provenance   ThreadProvenance
	AuthorName   string
	AuthorHandle string
}
