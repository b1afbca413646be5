package domain

import "fmt"

// ValidationError marks a malformed or unsupported URL. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// DuplicateError marks a URL already captured by the same user. Never
// retried, never silently merged.
type DuplicateError struct {
	URL    string
	UserID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate capture of %s for user %s", e.URL, e.UserID)
}

// ScrapeKind partitions scrape failures for retry decisions.
type ScrapeKind string

const (
	ScrapeNetwork     ScrapeKind = "network"
	ScrapeParse       ScrapeKind = "parse"
	ScrapeUnsupported ScrapeKind = "unsupported-format"
)

// ScrapeError is a recoverable strategy failure, recorded on the capture
// and eligible for manual or batch retry.
type ScrapeError struct {
	Kind ScrapeKind
	Err  error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.Kind, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// NewScrapeError wraps err with a failure kind.
func NewScrapeError(kind ScrapeKind, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Err: err}
}

// QueueHandoffError signals that the durable pending record exists but the
// work-queue publish failed; callers should treat it as retryable
// service-unavailable, not as submission success.
type QueueHandoffError struct {
	Err error
}

func (e *QueueHandoffError) Error() string {
	return fmt.Sprintf("queue handoff: %v", e.Err)
}

func (e *QueueHandoffError) Unwrap() error { return e.Err }

// ProviderError wraps a failure from an external embedding or generation
// provider. Propagated to callers, never masked by fabricated results.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
