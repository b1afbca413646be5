// Package usecase wires the driven adapters into the capture, retrieval,
// and answer workflows.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
	"LinkVault/internal/sanitize"
	"LinkVault/internal/urlkit"
)

// SubmitRequest carries one user-submitted URL.
type SubmitRequest struct {
	URL    string
	Notes  string
	UserID string
}

// SubmitResult reports the durable pending capture back to the caller.
type SubmitResult struct {
	ID         string
	Status     domain.Status
	SourceType domain.SourceType
}

// CaptureService handles synchronous submission: normalize, dedupe,
// persist intent, and hand off to the work queue.
type CaptureService struct {
	repo   ports.CaptureRepository
	queue  ports.WorkQueue
	logger *slog.Logger
	now    func() time.Time
}

// NewCaptureService constructs the submission orchestrator.
func NewCaptureService(repo ports.CaptureRepository, queue ports.WorkQueue, logger *slog.Logger) *CaptureService {
	return &CaptureService{repo: repo, queue: queue, logger: logger, now: time.Now}
}

// Submit validates and registers a capture. The pending record is
// persisted before any scraping so a durable record of intent survives
// later failures; a queue-handoff failure is reported as
// *domain.QueueHandoffError and the record is kept for reconciliation.
func (s *CaptureService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	normalized, err := urlkit.Normalize(req.URL)
	if err != nil {
		return nil, err
	}
	sourceType := urlkit.Classify(normalized)

	exists, err := s.repo.ExistsByURL(ctx, req.UserID, normalized)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, &domain.DuplicateError{URL: normalized, UserID: req.UserID}
	}

	now := s.now().UTC()
	rec := &domain.ContentRecord{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		URL:        normalized,
		Notes:      sanitize.Clean(req.Notes),
		SourceType: sourceType,
		Status:     domain.StatusPending,
		CapturedAt: now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	traceID := uuid.NewString()
	msg := ports.CaptureMessage{
		CaptureID:  rec.ID,
		URL:        rec.URL,
		SourceType: rec.SourceType,
		Notes:      rec.Notes,
		UserID:     rec.UserID,
		TraceID:    traceID,
	}
	if err := s.queue.Publish(ctx, msg); err != nil {
		s.warn("queue handoff failed, pending record kept",
			"capture_id", rec.ID, "trace_id", traceID, "error", err)
		return nil, &domain.QueueHandoffError{Err: err}
	}

	s.debug("capture submitted",
		"capture_id", rec.ID, "source_type", rec.SourceType, "trace_id", traceID)

	return &SubmitResult{ID: rec.ID, Status: rec.Status, SourceType: rec.SourceType}, nil
}

// PendingBacklog pages pending captures by (captured_at, id) descending
// for reconciliation of records whose enqueue never succeeded.
func (s *CaptureService) PendingBacklog(ctx context.Context, cursor ports.Cursor, limit int) ([]domain.ContentRecord, ports.Cursor, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListPending(ctx, cursor, limit)
}

func (s *CaptureService) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *CaptureService) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
