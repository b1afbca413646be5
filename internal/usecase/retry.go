package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"LinkVault/internal/domain"
	"LinkVault/internal/pacing"
	"LinkVault/internal/ports"
)

// RetryService re-enqueues failed captures and backfills missing
// embeddings in fixed-size batches separated by a pacing delay, bounding
// burst load on upstream targets.
type RetryService struct {
	repo      ports.CaptureRepository
	queue     ports.WorkQueue
	embedder  ports.Embedder
	pacer     *pacing.Pacer
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetryService constructs the batch requeue tooling.
func NewRetryService(repo ports.CaptureRepository, queue ports.WorkQueue, embedder ports.Embedder, pacer *pacing.Pacer, batchSize int, logger *slog.Logger) *RetryService {
	if batchSize <= 0 {
		batchSize = 25
	}
	if pacer == nil {
		pacer = pacing.New(5 * time.Second)
	}
	return &RetryService{
		repo:      repo,
		queue:     queue,
		embedder:  embedder,
		pacer:     pacer,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// RequeueFailed resets failed captures to pending and republishes them,
// batch by batch with an inter-batch delay. Returns the number of
// captures requeued.
func (r *RetryService) RequeueFailed(ctx context.Context) (int, error) {
	r.pacer.Reset()
	total := 0

	for {
		if err := r.pacer.Wait(ctx); err != nil {
			return total, err
		}

		batch, err := r.repo.ListFailed(ctx, r.batchSize)
		if err != nil {
			return total, fmt.Errorf("list failed captures: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		eligible := make([]domain.ContentRecord, 0, len(batch))
		for _, rec := range batch {
			if !domain.CanTransition(rec.Status, domain.StatusPending) {
				continue
			}
			eligible = append(eligible, rec)
		}
		if len(eligible) == 0 {
			return total, nil
		}

		ids := make([]string, 0, len(eligible))
		for _, rec := range eligible {
			ids = append(ids, rec.ID)
		}
		if err := r.repo.MarkPending(ctx, ids); err != nil {
			return total, fmt.Errorf("mark pending: %w", err)
		}

		for _, rec := range eligible {
			msg := ports.CaptureMessage{
				CaptureID:  rec.ID,
				URL:        rec.URL,
				SourceType: rec.SourceType,
				Notes:      rec.Notes,
				UserID:     rec.UserID,
				TraceID:    uuid.NewString(),
			}
			if err := r.queue.Publish(ctx, msg); err != nil {
				// The record is already pending; the backlog lister
				// reconciles it later.
				r.warn("requeue publish failed", "capture_id", rec.ID, "error", err)
				continue
			}
			total++
		}

		r.debug("requeued batch", "count", len(ids), "total", total)

		if len(batch) < r.batchSize {
			return total, nil
		}
	}
}

// EmbedMissing generates vectors for complete records that lack one,
// paced between records to respect provider rate limits. Returns the
// number of embeddings written.
func (r *RetryService) EmbedMissing(ctx context.Context, limit int) (int, error) {
	if r.embedder == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = r.batchSize
	}

	records, err := r.repo.ListMissingEmbedding(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list missing embeddings: %w", err)
	}

	r.pacer.Reset()
	count := 0
	for i := range records {
		rec := &records[i]
		if err := r.pacer.Wait(ctx); err != nil {
			return count, err
		}

		input := BuildEmbeddingInput(rec)
		if input == "" {
			continue
		}
		vector, err := r.embedder.Embed(ctx, input)
		if err != nil {
			r.warn("embedding backfill failed", "capture_id", rec.ID, "error", err)
			continue
		}
		if err := r.repo.UpdateEmbedding(ctx, rec.ID, vector, r.now().UTC()); err != nil {
			return count, fmt.Errorf("persist embedding %s: %w", rec.ID, err)
		}
		count++
	}

	r.debug("embedding backfill done", "count", count)
	return count, nil
}

func (r *RetryService) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *RetryService) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
