package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
)

// Search defaults; deep mode trades precision for recall by widening topK
// and lowering the similarity floor.
const (
	defaultThreshold = 0.35
	defaultTopK      = 5
	deepThreshold    = 0.20
	deepTopK         = 20
)

// SearchOptions tunes one retrieval call. Zero values select the defaults
// for the chosen mode.
type SearchOptions struct {
	Threshold float64
	TopK      int
	Deep      bool
}

func (o SearchOptions) resolved() SearchOptions {
	if o.Threshold == 0 {
		if o.Deep {
			o.Threshold = deepThreshold
		} else {
			o.Threshold = defaultThreshold
		}
	}
	if o.TopK <= 0 {
		if o.Deep {
			o.TopK = deepTopK
		} else {
			o.TopK = defaultTopK
		}
	}
	return o
}

// ScoredRecord pairs a record with its query similarity.
type ScoredRecord struct {
	Record     domain.ContentRecord
	Similarity float64
}

// SearchService ranks complete captures by cosine similarity against a
// query embedding, restricted to the caller's scope.
type SearchService struct {
	repo     ports.CaptureRepository
	embedder ports.Embedder
	logger   *slog.Logger
}

// NewSearchService constructs the retrieval engine.
func NewSearchService(repo ports.CaptureRepository, embedder ports.Embedder, logger *slog.Logger) *SearchService {
	return &SearchService{repo: repo, embedder: embedder, logger: logger}
}

// Search embeds the query and delegates to SearchVector.
func (s *SearchService) Search(ctx context.Context, userID, query string, opts SearchOptions) ([]ScoredRecord, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchVector(ctx, userID, vector, opts)
}

// SearchVector returns records at or above the similarity threshold,
// ordered by descending similarity with ties broken by most recent
// capture, capped at topK.
func (s *SearchService) SearchVector(ctx context.Context, userID string, queryVector []float32, opts SearchOptions) ([]ScoredRecord, error) {
	opts = opts.resolved()

	records, err := s.repo.ListSearchable(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load searchable records: %w", err)
	}

	var scored []ScoredRecord
	for _, rec := range records {
		sim, err := cosineSimilarity(queryVector, rec.Embedding)
		if err != nil {
			s.warn("skipping record with bad vector", "capture_id", rec.ID, "error", err)
			continue
		}
		if sim < opts.Threshold {
			continue
		}
		scored = append(scored, ScoredRecord{Record: rec, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Record.CapturedAt.After(scored[j].Record.CapturedAt)
	})

	if len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func (s *SearchService) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
