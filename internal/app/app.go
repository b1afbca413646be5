// Package app wires configuration into the capture, retrieval, and
// answer services and drives the worker lifecycle.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"LinkVault/internal/config"
	"LinkVault/internal/infrastructure/llm"
	"LinkVault/internal/infrastructure/queue"
	"LinkVault/internal/infrastructure/storage"
	"LinkVault/internal/pacing"
	"LinkVault/internal/scraper"
	"LinkVault/internal/thread"
	"LinkVault/internal/usecase"
)

// Application owns process-scoped client handles and the use-case
// services built on them. Dependencies are injected into components, not
// referenced as ambient globals, so tests can substitute fakes.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *redis.Client
	queue *queue.RedisQueue

	Captures  *usecase.CaptureService
	Processor *usecase.Processor
	Retry     *usecase.RetryService
	Search    *usecase.SearchService
	Answers   *usecase.AnswerService
}

// New connects the external collaborators and builds the service graph.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisClient, err := queue.NewRedisClient(ctx, cfg.Redis.Addr)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	workQueue := queue.NewRedisQueue(redisClient, cfg.Redis.Queue)
	repo := storage.NewPostgresRepository(db)

	embedder := llm.NewEmbeddingClient(cfg.OpenAI)
	generator := llm.NewChatClient(cfg.OpenAI)

	httpClient := &http.Client{Timeout: cfg.Scraper.Timeout()}
	dispatcher := scraper.NewDispatcher(
		scraper.Options{Timeout: cfg.Scraper.Timeout(), MaxImages: cfg.Scraper.MaxImages},
		logger.With("component", "scraper"),
		scraper.NewDocumentScraper(httpClient, logger.With("component", "scraper.document")),
		scraper.NewWebScraper(httpClient, cfg.Scraper.MaxBodyChars, logger.With("component", "scraper.web")),
	)

	threads := thread.New(thread.Config{
		UnrollBaseURL: cfg.Thread.UnrollBaseURL,
		MirrorBaseURL: cfg.Thread.MirrorBaseURL,
		MaxDepth:      cfg.Thread.MaxDepth,
		HopDelay:      cfg.Thread.HopDelay(),
	}, nil, nil, logger.With("component", "thread"))

	return &Application{
		cfg:    cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		queue:  workQueue,

		Captures:  usecase.NewCaptureService(repo, workQueue, logger.With("component", "captures")),
		Processor: usecase.NewProcessor(repo, dispatcher, threads, embedder, logger.With("component", "processor")),
		Retry: usecase.NewRetryService(repo, workQueue, embedder,
			pacing.New(cfg.Retry.BatchDelay()), cfg.Retry.BatchSize, logger.With("component", "retry")),
		Search:  usecase.NewSearchService(repo, embedder, logger.With("component", "search")),
		Answers: usecase.NewAnswerService(generator, logger.With("component", "answers")),
	}, nil
}

// RunWorker consumes capture messages until the context is cancelled.
// Each delivery is handled sequentially; processing failures are logged
// and do not stop the loop.
func (a *Application) RunWorker(ctx context.Context) error {
	a.logger.Info("worker started", "queue", a.cfg.Redis.Queue)

	for {
		msg, err := a.queue.Next(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				a.logger.Info("worker stopping")
				return nil
			}
			a.logger.Error("queue poll failed", "error", err)
			continue
		}
		if msg == nil {
			continue
		}

		if err := a.Processor.ProcessCapture(ctx, *msg); err != nil {
			a.logger.Error("capture processing failed",
				"capture_id", msg.CaptureID, "trace_id", msg.TraceID, "error", err)
		}
	}
}

// Close releases the database and redis handles.
func (a *Application) Close() error {
	var errs []error
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if err := a.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	return errors.Join(errs...)
}
