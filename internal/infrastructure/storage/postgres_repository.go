// Package storage persists capture records in Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"LinkVault/internal/domain"
	"LinkVault/internal/ports"
)

const uniqueViolation = "23505"

var recordColumns = []string{
	"id", "user_id", "url", "notes", "source_type", "status",
	"title", "description", "body_text", "author_name", "author_handle",
	"published_at", "images", "videos", "summary", "topics", "metadata",
	"embedding", "embedded_at", "error_message", "attempts",
	"captured_at", "processed_at", "updated_at",
}

// PostgresRepository implements ports.CaptureRepository on Postgres. The
// content_records table enforces UNIQUE (user_id, url).
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.CaptureRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts a new record. A (user_id, url) uniqueness violation is
// translated into *domain.DuplicateError.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.ContentRecord) error {
	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	query := r.builder.Insert("content_records").
		Columns(recordColumns...).
		Values(
			rec.ID, rec.UserID, rec.URL, rec.Notes, rec.SourceType, rec.Status,
			rec.Title, rec.Description, rec.BodyText, rec.AuthorName, rec.AuthorHandle,
			nullTime(rec.PublishedAt), pq.Array(rec.Images), pq.Array(rec.Videos),
			rec.Summary, pq.Array(rec.Topics), metadata,
			embeddingValue(rec.Embedding), nullTime(rec.EmbeddedAt),
			rec.ErrorMessage, rec.Attempts,
			rec.CapturedAt, nullTime(rec.ProcessedAt), rec.UpdatedAt,
		)

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return &domain.DuplicateError{URL: rec.URL, UserID: rec.UserID}
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get loads one record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.ContentRecord, error) {
	row := r.selectRecords().Where(sq.Eq{"id": id}).RunWith(r.db).QueryRowContext(ctx)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s not found", id)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ExistsByURL reports whether the user already captured the normalized URL.
func (r *PostgresRepository) ExistsByURL(ctx context.Context, userID, url string) (bool, error) {
	var one int
	err := r.builder.Select("1").
		From("content_records").
		Where(sq.Eq{"user_id": userID, "url": url}).
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check url existence: %w", err)
	}
	return true, nil
}

// UpdateProcessed overwrites all scraped fields, the status, the attempt
// counter, and the processing timestamp in a single statement.
func (r *PostgresRepository) UpdateProcessed(ctx context.Context, rec *domain.ContentRecord) error {
	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	query := r.builder.Update("content_records").
		Set("source_type", rec.SourceType).
		Set("status", rec.Status).
		Set("title", rec.Title).
		Set("description", rec.Description).
		Set("body_text", rec.BodyText).
		Set("author_name", rec.AuthorName).
		Set("author_handle", rec.AuthorHandle).
		Set("published_at", nullTime(rec.PublishedAt)).
		Set("images", pq.Array(rec.Images)).
		Set("videos", pq.Array(rec.Videos)).
		Set("metadata", metadata).
		Set("error_message", rec.ErrorMessage).
		Set("attempts", rec.Attempts).
		Set("processed_at", nullTime(rec.ProcessedAt)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": rec.ID})

	result, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return requireRow(result, rec.ID)
}

// UpdateEmbedding overwrites the vector and its timestamp.
func (r *PostgresRepository) UpdateEmbedding(ctx context.Context, id string, vector []float32, at time.Time) error {
	result, err := r.builder.Update("content_records").
		Set("embedding", embeddingValue(vector)).
		Set("embedded_at", at).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return requireRow(result, id)
}

// ListFailed returns the oldest failed captures first, bounded by limit.
func (r *PostgresRepository) ListFailed(ctx context.Context, limit int) ([]domain.ContentRecord, error) {
	rows, err := r.selectRecords().
		Where(sq.Eq{"status": domain.StatusFailed}).
		OrderBy("updated_at ASC").
		Limit(uint64(limit)).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	return collectRecords(rows)
}

// MarkPending resets failed captures to pending, clearing the error.
func (r *PostgresRepository) MarkPending(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.builder.Update("content_records").
		Set("status", domain.StatusPending).
		Set("error_message", "").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": ids, "status": domain.StatusFailed}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	return nil
}

// ListSearchable returns the user's complete records that carry an
// embedding vector.
func (r *PostgresRepository) ListSearchable(ctx context.Context, userID string) ([]domain.ContentRecord, error) {
	rows, err := r.selectRecords().
		Where(sq.Eq{"user_id": userID, "status": domain.StatusComplete}).
		Where("embedding IS NOT NULL").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list searchable: %w", err)
	}
	return collectRecords(rows)
}

// ListMissingEmbedding returns complete records still lacking a vector.
func (r *PostgresRepository) ListMissingEmbedding(ctx context.Context, limit int) ([]domain.ContentRecord, error) {
	rows, err := r.selectRecords().
		Where(sq.Eq{"status": domain.StatusComplete}).
		Where("embedding IS NULL").
		OrderBy("captured_at ASC").
		Limit(uint64(limit)).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list missing embedding: %w", err)
	}
	return collectRecords(rows)
}

// ListPending pages pending captures by (captured_at, id) descending.
func (r *PostgresRepository) ListPending(ctx context.Context, cursor ports.Cursor, limit int) ([]domain.ContentRecord, ports.Cursor, error) {
	query := r.selectRecords().
		Where(sq.Eq{"status": domain.StatusPending}).
		OrderBy("captured_at DESC", "id DESC").
		Limit(uint64(limit))
	if !cursor.IsZero() {
		query = query.Where("(captured_at, id) < (?, ?)", cursor.CapturedAt, cursor.ID)
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, ports.Cursor{}, fmt.Errorf("list pending: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, ports.Cursor{}, err
	}

	var next ports.Cursor
	if len(records) == limit {
		last := records[len(records)-1]
		next = ports.Cursor{CapturedAt: last.CapturedAt, ID: last.ID}
	}
	return records, next, nil
}

func (r *PostgresRepository) selectRecords() sq.SelectBuilder {
	return r.builder.Select(recordColumns...).From("content_records")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.ContentRecord, error) {
	var (
		rec         domain.ContentRecord
		publishedAt sql.NullTime
		embeddedAt  sql.NullTime
		processedAt sql.NullTime
		metadata    []byte
		embedding   pq.Float32Array
	)

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.URL, &rec.Notes, &rec.SourceType, &rec.Status,
		&rec.Title, &rec.Description, &rec.BodyText, &rec.AuthorName, &rec.AuthorHandle,
		&publishedAt, pq.Array(&rec.Images), pq.Array(&rec.Videos),
		&rec.Summary, pq.Array(&rec.Topics), &metadata,
		&embedding, &embeddedAt,
		&rec.ErrorMessage, &rec.Attempts,
		&rec.CapturedAt, &processedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.PublishedAt = timePtr(publishedAt)
	rec.EmbeddedAt = timePtr(embeddedAt)
	rec.ProcessedAt = timePtr(processedAt)
	if len(embedding) > 0 {
		rec.Embedding = []float32(embedding)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]domain.ContentRecord, error) {
	defer rows.Close()

	var records []domain.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func embeddingValue(v []float32) any {
	if v == nil {
		return nil
	}
	return pq.Float32Array(v)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %s not found", id)
	}
	return nil
}
