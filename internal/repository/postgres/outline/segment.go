package outline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	outlineRepo "outliner/internal/domain/repositories/outline"
	"outliner/internal/repository/postgres"
)

const segmentColumns = "id, document_id, text, segment_index, span_start, span_end, title, author, title_ref, author_ref, parent_segment_id, status, is_annotated, is_attached, comment, created_at, updated_at"

// PostgresSegmentRepository implements the SegmentRepository interface
type PostgresSegmentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(config *postgres.RepositoryConfig) outlineRepo.SegmentRepository {
	return &PostgresSegmentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new segment
func (r *PostgresSegmentRepository) Create(ctx context.Context, seg *models.Segment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`, r.tables.Segments, segmentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, segmentArgs(seg)...).Scan(&seg.CreatedAt, &seg.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("segment %s: %w", seg.ID, domain.ErrConflict)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", seg.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create segment: %w", err)
	}

	return nil
}

// CreateBatch creates many segments in one round trip
func (r *PostgresSegmentRepository) CreateBatch(ctx context.Context, segs []*models.Segment) error {
	if len(segs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, r.tables.Segments, segmentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	batch := &pgx.Batch{}
	for _, seg := range segs {
		batch.Queue(query, segmentArgs(seg)...)
	}

	results := executor.SendBatch(ctx, batch)
	defer results.Close()

	for range segs {
		if _, err := results.Exec(); err != nil {
			if postgres.IsPgDuplicateError(err) {
				return fmt.Errorf("create segments: %w", domain.ErrConflict)
			}
			if postgres.IsPgForeignKeyError(err) {
				return fmt.Errorf("create segments: %w", domain.ErrNotFound)
			}
			return fmt.Errorf("create segments: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a segment by ID
func (r *PostgresSegmentRepository) GetByID(ctx context.Context, id string) (*models.Segment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, segmentColumns, r.tables.Segments)

	executor := postgres.GetExecutor(ctx, r.pool)
	seg, err := scanSegment(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("segment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

// ListByDocument returns a document's segments ordered by segment_index
func (r *PostgresSegmentRepository) ListByDocument(ctx context.Context, documentID string, opts outlineRepo.ListSegmentsOptions) ([]models.Segment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE document_id = $1`, segmentColumns, r.tables.Segments)

	args := []interface{}{documentID}
	argN := 2

	if opts.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, *opts.Status)
		argN++
	}

	query += " ORDER BY segment_index"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, opts.Limit)
		argN++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, opts.Offset)
	}

	return r.querySegments(ctx, "list segments", query, args...)
}

// ListByIDs returns the segments with the given IDs ordered by
// segment_index. Missing IDs are absent from the result; callers that
// need all-or-nothing compare lengths themselves.
func (r *PostgresSegmentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Segment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = ANY($1) ORDER BY segment_index
	`, segmentColumns, r.tables.Segments)

	return r.querySegments(ctx, "list segments by id", query, ids)
}

// Update persists all mutable fields of a segment
func (r *PostgresSegmentRepository) Update(ctx context.Context, seg *models.Segment) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET text = $2, segment_index = $3, span_start = $4, span_end = $5,
		    title = $6, author = $7, title_ref = $8, author_ref = $9,
		    parent_segment_id = $10, status = $11, is_annotated = $12,
		    is_attached = $13, comment = $14, updated_at = $15
		WHERE id = $1
	`, r.tables.Segments)

	seg.UpdatedAt = time.Now()
	return r.exec(ctx, "update segment", query,
		seg.ID,
		seg.Text,
		seg.SegmentIndex,
		seg.SpanStart,
		seg.SpanEnd,
		seg.Title,
		seg.Author,
		seg.TitleRef,
		seg.AuthorRef,
		seg.ParentSegmentID,
		seg.Status,
		seg.IsAnnotated,
		seg.IsAttached,
		seg.Comments,
		seg.UpdatedAt,
	)
}

// Delete removes a single segment
func (r *PostgresSegmentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Segments)
	return r.exec(ctx, "delete segment", query, id)
}

// DeleteBatch removes the given segments
func (r *PostgresSegmentRepository) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, r.tables.Segments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	return nil
}

// DeleteByDocument removes every segment of a document
func (r *PostgresSegmentRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, r.tables.Segments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("delete document segments: %w", err)
	}
	return nil
}

// ShiftIndexes adds delta to segment_index for all of the document's
// segments with segment_index > above
func (r *PostgresSegmentRepository) ShiftIndexes(ctx context.Context, documentID string, above, delta int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET segment_index = segment_index + $3, updated_at = $4
		WHERE document_id = $1 AND segment_index > $2
	`, r.tables.Segments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID, above, delta, time.Now()); err != nil {
		return fmt.Errorf("shift segment indexes: %w", err)
	}
	return nil
}

// MaxIndex returns the highest segment_index for a document, -1 when the
// document has no segments
func (r *PostgresSegmentRepository) MaxIndex(ctx context.Context, documentID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(segment_index), -1) FROM %s WHERE document_id = $1
	`, r.tables.Segments)

	var max int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, documentID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max segment index: %w", err)
	}
	return max, nil
}

// Count returns total and annotated segment counts for a document
func (r *PostgresSegmentRepository) Count(ctx context.Context, documentID string) (int, int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_annotated)
		FROM %s WHERE document_id = $1
	`, r.tables.Segments)

	var total, annotated int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, documentID).Scan(&total, &annotated); err != nil {
		return 0, 0, fmt.Errorf("count segments: %w", err)
	}
	return total, annotated, nil
}

// CountByStatus counts a document's segments with the given status
func (r *PostgresSegmentRepository) CountByStatus(ctx context.Context, documentID, status string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE document_id = $1 AND status = $2
	`, r.tables.Segments)

	var n int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, documentID, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count segments by status: %w", err)
	}
	return n, nil
}

func (r *PostgresSegmentRepository) querySegments(ctx context.Context, op, query string, args ...interface{}) ([]models.Segment, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var segs []models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		segs = append(segs, *seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return segs, nil
}

func (r *PostgresSegmentRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func segmentArgs(seg *models.Segment) []interface{} {
	return []interface{}{
		seg.ID,
		seg.DocumentID,
		seg.Text,
		seg.SegmentIndex,
		seg.SpanStart,
		seg.SpanEnd,
		seg.Title,
		seg.Author,
		seg.TitleRef,
		seg.AuthorRef,
		seg.ParentSegmentID,
		seg.Status,
		seg.IsAnnotated,
		seg.IsAttached,
		seg.Comments,
		seg.CreatedAt,
		seg.UpdatedAt,
	}
}

func scanSegment(row pgx.Row) (*models.Segment, error) {
	var seg models.Segment
	err := row.Scan(
		&seg.ID,
		&seg.DocumentID,
		&seg.Text,
		&seg.SegmentIndex,
		&seg.SpanStart,
		&seg.SpanEnd,
		&seg.Title,
		&seg.Author,
		&seg.TitleRef,
		&seg.AuthorRef,
		&seg.ParentSegmentID,
		&seg.Status,
		&seg.IsAnnotated,
		&seg.IsAttached,
		&seg.Comments,
		&seg.CreatedAt,
		&seg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &seg, nil
}
