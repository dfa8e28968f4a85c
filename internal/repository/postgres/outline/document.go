package outline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	outlineRepo "outliner/internal/domain/repositories/outline"
	"outliner/internal/repository/postgres"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) outlineRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, filename, user_id, total_segments, annotated_segments, progress_percentage, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.ID,
		doc.Content,
		doc.Filename,
		doc.UserID,
		doc.TotalSegments,
		doc.AnnotatedSegments,
		doc.ProgressPercentage,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("document %s: %w", doc.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID, including content
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, content, filename, user_id, total_segments, annotated_segments, progress_percentage, status, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	return r.scanDocument(ctx, query, id)
}

// GetMeta retrieves a document by ID without its content
func (r *PostgresDocumentRepository) GetMeta(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, '', filename, user_id, total_segments, annotated_segments, progress_percentage, status, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	return r.scanDocument(ctx, query, id)
}

// GetContent retrieves only the content column
func (r *PostgresDocumentRepository) GetContent(ctx context.Context, id string) (string, error) {
	query := fmt.Sprintf(`SELECT content FROM %s WHERE id = $1`, r.tables.Documents)

	var content string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&content); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get document content: %w", err)
	}
	return content, nil
}

// GetByFilename retrieves a document by its filename
func (r *PostgresDocumentRepository) GetByFilename(ctx context.Context, filename string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, content, filename, user_id, total_segments, annotated_segments, progress_percentage, status, created_at, updated_at
		FROM %s
		WHERE filename = $1
	`, r.tables.Documents)

	return r.scanDocument(ctx, query, filename)
}

// List returns document metadata (no content), newest first
func (r *PostgresDocumentRepository) List(ctx context.Context, opts outlineRepo.ListDocumentsOptions) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, '', filename, user_id, total_segments, annotated_segments, progress_percentage, status, created_at, updated_at
		FROM %s
		WHERE 1=1
	`, r.tables.Documents)

	args := []interface{}{}
	argN := 1

	if opts.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argN)
		args = append(args, *opts.UserID)
		argN++
	}
	if opts.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, *opts.Status)
		argN++
	} else if !opts.IncludeDeleted {
		query += fmt.Sprintf(" AND status <> $%d", argN)
		args = append(args, models.DocumentStatusDeleted)
		argN++
	}

	query += " ORDER BY updated_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, opts.Limit)
		argN++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, opts.Offset)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.Content,
			&doc.Filename,
			&doc.UserID,
			&doc.TotalSegments,
			&doc.AnnotatedSegments,
			&doc.ProgressPercentage,
			&doc.Status,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

// UpdateContent replaces the full text content
func (r *PostgresDocumentRepository) UpdateContent(ctx context.Context, id, content string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET content = $2, updated_at = $3 WHERE id = $1
	`, r.tables.Documents)

	return r.exec(ctx, "update document content", query, id, content, time.Now())
}

// UpdateStatus sets the document status
func (r *PostgresDocumentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = $3 WHERE id = $1
	`, r.tables.Documents)

	return r.exec(ctx, "update document status", query, id, status, time.Now())
}

// UpdateProgress writes the progress counters and derived percentage
func (r *PostgresDocumentRepository) UpdateProgress(ctx context.Context, id string, total, annotated int, percentage float64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET total_segments = $2, annotated_segments = $3, progress_percentage = $4, updated_at = $5 WHERE id = $1
	`, r.tables.Documents)

	return r.exec(ctx, "update document progress", query, id, total, annotated, percentage, time.Now())
}

// Delete removes the document; segments cascade at the database level
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	return r.exec(ctx, "delete document", query, id)
}

func (r *PostgresDocumentRepository) scanDocument(ctx context.Context, query string, arg interface{}) (*models.Document, error) {
	var doc models.Document
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, arg).Scan(
		&doc.ID,
		&doc.Content,
		&doc.Filename,
		&doc.UserID,
		&doc.TotalSegments,
		&doc.AnnotatedSegments,
		&doc.ProgressPercentage,
		&doc.Status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %v: %w", arg, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

func (r *PostgresDocumentRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
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
