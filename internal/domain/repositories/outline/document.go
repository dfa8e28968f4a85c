package outline

import (
	"context"

	"outliner/internal/domain/models/outline"
)

// ListDocumentsOptions narrows and pages a document listing. Deleted
// documents are excluded unless IncludeDeleted is set; Status further
// restricts to a single status.
type ListDocumentsOptions struct {
	UserID         *string
	Status         *string
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// DocumentRepository defines data access operations for documents.
// The content column is large; reads that do not need it use the
// metadata-only methods.
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *outline.Document) error

	// GetByID retrieves a document by ID, including content
	GetByID(ctx context.Context, id string) (*outline.Document, error)

	// GetMeta retrieves a document by ID without its content
	GetMeta(ctx context.Context, id string) (*outline.Document, error)

	// GetContent retrieves only the content column
	GetContent(ctx context.Context, id string) (string, error)

	// GetByFilename retrieves a document by its filename
	GetByFilename(ctx context.Context, filename string) (*outline.Document, error)

	// List returns document metadata (no content), newest first
	List(ctx context.Context, opts ListDocumentsOptions) ([]outline.Document, error)

	// UpdateContent replaces the full text content
	UpdateContent(ctx context.Context, id, content string) error

	// UpdateStatus sets the document status
	UpdateStatus(ctx context.Context, id, status string) error

	// UpdateProgress writes the progress counters and derived percentage
	UpdateProgress(ctx context.Context, id string, total, annotated int, percentage float64) error

	// Delete removes the document; segments cascade at the database level
	Delete(ctx context.Context, id string) error
}
