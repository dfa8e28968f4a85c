package outline

import (
	"context"

	"outliner/internal/domain/models/outline"
)

// DocumentService handles document lifecycle business logic
type DocumentService interface {
	// CreateDocument creates a new document from raw content
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*outline.Document, error)

	// UploadDocument creates a document from an uploaded file or inline
	// content, stripping control characters except newlines. An explicit
	// filename that already exists is rejected as a conflict
	UploadDocument(ctx context.Context, req *UploadDocumentRequest) (*outline.Document, error)

	// GetDocument retrieves a document; when includeSegments is set the
	// partition is materialized first (a single full-document segment is
	// created if none exist) and returned ordered by segment_index
	GetDocument(ctx context.Context, id string, includeSegments bool) (*outline.Document, error)

	// ListDocuments returns paged document summaries, deleted excluded by default
	ListDocuments(ctx context.Context, req *ListDocumentsRequest) ([]outline.DocumentSummary, error)

	// UpdateContent replaces the document content and invalidates the cache
	UpdateContent(ctx context.Context, id, content string) error

	// UpdateStatus transitions the document status; restoring a deleted
	// document requires the owner's user ID
	UpdateStatus(ctx context.Context, id string, req *UpdateDocumentStatusRequest) error

	// DeleteDocument removes the document and all its segments
	DeleteDocument(ctx context.Context, id string) error

	// GetProgress returns the progress counters plus checked/unchecked counts
	GetProgress(ctx context.Context, id string) (*outline.Progress, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	Content  string  `json:"content"`
	Filename *string `json:"filename,omitempty"`
	UserID   *string `json:"user_id,omitempty"`
}

// UploadDocumentRequest represents an upload: either FileContent (decoded
// file bytes) or Content must be set.
type UploadDocumentRequest struct {
	FileContent *string
	Content     *string
	Filename    *string
	UserID      *string
}

// ListDocumentsRequest pages and filters the document listing
type ListDocumentsRequest struct {
	UserID         *string
	Status         *string
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// UpdateDocumentStatusRequest carries a status transition
type UpdateDocumentStatusRequest struct {
	Status string  `json:"status"`
	UserID *string `json:"user_id,omitempty"`
}
