package outline

import (
	"context"

	"outliner/internal/domain/models/outline"
)

// ListSegmentsOptions pages and filters a segment listing. Results are
// always ordered by segment_index.
type ListSegmentsOptions struct {
	Status *string
	Offset int
	Limit  int
}

// SegmentRepository defines data access operations for segments.
// All methods participate in an ambient transaction when one is present
// in the context.
type SegmentRepository interface {
	// Create creates a new segment
	Create(ctx context.Context, seg *outline.Segment) error

	// CreateBatch creates many segments in one round trip
	CreateBatch(ctx context.Context, segs []*outline.Segment) error

	// GetByID retrieves a segment by ID
	GetByID(ctx context.Context, id string) (*outline.Segment, error)

	// ListByDocument returns a document's segments ordered by segment_index
	ListByDocument(ctx context.Context, documentID string, opts ListSegmentsOptions) ([]outline.Segment, error)

	// ListByIDs returns the segments with the given IDs, ordered by
	// segment_index; missing IDs are simply absent from the result
	ListByIDs(ctx context.Context, ids []string) ([]outline.Segment, error)

	// Update persists all mutable fields of a segment
	Update(ctx context.Context, seg *outline.Segment) error

	// Delete removes a single segment
	Delete(ctx context.Context, id string) error

	// DeleteBatch removes the given segments
	DeleteBatch(ctx context.Context, ids []string) error

	// DeleteByDocument removes every segment of a document
	DeleteByDocument(ctx context.Context, documentID string) error

	// ShiftIndexes adds delta to segment_index for all of the document's
	// segments with segment_index > above
	ShiftIndexes(ctx context.Context, documentID string, above, delta int) error

	// MaxIndex returns the highest segment_index for a document, -1 when
	// the document has no segments
	MaxIndex(ctx context.Context, documentID string) (int, error)

	// Count returns total and annotated segment counts for a document
	Count(ctx context.Context, documentID string) (total, annotated int, err error)

	// CountByStatus counts a document's segments with the given status
	CountByStatus(ctx context.Context, documentID, status string) (int, error)
}
