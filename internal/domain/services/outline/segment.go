package outline

import (
	"context"

	"outliner/internal/domain/models/outline"
)

// SegmentService is the span-mutation engine: every operation leaves the
// document's segments a valid partition (contiguous spans, indexes 0..N-1)
// and keeps the document's progress counters consistent. Multi-step
// operations are atomic at the transaction boundary.
type SegmentService interface {
	// CreateSegment creates one segment; the caller owns index placement
	CreateSegment(ctx context.Context, documentID string, req *CreateSegmentRequest) (*outline.Segment, error)

	// CreateSegmentsBulk creates many segments in one transaction
	CreateSegmentsBulk(ctx context.Context, documentID string, reqs []CreateSegmentRequest) ([]outline.Segment, error)

	// GetSegment retrieves a segment by ID
	GetSegment(ctx context.Context, id string) (*outline.Segment, error)

	// ListSegments returns a document's segments ordered by index
	ListSegments(ctx context.Context, documentID string, req *ListSegmentsRequest) ([]outline.Segment, error)

	// UpdateSegment partially updates mutable fields and reconciles the
	// document's annotated counter
	UpdateSegment(ctx context.Context, id string, req *UpdateSegmentRequest) (*outline.Segment, error)

	// UpdateSegmentStatus sets the segment status
	UpdateSegmentStatus(ctx context.Context, id, status string) (*outline.Segment, error)

	// DeleteSegment removes a segment and closes the index gap
	DeleteSegment(ctx context.Context, id string) error

	// SplitSegment splits a segment at a rune offset within its text,
	// returning both halves. When the segment does not exist, a document ID
	// may be supplied to lazily materialize a full-document segment first.
	SplitSegment(ctx context.Context, req *SplitSegmentRequest) ([]outline.Segment, error)

	// MergeSegments merges two or more segments of one document into the
	// first, in index order
	MergeSegments(ctx context.Context, segmentIDs []string) (*outline.Segment, error)

	// BulkOperations applies delete, then update, then create in one
	// transaction and recomputes progress once
	BulkOperations(ctx context.Context, documentID string, req *BulkOperationsRequest) ([]outline.Segment, error)

	// EnsureSegmented idempotently materializes the initial full-document
	// segment when the document has none, returning true if one was created
	EnsureSegmented(ctx context.Context, documentID string) (bool, error)

	// ResetSegments deletes every segment of a document
	ResetSegments(ctx context.Context, documentID string) error
}

// CommentService is the per-segment append-only comment log. Entries are a
// read-modify-write of one row; concurrent appends to the same segment can
// lose updates (accepted, single-writer semantics assumed).
type CommentService interface {
	// ListComments returns a segment's comments in append order
	ListComments(ctx context.Context, segmentID string) (outline.CommentList, error)

	// AppendComment pushes a timestamped entry and returns the full list
	AppendComment(ctx context.Context, segmentID, content, username string) (outline.CommentList, error)

	// UpdateComment replaces the content of the entry at index
	UpdateComment(ctx context.Context, segmentID string, index int, content string) (outline.CommentList, error)

	// DeleteComment removes the entry at index
	DeleteComment(ctx context.Context, segmentID string, index int) (outline.CommentList, error)
}

// SegmentationService ties boundary detection to the mutation engine.
type SegmentationService interface {
	// SegmentDocument detects boundaries over the whole content and
	// replaces any prior segmentation with one segment per interval
	SegmentDocument(ctx context.Context, documentID string) ([]outline.Segment, error)

	// SubdivideSegment detects boundaries within one segment's text (or a
	// caller-supplied override) and replaces the segment with the detected
	// children at absolute document offsets
	SubdivideSegment(ctx context.Context, segmentID string, contentOverride *string) ([]outline.Segment, error)
}

// CreateSegmentRequest represents a segment creation request. Text defaults
// to the document content slice when omitted.
type CreateSegmentRequest struct {
	Text            *string `json:"text,omitempty"`
	SegmentIndex    *int    `json:"segment_index,omitempty"`
	SpanStart       int     `json:"span_start"`
	SpanEnd         int     `json:"span_end"`
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	TitleRef        *string `json:"title_ref,omitempty"`
	AuthorRef       *string `json:"author_ref,omitempty"`
	ParentSegmentID *string `json:"parent_segment_id,omitempty"`
}

// ListSegmentsRequest pages and filters a segment listing
type ListSegmentsRequest struct {
	Status *string
	Offset int
	Limit  int
}

// UpdateSegmentRequest represents a partial segment update. Only non-nil
// fields are applied; setting an annotation field to the empty string clears
// it (and can flip is_annotated off).
//
// Comments can change two ways: Comments replaces the whole log (legacy
// callers sent the raw column value, which CommentList normalizes from any
// of its historical shapes), while CommentContent plus CommentUsername
// appends one timestamped entry.
type UpdateSegmentRequest struct {
	Text            *string              `json:"text,omitempty"`
	Title           *string              `json:"title,omitempty"`
	Author          *string              `json:"author,omitempty"`
	TitleRef        *string              `json:"title_ref,omitempty"`
	AuthorRef       *string              `json:"author_ref,omitempty"`
	ParentSegmentID *string              `json:"parent_segment_id,omitempty"`
	IsAttached      *bool                `json:"is_attached,omitempty"`
	Status          *string              `json:"status,omitempty"`
	Comments        *outline.CommentList `json:"comment,omitempty"`
	CommentContent  *string              `json:"comment_content,omitempty"`
	CommentUsername *string              `json:"comment_username,omitempty"`
}

// SplitSegmentRequest splits SegmentID at SplitPosition (rune offset within
// the segment's own text, strictly inside it). DocumentID enables the
// lazy-materialization path when the segment does not exist yet.
type SplitSegmentRequest struct {
	SegmentID     string  `json:"segment_id"`
	SplitPosition int     `json:"split_position"`
	DocumentID    *string `json:"document_id,omitempty"`
}

// BulkUpdateItem is one update of a bulk batch; ID selects the segment and
// the remaining fields follow UpdateSegmentRequest semantics, plus optional
// span/index rewrites used by large repartitioning edits.
type BulkUpdateItem struct {
	ID              string  `json:"id"`
	Text            *string `json:"text,omitempty"`
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	TitleRef        *string `json:"title_ref,omitempty"`
	AuthorRef       *string `json:"author_ref,omitempty"`
	ParentSegmentID *string `json:"parent_segment_id,omitempty"`
	IsAttached      *bool   `json:"is_attached,omitempty"`
	Status          *string `json:"status,omitempty"`
	SpanStart       *int    `json:"span_start,omitempty"`
	SpanEnd         *int    `json:"span_end,omitempty"`
	SegmentIndex    *int    `json:"segment_index,omitempty"`
}

// BulkOperationsRequest is applied in the fixed order delete, update, create.
type BulkOperationsRequest struct {
	Create []CreateSegmentRequest `json:"create,omitempty"`
	Update []BulkUpdateItem       `json:"update,omitempty"`
	Delete []string               `json:"delete,omitempty"`
}
