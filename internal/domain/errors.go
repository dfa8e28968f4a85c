package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Segmentation domain errors. All map to client errors except
	// ErrBrokenPartition (internal invariant violation) and
	// ErrDetectionFailed (upstream classifier failure).
	ErrInvalidSpan            = errors.New("invalid span")
	ErrInvalidSplitPosition   = errors.New("invalid split position")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrCrossDocumentMerge     = errors.New("segments belong to different documents")
	ErrCommentNotFound        = errors.New("comment not found")
	ErrBrokenPartition        = errors.New("segment partition invariant violated")
	ErrIncompleteSegmentation = errors.New("incomplete segmentation")
	ErrDetectionFailed        = errors.New("boundary detection failed")
)

// SegmentsNotFoundError reports the exact set of segment IDs a multi-segment
// operation could not resolve, so the caller can fix its batch.
type SegmentsNotFoundError struct {
	MissingIDs []string
}

func (e *SegmentsNotFoundError) Error() string {
	return fmt.Sprintf("segments not found: %v", e.MissingIDs)
}

// Is allows errors.Is() to match against ErrNotFound
func (e *SegmentsNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PartitionError describes where a segment partition broke. It should never
// surface from correct mutation logic; when it does it is logged loudly and
// treated as an internal failure rather than silently patched.
type PartitionError struct {
	DocumentID string
	Detail     string
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("broken partition for document %s: %s", e.DocumentID, e.Detail)
}

func (e *PartitionError) Is(target error) bool {
	return target == ErrBrokenPartition
}
