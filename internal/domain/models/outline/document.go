package outline

import (
	"time"
)

// Document statuses. "deleted" is a soft state: deleted documents are
// excluded from listings by default but remain restorable by their owner.
const (
	DocumentStatusActive    = "active"
	DocumentStatusCompleted = "completed"
	DocumentStatusDeleted   = "deleted"
	DocumentStatusApproved  = "approved"
	DocumentStatusRejected  = "rejected"
)

// DocumentStatuses is the allowed set for status transitions.
var DocumentStatuses = []string{
	DocumentStatusActive,
	DocumentStatusCompleted,
	DocumentStatusDeleted,
	DocumentStatusApproved,
	DocumentStatusRejected,
}

// ValidDocumentStatus reports whether s is an allowed document status.
func ValidDocumentStatus(s string) bool {
	for _, v := range DocumentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Document holds the full text content and the aggregate annotation-progress
// counters for one outliner document. Content is immutable except via an
// explicit content replace; counters are maintained incrementally by the
// progress accumulator and recomputed after bulk structural changes.
type Document struct {
	ID                 string    `json:"id" db:"id"`
	Content            string    `json:"content" db:"content"`
	Filename           *string   `json:"filename" db:"filename"`
	UserID             *string   `json:"user_id" db:"user_id"`
	TotalSegments      int       `json:"total_segments" db:"total_segments"`
	AnnotatedSegments  int       `json:"annotated_segments" db:"annotated_segments"`
	ProgressPercentage float64   `json:"progress_percentage" db:"progress_percentage"`
	Status             string    `json:"status" db:"status"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`

	// Segments is populated on demand (document get), ordered by segment_index.
	Segments []Segment `json:"segments,omitempty"`
}

// UpdateProgress recomputes the derived percentage from the counters.
// Zero total segments yields 0, not a division error.
func (d *Document) UpdateProgress() {
	if d.TotalSegments > 0 {
		d.ProgressPercentage = float64(d.AnnotatedSegments) / float64(d.TotalSegments) * 100
	} else {
		d.ProgressPercentage = 0
	}
}

// DocumentSummary is the listing projection: metadata and counters without
// the (potentially very large) content column.
type DocumentSummary struct {
	ID                 string    `json:"id"`
	Filename           *string   `json:"filename"`
	UserID             *string   `json:"user_id"`
	TotalSegments      int       `json:"total_segments"`
	AnnotatedSegments  int       `json:"annotated_segments"`
	ProgressPercentage float64   `json:"progress_percentage"`
	CheckedSegments    int       `json:"checked_segments"`
	UncheckedSegments  int       `json:"unchecked_segments"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Progress is the per-document progress snapshot returned by the progress
// endpoint and recomputed by the accumulator.
type Progress struct {
	DocumentID         string    `json:"document_id"`
	TotalSegments      int       `json:"total_segments"`
	AnnotatedSegments  int       `json:"annotated_segments"`
	CheckedSegments    int       `json:"checked_segments"`
	UncheckedSegments  int       `json:"unchecked_segments"`
	ProgressPercentage float64   `json:"progress_percentage"`
	UpdatedAt          time.Time `json:"updated_at"`
}
