package outline

import (
	"time"
)

// Segment statuses.
const (
	SegmentStatusUnchecked = "unchecked"
	SegmentStatusChecked   = "checked"
	SegmentStatusApproved  = "approved"
)

// SegmentStatuses is the allowed set for segment status updates.
var SegmentStatuses = []string{
	SegmentStatusUnchecked,
	SegmentStatusChecked,
	SegmentStatusApproved,
}

// ValidSegmentStatus reports whether s is an allowed segment status.
func ValidSegmentStatus(s string) bool {
	for _, v := range SegmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Segment is one span of a document's partition: a half-open rune interval
// [SpanStart, SpanEnd) into the document content, its denormalized text, and
// its annotations. SegmentIndex is the 0-based rank in document order; for a
// valid partition the indexes are exactly 0..N-1 and adjacent spans are
// contiguous.
type Segment struct {
	ID              string      `json:"id" db:"id"`
	DocumentID      string      `json:"document_id" db:"document_id"`
	Text            string      `json:"text" db:"text"`
	SegmentIndex    int         `json:"segment_index" db:"segment_index"`
	SpanStart       int         `json:"span_start" db:"span_start"`
	SpanEnd         int         `json:"span_end" db:"span_end"`
	Title           *string     `json:"title" db:"title"`
	Author          *string     `json:"author" db:"author"`
	TitleRef        *string     `json:"title_ref" db:"title_ref"`
	AuthorRef       *string     `json:"author_ref" db:"author_ref"`
	ParentSegmentID *string     `json:"parent_segment_id" db:"parent_segment_id"`
	Status          string      `json:"status" db:"status"`
	IsAnnotated     bool        `json:"is_annotated" db:"is_annotated"`
	IsAttached      bool        `json:"is_attached" db:"is_attached"`
	Comments        CommentList `json:"comments" db:"comment"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// UpdateAnnotationStatus refreshes the derived IsAnnotated flag: true iff a
// non-empty title or author is set. Empty strings count as unset so that
// clearing an annotation flips the flag back.
func (s *Segment) UpdateAnnotationStatus() {
	s.IsAnnotated = (s.Title != nil && *s.Title != "") || (s.Author != nil && *s.Author != "")
}
