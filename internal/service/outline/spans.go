package outline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	repositories "outliner/internal/domain/repositories/outline"
)

// Span offsets are rune offsets, not byte offsets: the content is
// predominantly Tibetan and CJK text, and clients address it by character
// position. All slicing below goes through runeSlice.

// runeSlice returns content[start:end] in rune offsets. Callers must have
// validated the span against runeLen(content).
func runeSlice(content string, start, end int) string {
	runes := []rune(content)
	return string(runes[start:end])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// validateSpan checks a half-open [start, end) span against a content
// length in runes.
func validateSpan(start, end, contentLen int) error {
	if start < 0 || end < start || end > contentLen {
		return fmt.Errorf("span [%d, %d) out of bounds for content length %d: %w",
			start, end, contentLen, domain.ErrInvalidSpan)
	}
	return nil
}

// validatePartition checks that segments (ordered by segment_index) form a
// valid partition of the content: indexes exactly 0..N-1, the first span
// starts at 0, adjacent spans are contiguous, and the last span ends at the
// content length. An empty segment set is a valid (empty) partition.
func validatePartition(documentID string, segments []models.Segment, contentLen int) error {
	if len(segments) == 0 {
		return nil
	}

	for i, seg := range segments {
		if seg.SegmentIndex != i {
			return &domain.PartitionError{
				DocumentID: documentID,
				Detail:     fmt.Sprintf("expected segment_index %d, found %d", i, seg.SegmentIndex),
			}
		}
		if i == 0 && seg.SpanStart != 0 {
			return &domain.PartitionError{
				DocumentID: documentID,
				Detail:     fmt.Sprintf("first span starts at %d, not 0", seg.SpanStart),
			}
		}
		if i > 0 && seg.SpanStart != segments[i-1].SpanEnd {
			return &domain.PartitionError{
				DocumentID: documentID,
				Detail: fmt.Sprintf("gap between spans at index %d: previous ends at %d, next starts at %d",
					i, segments[i-1].SpanEnd, seg.SpanStart),
			}
		}
		if seg.SpanEnd < seg.SpanStart {
			return &domain.PartitionError{
				DocumentID: documentID,
				Detail:     fmt.Sprintf("inverted span [%d, %d) at index %d", seg.SpanStart, seg.SpanEnd, i),
			}
		}
	}

	if last := segments[len(segments)-1]; last.SpanEnd != contentLen {
		return &domain.PartitionError{
			DocumentID: documentID,
			Detail:     fmt.Sprintf("last span ends at %d, content length is %d", last.SpanEnd, contentLen),
		}
	}

	return nil
}

// verifyPartition is the post-condition check for structural mutations
// (split, merge, bulk, segmentation): it re-reads the document's segments
// inside the transaction and fails the mutation when they no longer form a
// valid partition of the content, rolling the whole change back.
func verifyPartition(ctx context.Context, content *contentReader, segRepo repositories.SegmentRepository, documentID string) error {
	text, err := content.Get(ctx, documentID)
	if err != nil {
		return err
	}
	segments, err := segRepo.ListByDocument(ctx, documentID, repositories.ListSegmentsOptions{})
	if err != nil {
		return err
	}
	return validatePartition(documentID, segments, runeLen(text))
}
