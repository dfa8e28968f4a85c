package outline

import (
	"context"
	"log/slog"

	repositories "outliner/internal/domain/repositories/outline"
)

// progressTracker keeps a document's total/annotated counters and derived
// percentage consistent with its segments. Single-field updates use the
// cheap delta path; structural mutations recompute from scratch.
type progressTracker struct {
	docRepo repositories.DocumentRepository
	segRepo repositories.SegmentRepository
	logger  *slog.Logger
}

// Recompute recounts the document's segments and rewrites the counters.
func (p *progressTracker) Recompute(ctx context.Context, documentID string) error {
	total, annotated, err := p.segRepo.Count(ctx, documentID)
	if err != nil {
		return err
	}
	return p.docRepo.UpdateProgress(ctx, documentID, total, annotated, percentage(total, annotated))
}

// ApplyDelta adjusts the counters without counting. Results are clamped to
// keep 0 <= annotated <= total even if a caller double-applies a delta.
func (p *progressTracker) ApplyDelta(ctx context.Context, documentID string, totalDelta, annotatedDelta int) error {
	if totalDelta == 0 && annotatedDelta == 0 {
		return nil
	}

	doc, err := p.docRepo.GetMeta(ctx, documentID)
	if err != nil {
		return err
	}

	total := doc.TotalSegments + totalDelta
	if total < 0 {
		p.logger.Warn("progress total underflow, clamping",
			"document_id", documentID,
			"total", total)
		total = 0
	}

	annotated := doc.AnnotatedSegments + annotatedDelta
	if annotated < 0 {
		annotated = 0
	}
	if annotated > total {
		annotated = total
	}

	return p.docRepo.UpdateProgress(ctx, documentID, total, annotated, percentage(total, annotated))
}

// annotationDelta maps an is_annotated flip to the counter delta: +1 when a
// segment becomes annotated, -1 when it stops being annotated, 0 otherwise.
func annotationDelta(old, current bool) int {
	switch {
	case old && !current:
		return -1
	case !old && current:
		return 1
	default:
		return 0
	}
}

func percentage(total, annotated int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(annotated) / float64(total) * 100
}
