package outline

import (
	"context"
	"testing"

	models "outliner/internal/domain/models/outline"
)

func TestAnnotationDelta(t *testing.T) {
	tests := []struct {
		name         string
		old, current bool
		want         int
	}{
		{name: "becomes annotated", old: false, current: true, want: 1},
		{name: "stops being annotated", old: true, current: false, want: -1},
		{name: "stays annotated", old: true, current: true, want: 0},
		{name: "stays unannotated", old: false, current: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := annotationDelta(tt.old, tt.current); got != tt.want {
				t.Errorf("annotationDelta(%v, %v) = %d, want %d", tt.old, tt.current, got, tt.want)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		total, annotated int
		want             float64
	}{
		{0, 0, 0},
		{4, 1, 25},
		{4, 4, 100},
		{3, 0, 0},
	}

	for _, tt := range tests {
		if got := percentage(tt.total, tt.annotated); got != tt.want {
			t.Errorf("percentage(%d, %d) = %v, want %v", tt.total, tt.annotated, got, tt.want)
		}
	}
}

func TestProgressRecompute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	doc := env.addDocument("doc-1", "ABCDEFGHIJ")
	title := "A Title"
	env.addSegment(&models.Segment{ID: "seg-1", DocumentID: "doc-1", SegmentIndex: 0, Title: &title, IsAnnotated: true})
	env.addSegment(&models.Segment{ID: "seg-2", DocumentID: "doc-1", SegmentIndex: 1})

	tracker := &progressTracker{docRepo: env.docRepo, segRepo: env.segRepo, logger: env.logger}
	if err := tracker.Recompute(ctx, "doc-1"); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if doc.TotalSegments != 2 || doc.AnnotatedSegments != 1 {
		t.Errorf("counters = (%d, %d), want (2, 1)", doc.TotalSegments, doc.AnnotatedSegments)
	}
	if doc.ProgressPercentage != 50 {
		t.Errorf("percentage = %v, want 50", doc.ProgressPercentage)
	}
}

func TestProgressApplyDelta(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		annotated      int
		totalDelta     int
		annotatedDelta int
		wantTotal      int
		wantAnnotated  int
	}{
		{
			name:  "plain increment",
			total: 3, annotated: 1,
			totalDelta: 1, annotatedDelta: 1,
			wantTotal: 4, wantAnnotated: 2,
		},
		{
			name:  "annotated clamped to total",
			total: 2, annotated: 2,
			totalDelta: -1, annotatedDelta: 0,
			wantTotal: 1, wantAnnotated: 1,
		},
		{
			name:  "underflow clamps to zero",
			total: 1, annotated: 1,
			totalDelta: -3, annotatedDelta: -3,
			wantTotal: 0, wantAnnotated: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			doc := env.addDocument("doc-1", "content")
			doc.TotalSegments = tt.total
			doc.AnnotatedSegments = tt.annotated

			tracker := &progressTracker{docRepo: env.docRepo, segRepo: env.segRepo, logger: env.logger}
			if err := tracker.ApplyDelta(context.Background(), "doc-1", tt.totalDelta, tt.annotatedDelta); err != nil {
				t.Fatalf("ApplyDelta() error = %v", err)
			}

			if doc.TotalSegments != tt.wantTotal || doc.AnnotatedSegments != tt.wantAnnotated {
				t.Errorf("counters = (%d, %d), want (%d, %d)",
					doc.TotalSegments, doc.AnnotatedSegments, tt.wantTotal, tt.wantAnnotated)
			}
		})
	}

	t.Run("zero delta skips the document lookup", func(t *testing.T) {
		env := newTestEnv()
		tracker := &progressTracker{docRepo: env.docRepo, segRepo: env.segRepo, logger: env.logger}
		if err := tracker.ApplyDelta(context.Background(), "missing", 0, 0); err != nil {
			t.Errorf("ApplyDelta() error = %v, want nil", err)
		}
	})
}
