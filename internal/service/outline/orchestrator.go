package outline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"outliner/internal/cache"
	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	baseRepo "outliner/internal/domain/repositories"
	repositories "outliner/internal/domain/repositories/outline"
	services "outliner/internal/domain/services/outline"
	"outliner/internal/service/detect"
)

// BoundaryDetector produces candidate segment-start offsets for a text.
// Implemented by detect.Detector.
type BoundaryDetector interface {
	Detect(ctx context.Context, text string, opts detect.Options) ([]int, error)
}

// segmentationService ties boundary detection to the mutation engine.
type segmentationService struct {
	docRepo   repositories.DocumentRepository
	segRepo   repositories.SegmentRepository
	txManager baseRepo.TransactionManager
	detector  BoundaryDetector
	content   *contentReader
	progress  *progressTracker
	logger    *slog.Logger
}

// NewSegmentationService creates a new segmentation orchestrator
func NewSegmentationService(
	docRepo repositories.DocumentRepository,
	segRepo repositories.SegmentRepository,
	txManager baseRepo.TransactionManager,
	contentCache *cache.ContentCache,
	detector BoundaryDetector,
	logger *slog.Logger,
) services.SegmentationService {
	return &segmentationService{
		docRepo:   docRepo,
		segRepo:   segRepo,
		txManager: txManager,
		detector:  detector,
		content:   &contentReader{docRepo: docRepo, cache: contentCache, logger: logger},
		progress:  &progressTracker{docRepo: docRepo, segRepo: segRepo, logger: logger},
		logger:    logger,
	}
}

// SegmentDocument detects boundaries over the whole content and replaces
// any prior segmentation with one segment per detected interval. Detection
// runs outside the transaction; only the replacement is transactional.
func (s *segmentationService) SegmentDocument(ctx context.Context, documentID string) ([]models.Segment, error) {
	content, err := s.content.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	offsets, err := s.detector.Detect(ctx, content, detect.Options{})
	if err != nil {
		return nil, err
	}

	segments := segmentsFromOffsets(documentID, content, 0, 0, offsets)

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.segRepo.DeleteByDocument(ctx, documentID); err != nil {
			return err
		}
		if err := s.segRepo.CreateBatch(ctx, segments); err != nil {
			return err
		}
		if err := s.progress.Recompute(ctx, documentID); err != nil {
			return err
		}
		return verifyPartition(ctx, s.content, s.segRepo, documentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document segmented",
		"document_id", documentID,
		"segments", len(segments),
		"content_runes", runeLen(content),
	)

	result := make([]models.Segment, 0, len(segments))
	for _, seg := range segments {
		result = append(result, *seg)
	}
	return result, nil
}

// SubdivideSegment detects boundaries within one segment's text and
// replaces the segment with the detected children at absolute document
// offsets. A single rule-phase position triggers the classifier fallback
// (one position means no internal split was found). The parent's
// annotation contribution leaves the counters with a single -1 delta;
// children start unannotated.
func (s *segmentationService) SubdivideSegment(ctx context.Context, segmentID string, contentOverride *string) ([]models.Segment, error) {
	parent, err := s.segRepo.GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	text := parent.Text
	if contentOverride != nil && *contentOverride != "" {
		text = *contentOverride
	}

	offsets, err := s.detector.Detect(ctx, text, detect.Options{SubdivideMode: true})
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 || offsets[0] != 0 {
		return nil, fmt.Errorf("detected offsets %v do not cover the text from position 0: %w",
			offsets, domain.ErrIncompleteSegmentation)
	}

	children := segmentsFromOffsets(parent.DocumentID, text, parent.SpanStart, parent.SegmentIndex, offsets)
	for _, child := range children {
		child.ParentSegmentID = parent.ParentSegmentID
	}

	annotatedDelta := 0
	if parent.IsAnnotated {
		annotatedDelta = -1
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.segRepo.Delete(ctx, parent.ID); err != nil {
			return err
		}
		if shift := len(children) - 1; shift != 0 {
			if err := s.segRepo.ShiftIndexes(ctx, parent.DocumentID, parent.SegmentIndex, shift); err != nil {
				return err
			}
		}
		if err := s.segRepo.CreateBatch(ctx, children); err != nil {
			return err
		}
		if err := s.progress.ApplyDelta(ctx, parent.DocumentID, len(children)-1, annotatedDelta); err != nil {
			return err
		}
		return verifyPartition(ctx, s.content, s.segRepo, parent.DocumentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("segment subdivided",
		"segment_id", segmentID,
		"document_id", parent.DocumentID,
		"children", len(children),
	)

	result := make([]models.Segment, 0, len(children))
	for _, child := range children {
		result = append(result, *child)
	}
	return result, nil
}

// segmentsFromOffsets builds one segment per interval [offsets[i],
// offsets[i+1]), the last interval running to the end of text. Spans are
// absolute document offsets: baseOffset is added to every interval, and
// indexes count up from baseIndex.
func segmentsFromOffsets(documentID, text string, baseOffset, baseIndex int, offsets []int) []*models.Segment {
	textLen := runeLen(text)
	now := time.Now()

	segments := make([]*models.Segment, 0, len(offsets))
	for i, start := range offsets {
		end := textLen
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}

		segments = append(segments, &models.Segment{
			ID:           uuid.NewString(),
			DocumentID:   documentID,
			Text:         runeSlice(text, start, end),
			SegmentIndex: baseIndex + i,
			SpanStart:    baseOffset + start,
			SpanEnd:      baseOffset + end,
			Status:       models.SegmentStatusUnchecked,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return segments
}
