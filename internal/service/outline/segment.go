package outline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"outliner/internal/cache"
	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	baseRepo "outliner/internal/domain/repositories"
	repositories "outliner/internal/domain/repositories/outline"
	services "outliner/internal/domain/services/outline"
)

// segmentService implements the SegmentService interface. Every mutation
// runs inside one transaction and leaves the document's partition and
// progress counters consistent; on failure the transaction rolls back and
// no partial segment set is ever visible.
type segmentService struct {
	docRepo   repositories.DocumentRepository
	segRepo   repositories.SegmentRepository
	txManager baseRepo.TransactionManager
	content   *contentReader
	progress  *progressTracker
	logger    *slog.Logger
}

// NewSegmentService creates a new segment service
func NewSegmentService(
	docRepo repositories.DocumentRepository,
	segRepo repositories.SegmentRepository,
	txManager baseRepo.TransactionManager,
	contentCache *cache.ContentCache,
	logger *slog.Logger,
) services.SegmentService {
	return &segmentService{
		docRepo:   docRepo,
		segRepo:   segRepo,
		txManager: txManager,
		content:   &contentReader{docRepo: docRepo, cache: contentCache, logger: logger},
		progress:  &progressTracker{docRepo: docRepo, segRepo: segRepo, logger: logger},
		logger:    logger,
	}
}

// CreateSegment creates one segment. When no text is supplied it is sliced
// from the document content by the span's rune offsets.
func (s *segmentService) CreateSegment(ctx context.Context, documentID string, req *services.CreateSegmentRequest) (*models.Segment, error) {
	var created *models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		content, err := s.content.Get(ctx, documentID)
		if err != nil {
			return err
		}

		seg, err := s.buildSegment(documentID, content, req)
		if err != nil {
			return err
		}

		if err := s.segRepo.Create(ctx, seg); err != nil {
			return err
		}
		if err := s.progress.Recompute(ctx, documentID); err != nil {
			return err
		}

		created = seg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("segment created",
		"id", created.ID,
		"document_id", documentID,
		"segment_index", created.SegmentIndex,
		"span_start", created.SpanStart,
		"span_end", created.SpanEnd,
	)
	return created, nil
}

// CreateSegmentsBulk creates many segments in one transaction
func (s *segmentService) CreateSegmentsBulk(ctx context.Context, documentID string, reqs []services.CreateSegmentRequest) ([]models.Segment, error) {
	var created []models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		content, err := s.content.Get(ctx, documentID)
		if err != nil {
			return err
		}

		segs := make([]*models.Segment, 0, len(reqs))
		for i := range reqs {
			seg, err := s.buildSegment(documentID, content, &reqs[i])
			if err != nil {
				return err
			}
			segs = append(segs, seg)
		}

		if err := s.segRepo.CreateBatch(ctx, segs); err != nil {
			return err
		}
		if err := s.progress.Recompute(ctx, documentID); err != nil {
			return err
		}

		created = make([]models.Segment, 0, len(segs))
		for _, seg := range segs {
			created = append(created, *seg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("segments created", "document_id", documentID, "count", len(created))
	return created, nil
}

// GetSegment retrieves a segment by ID
func (s *segmentService) GetSegment(ctx context.Context, id string) (*models.Segment, error) {
	return s.segRepo.GetByID(ctx, id)
}

// ListSegments returns a document's segments ordered by index
func (s *segmentService) ListSegments(ctx context.Context, documentID string, req *services.ListSegmentsRequest) ([]models.Segment, error) {
	if req.Status != nil && !models.ValidSegmentStatus(*req.Status) {
		return nil, fmt.Errorf("%w: status must be one of %s",
			domain.ErrInvalidStatus, strings.Join(models.SegmentStatuses, ", "))
	}

	return s.segRepo.ListByDocument(ctx, documentID, repositories.ListSegmentsOptions{
		Status: req.Status,
		Offset: req.Offset,
		Limit:  req.Limit,
	})
}

// UpdateSegment partially updates mutable fields. Annotation-status changes
// are reconciled into the document counters with a delta, not a recount.
func (s *segmentService) UpdateSegment(ctx context.Context, id string, req *services.UpdateSegmentRequest) (*models.Segment, error) {
	if req.Status != nil && !models.ValidSegmentStatus(*req.Status) {
		return nil, fmt.Errorf("%w: status must be one of %s",
			domain.ErrInvalidStatus, strings.Join(models.SegmentStatuses, ", "))
	}

	var updated *models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.segRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		wasAnnotated := seg.IsAnnotated
		applySegmentUpdate(seg, req)
		seg.UpdateAnnotationStatus()

		if err := s.segRepo.Update(ctx, seg); err != nil {
			return err
		}
		if delta := annotationDelta(wasAnnotated, seg.IsAnnotated); delta != 0 {
			if err := s.progress.ApplyDelta(ctx, seg.DocumentID, 0, delta); err != nil {
				return err
			}
		}

		updated = seg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdateSegmentStatus sets the segment status
func (s *segmentService) UpdateSegmentStatus(ctx context.Context, id, status string) (*models.Segment, error) {
	if !models.ValidSegmentStatus(status) {
		return nil, fmt.Errorf("%w: status must be one of %s",
			domain.ErrInvalidStatus, strings.Join(models.SegmentStatuses, ", "))
	}

	var updated *models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.segRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		seg.Status = status
		if err := s.segRepo.Update(ctx, seg); err != nil {
			return err
		}

		updated = seg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteSegment removes a segment and closes the index gap
func (s *segmentService) DeleteSegment(ctx context.Context, id string) error {
	return s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.segRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := s.segRepo.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.segRepo.ShiftIndexes(ctx, seg.DocumentID, seg.SegmentIndex, -1); err != nil {
			return err
		}
		return s.progress.Recompute(ctx, seg.DocumentID)
	})
}

// SplitSegment splits a segment at a rune offset strictly inside its text.
// The first half keeps the original segment's identity and annotations; the
// second half starts unannotated, inheriting parent and status. When the
// segment does not exist and a document ID is supplied, the initial
// full-document segment is materialized first and then split.
func (s *segmentService) SplitSegment(ctx context.Context, req *services.SplitSegmentRequest) ([]models.Segment, error) {
	var halves []models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.resolveSplitTarget(ctx, req)
		if err != nil {
			return err
		}

		textLen := runeLen(seg.Text)
		if req.SplitPosition <= 0 || req.SplitPosition >= textLen {
			return fmt.Errorf("position %d not inside text of length %d: %w",
				req.SplitPosition, textLen, domain.ErrInvalidSplitPosition)
		}

		firstEnd := seg.SpanStart + req.SplitPosition
		if firstEnd > seg.SpanEnd {
			return fmt.Errorf("position %d beyond span [%d, %d): %w",
				req.SplitPosition, seg.SpanStart, seg.SpanEnd, domain.ErrInvalidSplitPosition)
		}

		// Never trim: spans must preserve whitespace and newlines exactly.
		textBefore := runeSlice(seg.Text, 0, req.SplitPosition)
		textAfter := runeSlice(seg.Text, req.SplitPosition, textLen)

		second := &models.Segment{
			ID:              uuid.NewString(),
			DocumentID:      seg.DocumentID,
			Text:            textAfter,
			SegmentIndex:    seg.SegmentIndex + 1,
			SpanStart:       firstEnd,
			SpanEnd:         seg.SpanEnd,
			ParentSegmentID: seg.ParentSegmentID,
			Status:          seg.Status,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}

		seg.Text = textBefore
		seg.SpanEnd = firstEnd
		seg.UpdateAnnotationStatus()

		if err := s.segRepo.ShiftIndexes(ctx, seg.DocumentID, seg.SegmentIndex, 1); err != nil {
			return err
		}
		if err := s.segRepo.Update(ctx, seg); err != nil {
			return err
		}
		if err := s.segRepo.Create(ctx, second); err != nil {
			return err
		}
		if err := s.progress.Recompute(ctx, seg.DocumentID); err != nil {
			return err
		}
		if err := verifyPartition(ctx, s.content, s.segRepo, seg.DocumentID); err != nil {
			return err
		}

		halves = []models.Segment{*seg, *second}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("segment split",
		"id", halves[0].ID,
		"document_id", halves[0].DocumentID,
		"position", req.SplitPosition,
		"new_segment_id", halves[1].ID,
	)
	return halves, nil
}

// MergeSegments merges two or more segments of one document into the first
// (by index order). Annotation fields resolve first-non-empty-wins; the
// merged span runs from the first segment's start to the last one's end.
func (s *segmentService) MergeSegments(ctx context.Context, segmentIDs []string) (*models.Segment, error) {
	if len(segmentIDs) < 2 {
		return nil, fmt.Errorf("%w: at least 2 segments required for merge", domain.ErrValidation)
	}

	var merged *models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		segments, err := s.segRepo.ListByIDs(ctx, segmentIDs)
		if err != nil {
			return err
		}
		if len(segments) != len(segmentIDs) {
			return &domain.SegmentsNotFoundError{MissingIDs: missingIDs(segmentIDs, segments)}
		}

		documentID := segments[0].DocumentID
		for _, seg := range segments[1:] {
			if seg.DocumentID != documentID {
				return fmt.Errorf("%w", domain.ErrCrossDocumentMerge)
			}
		}

		var text strings.Builder
		for _, seg := range segments {
			text.WriteString(seg.Text)
		}

		first := &segments[0]
		first.Text = text.String()
		first.SpanEnd = segments[len(segments)-1].SpanEnd
		first.Title = firstNonEmpty(segments, func(seg *models.Segment) *string { return seg.Title })
		first.Author = firstNonEmpty(segments, func(seg *models.Segment) *string { return seg.Author })
		first.TitleRef = firstNonEmpty(segments, func(seg *models.Segment) *string { return seg.TitleRef })
		first.AuthorRef = firstNonEmpty(segments, func(seg *models.Segment) *string { return seg.AuthorRef })
		first.UpdateAnnotationStatus()

		rest := make([]string, 0, len(segments)-1)
		for _, seg := range segments[1:] {
			rest = append(rest, seg.ID)
		}

		if err := s.segRepo.DeleteBatch(ctx, rest); err != nil {
			return err
		}
		if err := s.segRepo.Update(ctx, first); err != nil {
			return err
		}
		if err := s.segRepo.ShiftIndexes(ctx, documentID, first.SegmentIndex, -(len(segments) - 1)); err != nil {
			return err
		}
		if err := s.progress.Recompute(ctx, documentID); err != nil {
			return err
		}
		if err := verifyPartition(ctx, s.content, s.segRepo, documentID); err != nil {
			return err
		}

		merged = first
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("segments merged",
		"id", merged.ID,
		"document_id", merged.DocumentID,
		"merged_count", len(segmentIDs),
	)
	return merged, nil
}

// BulkOperations applies delete, then update, then create in one
// transaction. A missing segment in any phase aborts the whole batch.
func (s *segmentService) BulkOperations(ctx context.Context, documentID string, req *services.BulkOperationsRequest) ([]models.Segment, error) {
	var result []models.Segment

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		content, err := s.content.Get(ctx, documentID)
		if err != nil {
			return err
		}

		result = result[:0]

		if err := s.bulkDelete(ctx, documentID, req.Delete); err != nil {
			return err
		}

		updated, err := s.bulkUpdate(ctx, documentID, req.Update)
		if err != nil {
			return err
		}
		result = append(result, updated...)

		created, err := s.bulkCreate(ctx, documentID, content, req.Create)
		if err != nil {
			return err
		}
		result = append(result, created...)

		if err := s.progress.Recompute(ctx, documentID); err != nil {
			return err
		}
		return verifyPartition(ctx, s.content, s.segRepo, documentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk segment operations applied",
		"document_id", documentID,
		"deleted", len(req.Delete),
		"updated", len(req.Update),
		"created", len(req.Create),
	)
	return result, nil
}

// EnsureSegmented materializes the initial full-document segment when the
// document has none. Idempotent; returns true if a segment was created.
func (s *segmentService) EnsureSegmented(ctx context.Context, documentID string) (bool, error) {
	var created bool

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		total, _, err := s.segRepo.Count(ctx, documentID)
		if err != nil {
			return err
		}
		if total > 0 {
			return nil
		}

		content, err := s.content.Get(ctx, documentID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(content) == "" {
			return nil
		}

		seg := &models.Segment{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Text:       content,
			SpanStart:  0,
			SpanEnd:    runeLen(content),
			Status:     models.SegmentStatusUnchecked,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		if err := s.segRepo.Create(ctx, seg); err != nil {
			return err
		}
		if err := s.progress.Recompute(ctx, documentID); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		s.logger.Info("initial segment materialized", "document_id", documentID)
	}
	return created, nil
}

// ResetSegments deletes every segment of a document
func (s *segmentService) ResetSegments(ctx context.Context, documentID string) error {
	return s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := s.docRepo.GetMeta(ctx, documentID); err != nil {
			return err
		}
		if err := s.segRepo.DeleteByDocument(ctx, documentID); err != nil {
			return err
		}
		return s.progress.Recompute(ctx, documentID)
	})
}

// resolveSplitTarget loads the split target, materializing the initial
// full-document segment when the target is absent and the document has no
// segments at all.
func (s *segmentService) resolveSplitTarget(ctx context.Context, req *services.SplitSegmentRequest) (*models.Segment, error) {
	seg, err := s.segRepo.GetByID(ctx, req.SegmentID)
	if err == nil {
		return seg, nil
	}
	if req.DocumentID == nil {
		return nil, err
	}

	total, _, countErr := s.segRepo.Count(ctx, *req.DocumentID)
	if countErr != nil {
		return nil, countErr
	}
	if total > 0 {
		return nil, err
	}

	content, err := s.content.Get(ctx, *req.DocumentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: document has no content to split", domain.ErrValidation)
	}

	initial := &models.Segment{
		ID:         uuid.NewString(),
		DocumentID: *req.DocumentID,
		Text:       content,
		SpanStart:  0,
		SpanEnd:    runeLen(content),
		Status:     models.SegmentStatusUnchecked,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.segRepo.Create(ctx, initial); err != nil {
		return nil, err
	}
	return initial, nil
}

func (s *segmentService) buildSegment(documentID, content string, req *services.CreateSegmentRequest) (*models.Segment, error) {
	var text string
	if req.Text != nil && *req.Text != "" {
		text = *req.Text
	} else {
		if err := validateSpan(req.SpanStart, req.SpanEnd, runeLen(content)); err != nil {
			return nil, err
		}
		text = runeSlice(content, req.SpanStart, req.SpanEnd)
	}

	index := 0
	if req.SegmentIndex != nil {
		index = *req.SegmentIndex
	}

	seg := &models.Segment{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		Text:            text,
		SegmentIndex:    index,
		SpanStart:       req.SpanStart,
		SpanEnd:         req.SpanEnd,
		Title:           req.Title,
		Author:          req.Author,
		TitleRef:        req.TitleRef,
		AuthorRef:       req.AuthorRef,
		ParentSegmentID: req.ParentSegmentID,
		Status:          models.SegmentStatusUnchecked,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	seg.UpdateAnnotationStatus()
	return seg, nil
}

func (s *segmentService) bulkDelete(ctx context.Context, documentID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	segments, err := s.segRepo.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	segments = filterByDocument(segments, documentID)
	if len(segments) != len(ids) {
		return &domain.SegmentsNotFoundError{MissingIDs: missingIDs(ids, segments)}
	}

	maxIndex := -1
	for _, seg := range segments {
		if seg.SegmentIndex > maxIndex {
			maxIndex = seg.SegmentIndex
		}
	}

	if err := s.segRepo.DeleteBatch(ctx, ids); err != nil {
		return err
	}
	if maxIndex >= 0 {
		if err := s.segRepo.ShiftIndexes(ctx, documentID, maxIndex, -len(segments)); err != nil {
			return err
		}
	}
	return nil
}

func (s *segmentService) bulkUpdate(ctx context.Context, documentID string, items []services.BulkUpdateItem) ([]models.Segment, error) {
	if len(items) == 0 {
		return nil, nil
	}

	byID := make(map[string]*services.BulkUpdateItem, len(items))
	ids := make([]string, 0, len(items))
	for i := range items {
		if items[i].Status != nil && !models.ValidSegmentStatus(*items[i].Status) {
			return nil, fmt.Errorf("%w: status must be one of %s",
				domain.ErrInvalidStatus, strings.Join(models.SegmentStatuses, ", "))
		}
		byID[items[i].ID] = &items[i]
		ids = append(ids, items[i].ID)
	}

	segments, err := s.segRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	segments = filterByDocument(segments, documentID)
	if len(segments) != len(ids) {
		return nil, &domain.SegmentsNotFoundError{MissingIDs: missingIDs(ids, segments)}
	}

	updated := make([]models.Segment, 0, len(segments))
	for i := range segments {
		seg := &segments[i]
		item := byID[seg.ID]

		applySegmentUpdate(seg, &services.UpdateSegmentRequest{
			Text:            item.Text,
			Title:           item.Title,
			Author:          item.Author,
			TitleRef:        item.TitleRef,
			AuthorRef:       item.AuthorRef,
			ParentSegmentID: item.ParentSegmentID,
			IsAttached:      item.IsAttached,
			Status:          item.Status,
		})
		if item.SpanStart != nil {
			seg.SpanStart = *item.SpanStart
		}
		if item.SpanEnd != nil {
			seg.SpanEnd = *item.SpanEnd
		}
		if item.SegmentIndex != nil {
			seg.SegmentIndex = *item.SegmentIndex
		}
		seg.UpdateAnnotationStatus()

		if err := s.segRepo.Update(ctx, seg); err != nil {
			return nil, err
		}
		updated = append(updated, *seg)
	}

	return updated, nil
}

func (s *segmentService) bulkCreate(ctx context.Context, documentID, content string, reqs []services.CreateSegmentRequest) ([]models.Segment, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	maxIndex, err := s.segRepo.MaxIndex(ctx, documentID)
	if err != nil {
		return nil, err
	}

	segs := make([]*models.Segment, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		if req.SegmentIndex == nil {
			index := maxIndex + i + 1
			req.SegmentIndex = &index
		}

		seg, err := s.buildSegment(documentID, content, &req)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	if err := s.segRepo.CreateBatch(ctx, segs); err != nil {
		return nil, err
	}

	created := make([]models.Segment, 0, len(segs))
	for _, seg := range segs {
		created = append(created, *seg)
	}
	return created, nil
}

// applySegmentUpdate copies the non-nil fields of a partial update onto a
// segment. An empty string on an annotation field clears it. Comments
// follow the original column's dual shape: a full replacement value, or an
// appended entry when both content and username are supplied.
func applySegmentUpdate(seg *models.Segment, req *services.UpdateSegmentRequest) {
	if req.Text != nil {
		seg.Text = *req.Text
	}
	if req.Title != nil {
		seg.Title = req.Title
	}
	if req.Author != nil {
		seg.Author = req.Author
	}
	if req.TitleRef != nil {
		seg.TitleRef = req.TitleRef
	}
	if req.AuthorRef != nil {
		seg.AuthorRef = req.AuthorRef
	}
	if req.ParentSegmentID != nil {
		seg.ParentSegmentID = req.ParentSegmentID
	}
	if req.IsAttached != nil {
		seg.IsAttached = *req.IsAttached
	}
	if req.Status != nil {
		seg.Status = *req.Status
	}
	if req.Comments != nil {
		seg.Comments = *req.Comments
	}
	if req.CommentContent != nil && req.CommentUsername != nil {
		seg.Comments = append(seg.Comments, models.Comment{
			Content:   *req.CommentContent,
			Username:  *req.CommentUsername,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func filterByDocument(segments []models.Segment, documentID string) []models.Segment {
	filtered := segments[:0]
	for _, seg := range segments {
		if seg.DocumentID == documentID {
			filtered = append(filtered, seg)
		}
	}
	return filtered
}

func missingIDs(wanted []string, found []models.Segment) []string {
	present := make(map[string]bool, len(found))
	for _, seg := range found {
		present[seg.ID] = true
	}
	var missing []string
	for _, id := range wanted {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func firstNonEmpty(segments []models.Segment, field func(*models.Segment) *string) *string {
	for i := range segments {
		if v := field(&segments[i]); v != nil && *v != "" {
			return v
		}
	}
	return nil
}
