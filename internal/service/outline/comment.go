package outline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	models "outliner/internal/domain/models/outline"
	"outliner/internal/domain"
	baseRepo "outliner/internal/domain/repositories"
	repositories "outliner/internal/domain/repositories/outline"
	services "outliner/internal/domain/services/outline"
)

// commentService implements the CommentService interface. Comments live on
// the segment row as one jsonb column, so every mutation is a
// read-modify-write of that row; two concurrent appends to the same segment
// can lose one entry. Single-writer semantics per segment are assumed.
type commentService struct {
	segRepo   repositories.SegmentRepository
	txManager baseRepo.TransactionManager
	logger    *slog.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(
	segRepo repositories.SegmentRepository,
	txManager baseRepo.TransactionManager,
	logger *slog.Logger,
) services.CommentService {
	return &commentService{
		segRepo:   segRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// ListComments returns a segment's comments in append order
func (s *commentService) ListComments(ctx context.Context, segmentID string) (models.CommentList, error) {
	seg, err := s.segRepo.GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	return seg.Comments, nil
}

// AppendComment pushes a timestamped entry and returns the full list
func (s *commentService) AppendComment(ctx context.Context, segmentID, content, username string) (models.CommentList, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", domain.ErrValidation)
	}

	var comments models.CommentList

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.segRepo.GetByID(ctx, segmentID)
		if err != nil {
			return err
		}

		seg.Comments = append(seg.Comments, models.Comment{
			Content:   content,
			Username:  username,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})

		if err := s.segRepo.Update(ctx, seg); err != nil {
			return err
		}
		comments = seg.Comments
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("comment appended", "segment_id", segmentID, "username", username)
	return comments, nil
}

// UpdateComment replaces the content of the entry at index, refreshing its
// timestamp
func (s *commentService) UpdateComment(ctx context.Context, segmentID string, index int, content string) (models.CommentList, error) {
	var comments models.CommentList

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.segRepo.GetByID(ctx, segmentID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(seg.Comments) {
			return fmt.Errorf("index %d of %d: %w", index, len(seg.Comments), domain.ErrCommentNotFound)
		}

		seg.Comments[index].Content = content
		seg.Comments[index].Timestamp = time.Now().UTC().Format(time.RFC3339)

		if err := s.segRepo.Update(ctx, seg); err != nil {
			return err
		}
		comments = seg.Comments
		return nil
	})
	if err != nil {
		return nil, err
	}

	return comments, nil
}

// DeleteComment removes the entry at index
func (s *commentService) DeleteComment(ctx context.Context, segmentID string, index int) (models.CommentList, error) {
	var comments models.CommentList

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		seg, err := s.segRepo.GetByID(ctx, segmentID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(seg.Comments) {
			return fmt.Errorf("index %d of %d: %w", index, len(seg.Comments), domain.ErrCommentNotFound)
		}

		seg.Comments = append(seg.Comments[:index], seg.Comments[index+1:]...)

		if err := s.segRepo.Update(ctx, seg); err != nil {
			return err
		}
		comments = seg.Comments
		return nil
	})
	if err != nil {
		return nil, err
	}

	return comments, nil
}
