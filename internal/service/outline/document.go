package outline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"outliner/internal/cache"
	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	baseRepo "outliner/internal/domain/repositories"
	repositories "outliner/internal/domain/repositories/outline"
	services "outliner/internal/domain/services/outline"
)

// controlChars matches every ASCII control character except newline.
// Uploaded files frequently carry stray carriage returns and form feeds
// that would corrupt span offsets.
var controlChars = regexp.MustCompile("[\x00-\x09\x0B-\x1F\x7F]")

// documentService implements the DocumentService interface
type documentService struct {
	docRepo    repositories.DocumentRepository
	segRepo    repositories.SegmentRepository
	txManager  baseRepo.TransactionManager
	cache      *cache.ContentCache
	content    *contentReader
	progress   *progressTracker
	segmentSvc services.SegmentService
	logger     *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	segRepo repositories.SegmentRepository,
	txManager baseRepo.TransactionManager,
	contentCache *cache.ContentCache,
	segmentSvc services.SegmentService,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:    docRepo,
		segRepo:    segRepo,
		txManager:  txManager,
		cache:      contentCache,
		content:    &contentReader{docRepo: docRepo, cache: contentCache, logger: logger},
		progress:   &progressTracker{docRepo: docRepo, segRepo: segRepo, logger: logger},
		segmentSvc: segmentSvc,
		logger:     logger,
	}
}

// CreateDocument creates a new document from raw content
func (s *documentService) CreateDocument(ctx context.Context, req *services.CreateDocumentRequest) (*models.Document, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Content, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:        uuid.NewString(),
		Content:   req.Content,
		Filename:  req.Filename,
		UserID:    req.UserID,
		Status:    models.DocumentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	// Warm the cache so the first segmentation pass skips the TEXT column
	s.cache.Set(ctx, doc.ID, doc.Content)

	s.logger.Info("document created",
		"id", doc.ID,
		"filename", doc.Filename,
		"user_id", doc.UserID,
		"content_runes", runeLen(doc.Content),
	)

	return doc, nil
}

// UploadDocument creates a document from an uploaded file or inline content
func (s *documentService) UploadDocument(ctx context.Context, req *services.UploadDocumentRequest) (*models.Document, error) {
	var content string
	filename := req.Filename

	if req.FileContent != nil && *req.FileContent != "" {
		content = controlChars.ReplaceAllString(*req.FileContent, "")
	}
	if content == "" && req.Content != nil {
		content = *req.Content
		if filename == nil {
			name := "text_document.txt"
			filename = &name
		}
	}

	if content == "" {
		return nil, fmt.Errorf("%w: either file or content is required", domain.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", domain.ErrValidation)
	}

	// Re-uploading a file under a name that already exists is almost always
	// a double submit. Only explicit filenames are checked; the inline
	// default name may repeat freely.
	if req.Filename != nil {
		if _, err := s.docRepo.GetByFilename(ctx, *req.Filename); err == nil {
			return nil, fmt.Errorf("%w: a document named %q already exists", domain.ErrConflict, *req.Filename)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	return s.CreateDocument(ctx, &services.CreateDocumentRequest{
		Content:  content,
		Filename: filename,
		UserID:   req.UserID,
	})
}

// GetDocument retrieves a document, optionally with its segment partition.
// Content is served read-through from the cache. When segments are
// requested and none exist yet, the initial full-document segment is
// materialized first.
func (s *documentService) GetDocument(ctx context.Context, id string, includeSegments bool) (*models.Document, error) {
	doc, err := s.docRepo.GetMeta(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := s.content.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Content = content

	if includeSegments {
		if _, err := s.segmentSvc.EnsureSegmented(ctx, id); err != nil {
			return nil, err
		}
		segments, err := s.segRepo.ListByDocument(ctx, id, repositories.ListSegmentsOptions{})
		if err != nil {
			return nil, err
		}
		doc.Segments = segments
	}

	return doc, nil
}

// ListDocuments returns paged document summaries with per-document
// checked/unchecked counts, deleted excluded by default
func (s *documentService) ListDocuments(ctx context.Context, req *services.ListDocumentsRequest) ([]models.DocumentSummary, error) {
	if req.Status != nil && !models.ValidDocumentStatus(*req.Status) {
		return nil, fmt.Errorf("%w: status must be one of %s",
			domain.ErrInvalidStatus, strings.Join(models.DocumentStatuses, ", "))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	docs, err := s.docRepo.List(ctx, repositories.ListDocumentsOptions{
		UserID:         req.UserID,
		Status:         req.Status,
		IncludeDeleted: req.IncludeDeleted,
		Offset:         req.Offset,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]models.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		checked, err := s.segRepo.CountByStatus(ctx, doc.ID, models.SegmentStatusChecked)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, models.DocumentSummary{
			ID:                 doc.ID,
			Filename:           doc.Filename,
			UserID:             doc.UserID,
			TotalSegments:      doc.TotalSegments,
			AnnotatedSegments:  doc.AnnotatedSegments,
			ProgressPercentage: doc.ProgressPercentage,
			CheckedSegments:    checked,
			UncheckedSegments:  doc.TotalSegments - checked,
			Status:             doc.Status,
			CreatedAt:          doc.CreatedAt,
			UpdatedAt:          doc.UpdatedAt,
		})
	}

	return summaries, nil
}

// UpdateContent replaces the document content. The cache entry is
// invalidated before the write commits and repopulated afterwards, so a
// concurrent reader never sees stale content after the commit.
func (s *documentService) UpdateContent(ctx context.Context, id, content string) error {
	s.cache.Invalidate(ctx, id)

	if err := s.docRepo.UpdateContent(ctx, id, content); err != nil {
		return err
	}

	s.cache.Set(ctx, id, content)

	s.logger.Info("document content updated",
		"id", id,
		"content_runes", runeLen(content),
	)
	return nil
}

// UpdateStatus transitions the document status. Restoring a deleted
// document back to active requires the owner's user ID.
func (s *documentService) UpdateStatus(ctx context.Context, id string, req *services.UpdateDocumentStatusRequest) error {
	if !models.ValidDocumentStatus(req.Status) {
		return fmt.Errorf("%w: status must be one of %s",
			domain.ErrInvalidStatus, strings.Join(models.DocumentStatuses, ", "))
	}

	doc, err := s.docRepo.GetMeta(ctx, id)
	if err != nil {
		return err
	}

	if doc.Status == models.DocumentStatusDeleted && req.Status == models.DocumentStatusActive {
		if req.UserID == nil {
			return fmt.Errorf("%w: user_id is required to restore a deleted document", domain.ErrValidation)
		}
		if doc.UserID == nil || *doc.UserID != *req.UserID {
			return fmt.Errorf("only the owner can restore a deleted document: %w", domain.ErrForbidden)
		}
	}

	if err := s.docRepo.UpdateStatus(ctx, id, req.Status); err != nil {
		return err
	}

	s.logger.Info("document status updated",
		"id", id,
		"from", doc.Status,
		"to", req.Status,
	)
	return nil
}

// DeleteDocument removes the document; segments cascade. The cache entry
// goes first so a failed delete only costs one cache miss.
func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	s.cache.Invalidate(ctx, id)

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("document deleted", "id", id)
	return nil
}

// GetProgress returns the progress counters plus checked/unchecked counts
func (s *documentService) GetProgress(ctx context.Context, id string) (*models.Progress, error) {
	doc, err := s.docRepo.GetMeta(ctx, id)
	if err != nil {
		return nil, err
	}

	checked, err := s.segRepo.CountByStatus(ctx, id, models.SegmentStatusChecked)
	if err != nil {
		return nil, err
	}
	unchecked, err := s.segRepo.CountByStatus(ctx, id, models.SegmentStatusUnchecked)
	if err != nil {
		return nil, err
	}

	return &models.Progress{
		DocumentID:         id,
		TotalSegments:      doc.TotalSegments,
		AnnotatedSegments:  doc.AnnotatedSegments,
		CheckedSegments:    checked,
		UncheckedSegments:  unchecked,
		ProgressPercentage: doc.ProgressPercentage,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}
