package outline

import (
	"context"
	"errors"
	"testing"

	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	services "outliner/internal/domain/services/outline"
)

func newDocumentServiceForTest(env *testEnv) services.DocumentService {
	segSvc := newSegmentServiceForTest(env)
	return NewDocumentService(env.docRepo, env.segRepo, env.tx, env.cache, segSvc, env.logger)
}

func TestCreateDocument(t *testing.T) {
	env := newTestEnv()
	svc := newDocumentServiceForTest(env)

	doc, err := svc.CreateDocument(context.Background(), &services.CreateDocumentRequest{
		Content:  "༄༅༅། །some text",
		Filename: strptr("kangyur_01.txt"),
		UserID:   strptr("user-1"),
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	if doc.ID == "" {
		t.Error("document ID not assigned")
	}
	if doc.Status != models.DocumentStatusActive {
		t.Errorf("status = %q, want %q", doc.Status, models.DocumentStatusActive)
	}
	if doc.TotalSegments != 0 || doc.AnnotatedSegments != 0 {
		t.Errorf("new document counters = (%d, %d), want (0, 0)", doc.TotalSegments, doc.AnnotatedSegments)
	}

	if _, err := svc.CreateDocument(context.Background(), &services.CreateDocumentRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("CreateDocument(empty) error = %v, want ErrValidation", err)
	}
}

func TestUploadDocument(t *testing.T) {
	tests := []struct {
		name         string
		req          services.UploadDocumentRequest
		wantContent  string
		wantFilename string
		wantErr      error
	}{
		{
			name: "file content strips control characters",
			req: services.UploadDocumentRequest{
				FileContent: strptr("line one\r\nline\ttwo\x00\x0c"),
				Filename:    strptr("upload.txt"),
			},
			wantContent:  "line one\nlinetwo",
			wantFilename: "upload.txt",
		},
		{
			name: "newlines survive stripping",
			req: services.UploadDocumentRequest{
				FileContent: strptr("a\nb\nc"),
				Filename:    strptr("keep.txt"),
			},
			wantContent:  "a\nb\nc",
			wantFilename: "keep.txt",
		},
		{
			name: "inline content gets default filename",
			req: services.UploadDocumentRequest{
				Content: strptr("inline text"),
			},
			wantContent:  "inline text",
			wantFilename: "text_document.txt",
		},
		{
			name:    "nothing supplied",
			req:     services.UploadDocumentRequest{},
			wantErr: domain.ErrValidation,
		},
		{
			name: "whitespace-only content rejected",
			req: services.UploadDocumentRequest{
				Content: strptr("   \n  "),
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			svc := newDocumentServiceForTest(env)

			doc, err := svc.UploadDocument(context.Background(), &tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UploadDocument() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UploadDocument() error = %v", err)
			}
			if doc.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", doc.Content, tt.wantContent)
			}
			if doc.Filename == nil || *doc.Filename != tt.wantFilename {
				t.Errorf("filename = %v, want %q", doc.Filename, tt.wantFilename)
			}
		})
	}
}

func TestUploadDocumentDuplicateFilename(t *testing.T) {
	env := newTestEnv()
	svc := newDocumentServiceForTest(env)
	ctx := context.Background()

	if _, err := svc.UploadDocument(ctx, &services.UploadDocumentRequest{
		FileContent: strptr("first upload"),
		Filename:    strptr("dup.txt"),
	}); err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}

	_, err := svc.UploadDocument(ctx, &services.UploadDocumentRequest{
		FileContent: strptr("second upload"),
		Filename:    strptr("dup.txt"),
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("UploadDocument(duplicate) error = %v, want ErrConflict", err)
	}

	// The inline default name is exempt from the duplicate check.
	for i := 0; i < 2; i++ {
		if _, err := svc.UploadDocument(ctx, &services.UploadDocumentRequest{
			Content: strptr("inline content"),
		}); err != nil {
			t.Fatalf("UploadDocument(inline %d) error = %v", i, err)
		}
	}
}

func TestGetDocument(t *testing.T) {
	env := newTestEnv()
	svc := newDocumentServiceForTest(env)
	ctx := context.Background()

	env.addDocument("doc-1", "ABCDEFGHIJ")

	t.Run("without segments", func(t *testing.T) {
		doc, err := svc.GetDocument(ctx, "doc-1", false)
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if doc.Content != "ABCDEFGHIJ" {
			t.Errorf("content = %q, want the full text", doc.Content)
		}
		if len(doc.Segments) != 0 {
			t.Errorf("segments = %d, want 0", len(doc.Segments))
		}
		if got := len(env.store.segmentsOf("doc-1")); got != 0 {
			t.Errorf("stored segments = %d, want 0 (no materialization)", got)
		}
	})

	t.Run("with segments materializes the partition", func(t *testing.T) {
		doc, err := svc.GetDocument(ctx, "doc-1", true)
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if len(doc.Segments) != 1 {
			t.Fatalf("segments = %d, want the materialized full-document segment", len(doc.Segments))
		}
		if doc.Segments[0].SpanStart != 0 || doc.Segments[0].SpanEnd != 10 {
			t.Errorf("segment span = [%d, %d), want [0, 10)",
				doc.Segments[0].SpanStart, doc.Segments[0].SpanEnd)
		}
	})

	t.Run("missing document", func(t *testing.T) {
		if _, err := svc.GetDocument(ctx, "missing", false); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetDocument() error = %v, want ErrNotFound", err)
		}
	})
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv()
	svc := newDocumentServiceForTest(env)
	ctx := context.Background()

	active := env.addDocument("doc-active", "content a")
	active.TotalSegments = 2
	deleted := env.addDocument("doc-deleted", "content b")
	deleted.Status = models.DocumentStatusDeleted
	env.addSegment(&models.Segment{ID: "seg-1", DocumentID: "doc-active", Status: models.SegmentStatusChecked})
	env.addSegment(&models.Segment{ID: "seg-2", DocumentID: "doc-active", Status: models.SegmentStatusUnchecked, SegmentIndex: 1})

	t.Run("deleted excluded by default", func(t *testing.T) {
		summaries, err := svc.ListDocuments(ctx, &services.ListDocumentsRequest{})
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		if len(summaries) != 1 || summaries[0].ID != "doc-active" {
			t.Fatalf("summaries = %+v, want only doc-active", summaries)
		}
		if summaries[0].CheckedSegments != 1 || summaries[0].UncheckedSegments != 1 {
			t.Errorf("checked/unchecked = (%d, %d), want (1, 1)",
				summaries[0].CheckedSegments, summaries[0].UncheckedSegments)
		}
	})

	t.Run("include deleted", func(t *testing.T) {
		summaries, err := svc.ListDocuments(ctx, &services.ListDocumentsRequest{IncludeDeleted: true})
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		if len(summaries) != 2 {
			t.Errorf("summaries = %d, want 2", len(summaries))
		}
	})

	t.Run("invalid status filter", func(t *testing.T) {
		_, err := svc.ListDocuments(ctx, &services.ListDocumentsRequest{Status: strptr("bogus")})
		if !errors.Is(err, domain.ErrInvalidStatus) {
			t.Errorf("ListDocuments() error = %v, want ErrInvalidStatus", err)
		}
	})
}

func TestUpdateDocumentStatus(t *testing.T) {
	tests := []struct {
		name      string
		docStatus string
		docUser   *string
		req       services.UpdateDocumentStatusRequest
		wantErr   error
	}{
		{
			name:      "active to completed",
			docStatus: models.DocumentStatusActive,
			req:       services.UpdateDocumentStatusRequest{Status: models.DocumentStatusCompleted},
		},
		{
			name:      "invalid status",
			docStatus: models.DocumentStatusActive,
			req:       services.UpdateDocumentStatusRequest{Status: "bogus"},
			wantErr:   domain.ErrInvalidStatus,
		},
		{
			name:      "restore without user id",
			docStatus: models.DocumentStatusDeleted,
			docUser:   strptr("owner"),
			req:       services.UpdateDocumentStatusRequest{Status: models.DocumentStatusActive},
			wantErr:   domain.ErrValidation,
		},
		{
			name:      "restore by non-owner",
			docStatus: models.DocumentStatusDeleted,
			docUser:   strptr("owner"),
			req:       services.UpdateDocumentStatusRequest{Status: models.DocumentStatusActive, UserID: strptr("intruder")},
			wantErr:   domain.ErrForbidden,
		},
		{
			name:      "restore by owner",
			docStatus: models.DocumentStatusDeleted,
			docUser:   strptr("owner"),
			req:       services.UpdateDocumentStatusRequest{Status: models.DocumentStatusActive, UserID: strptr("owner")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			svc := newDocumentServiceForTest(env)

			doc := env.addDocument("doc-1", "content")
			doc.Status = tt.docStatus
			doc.UserID = tt.docUser

			err := svc.UpdateStatus(context.Background(), "doc-1", &tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UpdateStatus() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
			if doc.Status != tt.req.Status {
				t.Errorf("status = %q, want %q", doc.Status, tt.req.Status)
			}
		})
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	env := newTestEnv()
	svc := newDocumentServiceForTest(env)
	ctx := context.Background()

	env.addDocument("doc-1", "content")
	env.addSegment(&models.Segment{ID: "seg-1", DocumentID: "doc-1"})

	if err := svc.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := env.docRepo.GetByID(ctx, "doc-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("document lookup error = %v, want ErrNotFound", err)
	}
	if got := len(env.store.segmentsOf("doc-1")); got != 0 {
		t.Errorf("segments = %d, want 0 (cascade)", got)
	}

	if err := svc.DeleteDocument(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteDocument(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetProgress(t *testing.T) {
	env := newTestEnv()
	svc := newDocumentServiceForTest(env)

	doc := env.addDocument("doc-1", "content")
	doc.TotalSegments = 3
	doc.AnnotatedSegments = 2
	doc.ProgressPercentage = 66.7
	env.addSegment(&models.Segment{ID: "seg-1", DocumentID: "doc-1", Status: models.SegmentStatusChecked})
	env.addSegment(&models.Segment{ID: "seg-2", DocumentID: "doc-1", Status: models.SegmentStatusUnchecked, SegmentIndex: 1})
	env.addSegment(&models.Segment{ID: "seg-3", DocumentID: "doc-1", Status: models.SegmentStatusUnchecked, SegmentIndex: 2})

	progress, err := svc.GetProgress(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if progress.TotalSegments != 3 || progress.AnnotatedSegments != 2 {
		t.Errorf("counters = (%d, %d), want (3, 2)", progress.TotalSegments, progress.AnnotatedSegments)
	}
	if progress.CheckedSegments != 1 || progress.UncheckedSegments != 2 {
		t.Errorf("checked/unchecked = (%d, %d), want (1, 2)", progress.CheckedSegments, progress.UncheckedSegments)
	}

	if _, err := svc.GetProgress(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetProgress(missing) error = %v, want ErrNotFound", err)
	}
}
