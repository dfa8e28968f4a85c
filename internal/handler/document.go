package handler

import (
	"io"
	"log/slog"
	"net/http"

	services "outliner/internal/domain/services/outline"
	"outliner/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docService services.DocumentService
	segService services.SegmentService
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService services.DocumentService, segService services.SegmentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		segService: segService,
		logger:     logger,
	}
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateDocument creates a new document from raw content
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.docService.CreateDocument(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// UploadDocument creates a document from an uploaded file or form content
// POST /api/documents/upload
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := services.UploadDocumentRequest{
		Filename: formValue(r, "filename"),
		UserID:   formValue(r, "user_id"),
		Content:  formValue(r, "content"),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		content := string(data)
		req.FileContent = &content
		if req.Filename == nil {
			req.Filename = &header.Filename
		}
	}

	doc, err := h.docService.UploadDocument(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns paged document summaries
// GET /api/documents?user_id=&status=&include_deleted=&offset=&limit=
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	req := services.ListDocumentsRequest{
		UserID:         httputil.QueryString(r, "user_id"),
		Status:         httputil.QueryString(r, "status"),
		IncludeDeleted: httputil.QueryBool(r, "include_deleted", false),
		Offset:         httputil.QueryInt(r, "offset", 0),
		Limit:          httputil.QueryInt(r, "limit", 100),
	}

	docs, err := h.docService.ListDocuments(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document with its segments
// GET /api/documents/{id}?include_segments=true
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	includeSegments := httputil.QueryBool(r, "include_segments", true)

	doc, err := h.docService.GetDocument(r.Context(), id, includeSegments)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateContent replaces the document's full text content
// PUT /api/documents/{id}/content
func (h *DocumentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.docService.UpdateContent(r.Context(), id, req.Content); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message":     "Document content updated",
		"document_id": id,
	})
}

// UpdateStatus transitions the document status
// PUT /api/documents/{id}/status
func (h *DocumentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req services.UpdateDocumentStatusRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.docService.UpdateStatus(r.Context(), id, &req); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message":     "Document status updated",
		"document_id": id,
		"status":      req.Status,
	})
}

// DeleteDocument removes a document and all its segments
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.docService.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProgress returns the document's progress counters
// GET /api/documents/{id}/progress
func (h *DocumentHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.docService.GetProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, progress)
}

// ResetSegments deletes every segment of a document
// DELETE /api/documents/{id}/segments/reset
func (h *DocumentHandler) ResetSegments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.segService.ResetSegments(r.Context(), id); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message":     "Segments reset",
		"document_id": id,
	})
}

func formValue(r *http.Request, name string) *string {
	v := r.FormValue(name)
	if v == "" {
		return nil
	}
	return &v
}
