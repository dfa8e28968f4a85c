package handler

import (
	"log/slog"
	"net/http"

	services "outliner/internal/domain/services/outline"
	"outliner/internal/httputil"
)

// SegmentHandler handles segment HTTP requests
type SegmentHandler struct {
	segService services.SegmentService
	segmenter  services.SegmentationService
	logger     *slog.Logger
}

// NewSegmentHandler creates a new segment handler
func NewSegmentHandler(segService services.SegmentService, segmenter services.SegmentationService, logger *slog.Logger) *SegmentHandler {
	return &SegmentHandler{
		segService: segService,
		segmenter:  segmenter,
		logger:     logger,
	}
}

// CreateSegment creates one segment in a document
// POST /api/documents/{id}/segments
func (h *SegmentHandler) CreateSegment(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	var req services.CreateSegmentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seg, err := h.segService.CreateSegment(r.Context(), documentID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, seg)
}

// CreateSegmentsBulk creates many segments in one transaction
// POST /api/documents/{id}/segments/bulk
func (h *SegmentHandler) CreateSegmentsBulk(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	var req struct {
		Segments []services.CreateSegmentRequest `json:"segments"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Segments) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "segments list is required")
		return
	}

	segs, err := h.segService.CreateSegmentsBulk(r.Context(), documentID, req.Segments)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, segs)
}

// ListSegments returns a document's segments ordered by index
// GET /api/documents/{id}/segments?status=&offset=&limit=
func (h *SegmentHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	req := services.ListSegmentsRequest{
		Status: httputil.QueryString(r, "status"),
		Offset: httputil.QueryInt(r, "offset", 0),
		Limit:  httputil.QueryInt(r, "limit", 0),
	}

	segs, err := h.segService.ListSegments(r.Context(), documentID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, segs)
}

// GetSegment retrieves a segment by ID
// GET /api/segments/{id}
func (h *SegmentHandler) GetSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := h.segService.GetSegment(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, seg)
}

// UpdateSegment partially updates a segment
// PUT /api/segments/{id}
func (h *SegmentHandler) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req services.UpdateSegmentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seg, err := h.segService.UpdateSegment(r.Context(), id, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, seg)
}

// UpdateSegmentStatus sets the segment status
// PUT /api/segments/{id}/status
func (h *SegmentHandler) UpdateSegmentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seg, err := h.segService.UpdateSegmentStatus(r.Context(), id, req.Status)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, seg)
}

// DeleteSegment removes a segment and closes the index gap
// DELETE /api/segments/{id}
func (h *SegmentHandler) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	if err := h.segService.DeleteSegment(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SplitSegment splits a segment at a character position
// POST /api/segments/{id}/split
func (h *SegmentHandler) SplitSegment(w http.ResponseWriter, r *http.Request) {
	var req services.SplitSegmentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SegmentID = r.PathValue("id")

	segs, err := h.segService.SplitSegment(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, segs)
}

// MergeSegments merges two or more segments into one
// POST /api/segments/merge
func (h *SegmentHandler) MergeSegments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SegmentIDs []string `json:"segment_ids"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seg, err := h.segService.MergeSegments(r.Context(), req.SegmentIDs)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, seg)
}

// BulkOperations applies delete, update and create batches in one transaction
// POST /api/documents/{id}/segments/bulk-operations
func (h *SegmentHandler) BulkOperations(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	var req services.BulkOperationsRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Create) == 0 && len(req.Update) == 0 && len(req.Delete) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "at least one of create, update or delete is required")
		return
	}

	segs, err := h.segService.BulkOperations(r.Context(), documentID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, segs)
}

// SegmentDocument runs boundary detection over the whole document and
// replaces its segmentation
// POST /api/documents/{id}/segment
func (h *SegmentHandler) SegmentDocument(w http.ResponseWriter, r *http.Request) {
	segs, err := h.segmenter.SegmentDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"total_segments": len(segs),
		"segments":       segs,
	})
}

// SubdivideSegment runs boundary detection within one segment and replaces
// it with the detected children
// POST /api/segments/{id}/subdivide
func (h *SegmentHandler) SubdivideSegment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Content *string `json:"content,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	segs, err := h.segmenter.SubdivideSegment(r.Context(), id, req.Content)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, segs)
}
