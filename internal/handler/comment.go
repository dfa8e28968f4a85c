package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	services "outliner/internal/domain/services/outline"
	"outliner/internal/httputil"
)

// CommentHandler handles segment comment HTTP requests
type CommentHandler struct {
	commentService services.CommentService
	logger         *slog.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService services.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// ListComments returns a segment's comments in append order
// GET /api/segments/{id}/comment
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.commentService.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, comments)
}

// AppendComment pushes a timestamped comment onto the segment's log
// POST /api/segments/{id}/comment
func (h *CommentHandler) AppendComment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Content  string `json:"content"`
		Username string `json:"username"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comments, err := h.commentService.AppendComment(r.Context(), id, req.Content, req.Username)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comments)
}

// UpdateComment replaces the content of the comment at index
// PUT /api/segments/{id}/comment/{index}
func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "comment index must be an integer")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comments, err := h.commentService.UpdateComment(r.Context(), id, index, req.Content)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, comments)
}

// DeleteComment removes the comment at index
// DELETE /api/segments/{id}/comment/{index}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "comment index must be an integer")
		return
	}

	comments, err := h.commentService.DeleteComment(r.Context(), id, index)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, comments)
}
