package handler

import (
	"context"
	"log/slog"
	"net/http"

	"outliner/internal/httputil"
	"outliner/internal/service/detect"
)

// BoundaryDetector produces candidate segment-start offsets for a text.
type BoundaryDetector interface {
	Detect(ctx context.Context, text string, opts detect.Options) ([]int, error)
}

// DetectHandler exposes boundary detection without persistence
type DetectHandler struct {
	detector BoundaryDetector
	logger   *slog.Logger
}

// NewDetectHandler creates a new detection handler
func NewDetectHandler(detector BoundaryDetector, logger *slog.Logger) *DetectHandler {
	return &DetectHandler{
		detector: detector,
		logger:   logger,
	}
}

// DetectBoundaries returns candidate segment-start offsets for a text
// POST /api/detect/boundaries
func (h *DetectHandler) DetectBoundaries(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		httputil.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	offsets, err := h.detector.Detect(r.Context(), req.Text, detect.Options{})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"starting_positions": offsets,
	})
}
