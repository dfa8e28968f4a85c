package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"outliner/internal/domain"
	"outliner/internal/httputil"
)

// respondDomainError maps a domain error onto the HTTP surface. Partition
// violations should never happen; they are logged loudly and surfaced as
// internal errors rather than patched over.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var segsErr *domain.SegmentsNotFoundError
	if errors.As(err, &segsErr) {
		httputil.RespondErrorWithExtras(w, http.StatusNotFound, "some segments not found",
			map[string]interface{}{"missing_ids": segsErr.MissingIDs})
		return
	}

	var partErr *domain.PartitionError
	if errors.As(err, &partErr) {
		logger.Error("segment partition invariant violated",
			"document_id", partErr.DocumentID,
			"detail", partErr.Detail,
		)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case errors.Is(err, domain.ErrCommentNotFound),
		errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidSpan),
		errors.Is(err, domain.ErrInvalidSplitPosition),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrCrossDocumentMerge),
		errors.Is(err, domain.ErrIncompleteSegmentation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrDetectionFailed):
		httputil.RespondError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
