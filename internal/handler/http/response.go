package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metrics"
	"github.com/simplesagar/dub/pkg/logger"
	"github.com/simplesagar/dub/pkg/validator"
)

// Response helpers for consistent API responses

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeGone             = "gone"
	CodeInternal         = "internal_error"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code,omitempty"`
	Details []*validator.FieldError `json:"details,omitempty"`
	// Created lists links a failed batch had already stored.
	Created []LinkResponse `json:"created,omitempty"`
}

// SuccessResponse represents a successful response
type SuccessResponse struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// headers are already sent, nothing useful left to do on failure
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondSuccess sends a success response
func respondSuccess(w http.ResponseWriter, statusCode int, data any, message string) {
	respondJSON(w, statusCode, SuccessResponse{
		Data:    data,
		Message: message,
	})
}

// respondValidation sends the field diagnostics as a 422 and counts them
// per operation.
func respondValidation(w http.ResponseWriter, operation string, verrs validator.Errors) {
	for _, fe := range verrs {
		metrics.RecordValidationFailure(operation, string(fe.Code))
	}
	respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "Validation failed",
		Code:    CodeValidationFailed,
		Details: verrs,
	})
}

// respondServiceError maps a validator or service error to a status code.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, operation string, err error) {
	if verrs, ok := validator.AsErrors(err); ok {
		respondValidation(w, operation, verrs)
		return
	}

	status, code, message := serviceErrorStatus(log, operation, err)
	respondError(w, status, code, message)
}

// respondBatchError reports a batch that failed part way. The links
// stored before the failure are listed so the caller can reconcile.
func respondBatchError(w http.ResponseWriter, log *logger.Logger, operation string, batchErr *domain.BatchError, qrEndpoint string) {
	status, code, message := serviceErrorStatus(log, operation, batchErr)
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Created: newLinkResponses(batchErr.Created, qrEndpoint),
	})
}

func serviceErrorStatus(log *logger.Logger, operation string, err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrLinkNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrWorkspaceNotFound):
		return http.StatusNotFound, CodeNotFound, rootMessage(err)
	case errors.Is(err, domain.ErrDuplicateKey),
		errors.Is(err, domain.ErrDuplicateTag):
		return http.StatusConflict, CodeConflict, err.Error()
	case errors.Is(err, domain.ErrLinkExpired):
		return http.StatusGone, CodeGone, domain.ErrLinkExpired.Error()
	default:
		log.Error("request failed", "operation", operation, "error", err)
		return http.StatusInternalServerError, CodeInternal, "Internal server error"
	}
}

// rootMessage hides wrapping context, which may mention other workspaces.
func rootMessage(err error) string {
	for _, target := range []error{domain.ErrLinkNotFound, domain.ErrTagNotFound, domain.ErrWorkspaceNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
