package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNoDocuments):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrThrottled):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	}

	// An upload that reached a remote step failed upstream, not in this service.
	var uploadErr *domain.UploadError
	if errors.As(err, &uploadErr) && uploadErr.Step != domain.StepValidate {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	State string `json:"state,omitempty"`
	Step  string `json:"step,omitempty"`
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	if kind := domain.Kind(err); kind != nil {
		resp.Kind = kind.Error()
	}
	var uploadErr *domain.UploadError
	if errors.As(err, &uploadErr) {
		resp.Step = string(uploadErr.Step)
	}
	return resp
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), newErrorResponse(err))
}
