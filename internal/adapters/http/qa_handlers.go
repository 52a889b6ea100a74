package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type askRequest struct {
	Question string `json:"question"`
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	info, err := rt.qa.Open(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSessionOpened(serviceName, string(info.Status))
	}
	writeJSON(w, http.StatusCreated, info)
}

func (rt *Router) getSession(w http.ResponseWriter, id string) {
	info, err := rt.qa.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (rt *Router) closeSession(w http.ResponseWriter, id string) {
	if err := rt.qa.Close(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) askSession(w http.ResponseWriter, r *http.Request, id string) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json", Kind: domain.ErrInvalidInput.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required", Kind: domain.ErrInvalidInput.Error()})
		return
	}

	start := time.Now()
	answer, err := rt.qa.Ask(r.Context(), id, req.Question)
	if rt.metrics != nil {
		citations := 0
		if answer != nil {
			citations = len(answer.Citations)
		}
		rt.metrics.RecordAnswer(serviceName, answerOutcome(err), citations, time.Since(start))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func answerOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case domain.IsKind(err, domain.ErrNoDocuments):
		return "no_documents"
	case domain.IsKind(err, domain.ErrThrottled):
		return "throttled"
	case domain.IsKind(err, domain.ErrNotFound):
		return "not_found"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
