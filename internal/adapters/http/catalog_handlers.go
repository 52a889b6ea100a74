package httpadapter

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/export/xlsx"
)

const (
	multipartMemory = 8 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// catalogItem is a catalog record as listed to clients.
type catalogItem struct {
	domain.CatalogRecord
	Previewable bool `json:"previewable"`
}

func (rt *Router) uploadCatalogRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: "upload exceeds the size limit",
				Kind:  domain.ErrInvalidInput.Error(),
				State: string(domain.UploadIdle),
				Step:  string(domain.StepValidate),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "multipart form is required",
			Kind:  domain.ErrInvalidInput.Error(),
			State: string(domain.UploadIdle),
			Step:  string(domain.StepValidate),
		})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := domain.UploadForm{
		Name:        r.FormValue("name"),
		Location:    r.FormValue("location"),
		Description: r.FormValue("description"),
	}
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		form.Filename = header.Filename
		form.ContentType = header.Header.Get("Content-Type")
		form.Body = file
	case errors.Is(err, http.ErrMissingFile):
		// Left to validation so every missing field is reported together.
	default:
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}

	outcome, err := rt.uploader.Submit(r.Context(), form)
	if outcome != nil && rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, string(outcome.State), string(outcome.Step))
	}
	if err != nil {
		resp := newErrorResponse(err)
		if outcome != nil {
			resp.State = string(outcome.State)
			resp.Step = string(outcome.Step)
		}
		writeJSON(w, mapErrorToHTTPStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

func catalogFilterFromRequest(r *http.Request) domain.CatalogFilter {
	q := r.URL.Query()
	return domain.CatalogFilter{
		Name:     strings.TrimSpace(q.Get("name")),
		Location: strings.TrimSpace(q.Get("location")),
	}
}

func (rt *Router) listCatalog(w http.ResponseWriter, r *http.Request) {
	records, err := rt.catalog.List(r.Context(), catalogFilterFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]catalogItem, 0, len(records))
	for _, record := range records {
		items = append(items, catalogItem{CatalogRecord: record, Previewable: record.Previewable()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": items})
}

func (rt *Router) exportCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	records, err := rt.catalog.List(r.Context(), catalogFilterFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteCatalog(&buf, records); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// previewCatalogRecord serves /v1/catalog/{id}/preview.
func (rt *Router) previewCatalogRecord(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/catalog/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || action != "preview" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	body, contentType, err := rt.catalog.Preview(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("catalog_preview_copy_failed", "record_id", id, "error", err)
	}
}
