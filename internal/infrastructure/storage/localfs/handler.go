package localfs

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// Handler serves objects behind links issued by PresignGet. The object key is
// the request path after the signer prefix.
func (s *Storage) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.signer == nil {
			http.Error(w, "signed links are disabled", http.StatusNotFound)
			return
		}

		key := strings.TrimPrefix(r.URL.Path, s.signer.prefix)
		q := r.URL.Query()
		if key == "" || !s.signer.Verify(key, q.Get("expires"), q.Get("signature"), s.now()) {
			http.Error(w, "link is invalid or expired", http.StatusForbidden)
			return
		}

		rc, err := s.Open(r.Context(), key)
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				http.Error(w, "object not found", http.StatusNotFound)
				return
			}
			slog.Error("object_open_failed", "key", key, "error", err)
			http.Error(w, "object unavailable", http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(path.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.Copy(w, rc)
	})
}
