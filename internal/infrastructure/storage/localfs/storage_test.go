package localfs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	signer, err := NewSigner("secret", "http://docs.local", "")
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	s, err := New(t.TempDir(), signer)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSaveListOpen(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for key, body := range map[string]string{
		"b.pdf":             "second",
		"a.pdf":             "first",
		"uploads/x_img.png": "png",
	} {
		if err := s.Save(ctx, key, "", strings.NewReader(body)); err != nil {
			t.Fatalf("Save(%s) error = %v", key, err)
		}
	}

	objects, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 3 || objects[0].Key != "a.pdf" || objects[2].Key != "uploads/x_img.png" {
		t.Fatalf("unexpected listing: %+v", objects)
	}
	if objects[0].Size != int64(len("first")) {
		t.Fatalf("unexpected size %d", objects[0].Size)
	}

	rc, err := s.Open(ctx, "uploads/x_img.png")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "png" {
		t.Fatalf("unexpected body %q", raw)
	}

	if _, err := s.Open(ctx, "missing.pdf"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s := newTestStorage(t)
	for _, key := range []string{"../escape.txt", "", "a/../../b"} {
		if err := s.Save(context.Background(), key, "", strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q): expected invalid input, got %v", key, err)
		}
	}
}

func TestPresignedLinkServedUntilExpiry(t *testing.T) {
	s := newTestStorage(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	if err := s.Save(context.Background(), "uploads/a b.png", "", strings.NewReader("image")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	link, err := s.PresignGet(context.Background(), "uploads/a b.png", time.Hour)
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}
	if !strings.HasPrefix(link, "http://docs.local/v1/objects/uploads/a%20b.png?") {
		t.Fatalf("unexpected link %q", link)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}

	handler := s.Handler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, parsed.RequestURI(), nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "image" {
		t.Fatalf("expected 200 image, got %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}

	now = now.Add(time.Hour)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, parsed.RequestURI(), nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected expired link to be rejected, got %d", rec.Code)
	}
}

func TestTamperedSignatureRejected(t *testing.T) {
	s := newTestStorage(t)
	if err := s.Save(context.Background(), "a.pdf", "", strings.NewReader("pdf")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	link, err := s.PresignGet(context.Background(), "a.pdf", time.Hour)
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}
	parsed, _ := url.Parse(strings.Replace(link, "a.pdf", "b.pdf", 1))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, parsed.RequestURI(), nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestPresignWithoutSignerIsUnauthorized(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.PresignGet(context.Background(), "a.pdf", time.Hour); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("connection reset")
	}
	r.sent = true
	return copy(p, "%PDF-1.7 trunc"), nil
}

func TestSaveFailureLeavesNoPartialObject(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Save(ctx, "docs/manual.pdf", "", &failingReader{}); err == nil {
		t.Fatalf("expected write error")
	}
	if _, err := s.Open(ctx, "docs/manual.pdf"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected no object after failed save, got %v", err)
	}
	leftovers, err := os.ReadDir(filepath.Join(s.basePath, "docs"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("expected no leftover files, got %d", len(leftovers))
	}
}

func TestSaveFailureKeepsPreviousVersion(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.Save(ctx, "manual.pdf", "", strings.NewReader("complete")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Save(ctx, "manual.pdf", "", &failingReader{}); err == nil {
		t.Fatalf("expected write error")
	}

	rc, err := s.Open(ctx, "manual.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	objects, _ := s.List(ctx)
	if string(raw) != "complete" || len(objects) != 1 {
		t.Fatalf("expected previous version only, got %q and %+v", raw, objects)
	}
}
