package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// CatalogUploader is the inbound contract for the upload form.
type CatalogUploader interface {
	Submit(ctx context.Context, form domain.UploadForm) (*domain.UploadOutcome, error)
}

// CatalogReader lists and previews catalog records.
type CatalogReader interface {
	List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogRecord, error)
	Preview(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// QASessions opens, queries and closes question answering sessions.
type QASessions interface {
	Open(ctx context.Context) (domain.SessionInfo, error)
	Get(id string) (domain.SessionInfo, error)
	Ask(ctx context.Context, id, question string) (*domain.Answer, error)
	Close(id string) error
}
