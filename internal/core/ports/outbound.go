package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// ObjectStorage stores source documents and uploaded files in one bucket.
type ObjectStorage interface {
	List(ctx context.Context) ([]domain.ObjectInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, key, contentType string, data io.Reader) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CatalogStore is the append-only key-value table of uploaded files.
type CatalogStore interface {
	Append(ctx context.Context, record domain.CatalogRecord) error
	Scan(ctx context.Context) ([]domain.CatalogRecord, error)
	// Get returns the record with id or an ErrNotFound error.
	Get(ctx context.Context, id string) (domain.CatalogRecord, error)
}

// CatalogEvents announces persisted catalog records.
type CatalogEvents interface {
	PublishRecordPersisted(ctx context.Context, record domain.CatalogRecord) error
}

// PageExtractor turns one PDF into per-page plain text, in page order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, content []byte) ([]string, error)
}

// Embedder builds vectors for records and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// CompletionModel answers a fully built prompt.
type CompletionModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VectorIndexBuilder creates a searchable index from embedded records.
type VectorIndexBuilder interface {
	Build(ctx context.Context, entries []domain.IndexEntry) (VectorIndex, error)
}

// VectorIndex performs nearest-neighbour search, most similar first.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedRecord, error)
	Len() int
}

// LinkCache keeps issued presigned links for less than their lifetime.
type LinkCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, link string, ttl time.Duration) error
}
