package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const defaultEmbedBatchSize = 16

// Index is a built similarity index together with the embedding model that produced it.
type Index struct {
	vectors ports.VectorIndex
	model   string
	sources int
	builtAt time.Time
}

func (i *Index) Len() int {
	if i == nil || i.vectors == nil {
		return 0
	}
	return i.vectors.Len()
}

func (i *Index) Model() string {
	if i == nil {
		return ""
	}
	return i.model
}

// Sources is the number of distinct documents the index was built from.
func (i *Index) Sources() int {
	if i == nil {
		return 0
	}
	return i.sources
}

func (i *Index) BuiltAt() time.Time {
	if i == nil {
		return time.Time{}
	}
	return i.builtAt
}

// Close releases backend resources held by the index, if any.
func (i *Index) Close() error {
	if i == nil || i.vectors == nil {
		return nil
	}
	if closer, ok := i.vectors.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type IndexBuilder struct {
	embedder  ports.Embedder
	vectors   ports.VectorIndexBuilder
	batchSize int
	now       func() time.Time
}

func NewIndexBuilder(embedder ports.Embedder, vectors ports.VectorIndexBuilder, batchSize int) *IndexBuilder {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &IndexBuilder{
		embedder:  embedder,
		vectors:   vectors,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Build embeds every record with text and indexes it. Records with blank text
// are skipped; if none remain the result is domain.ErrNoDocuments.
func (b *IndexBuilder) Build(ctx context.Context, records []domain.DocumentRecord) (*Index, error) {
	kept := make([]domain.DocumentRecord, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.Text) == "" {
			continue
		}
		kept = append(kept, record)
	}
	if len(kept) == 0 {
		return nil, domain.WrapError(domain.ErrNoDocuments, "build index", fmt.Errorf("%d records had no text", len(records)))
	}

	entries := make([]domain.IndexEntry, 0, len(kept))
	for start := 0; start < len(kept); start += b.batchSize {
		end := min(start+b.batchSize, len(kept))
		batch := kept[start:end]

		texts := make([]string, len(batch))
		for i, record := range batch {
			texts[i] = record.Text
		}
		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed records %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed records %d-%d: expected %d vectors, got %d", start, end-1, len(batch), len(vectors))
		}
		for i, record := range batch {
			entries = append(entries, domain.IndexEntry{Vector: vectors[i], Payload: record})
		}
	}

	vectorIndex, err := b.vectors.Build(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}

	sources := make(map[string]struct{})
	for _, record := range kept {
		sources[record.SourceID] = struct{}{}
	}

	return &Index{
		vectors: vectorIndex,
		model:   b.embedder.Model(),
		sources: len(sources),
		builtAt: b.now().UTC(),
	}, nil
}
