package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// Builder creates flat in-process cosine indexes.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (Builder) Build(_ context.Context, entries []domain.IndexEntry) (ports.VectorIndex, error) {
	if len(entries) == 0 {
		return nil, domain.WrapError(domain.ErrNoDocuments, "memory build", fmt.Errorf("no entries"))
	}
	dim := len(entries[0].Vector)
	items := make([]item, 0, len(entries))
	for i, entry := range entries {
		if len(entry.Vector) != dim {
			return nil, fmt.Errorf("memory build: entry %d has dimension %d, want %d", i, len(entry.Vector), dim)
		}
		items = append(items, item{
			vector: entry.Vector,
			norm:   norm(entry.Vector),
			record: entry.Payload,
		})
	}
	return &Index{items: items, dim: dim}, nil
}

type item struct {
	vector []float32
	norm   float64
	record domain.DocumentRecord
}

// Index is read-only after Build and safe for concurrent Search.
type Index struct {
	items []item
	dim   int
}

func (i *Index) Len() int {
	return len(i.items)
}

func (i *Index) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedRecord, error) {
	if len(queryVector) != i.dim {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"memory search",
			fmt.Errorf("query dimension %d, index dimension %d", len(queryVector), i.dim),
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qNorm := norm(queryVector)
	out := make([]domain.RetrievedRecord, 0, len(i.items))
	for _, it := range i.items {
		out = append(out, domain.RetrievedRecord{
			Record: it.record,
			Score:  cosine(queryVector, it.vector, qNorm, it.norm),
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
