package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const DefaultTopK = 4

type Retriever struct {
	embedder ports.Embedder
}

func NewRetriever(embedder ports.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Search returns at most k records nearest to query, most similar first.
func (r *Retriever) Search(ctx context.Context, index *Index, query string, k int) ([]domain.RetrievedRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("query is empty"))
	}
	if index.Len() == 0 {
		return nil, domain.WrapError(domain.ErrNoDocuments, "retrieve", fmt.Errorf("index is empty"))
	}
	if model := r.embedder.Model(); model != index.Model() {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"retrieve",
			fmt.Errorf("query embedder %q does not match index embedder %q", model, index.Model()),
		)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := index.vectors.Search(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
