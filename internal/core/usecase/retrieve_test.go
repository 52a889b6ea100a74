package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func buildTestIndex(t *testing.T, embedder *embedderFake, records []domain.DocumentRecord) *Index {
	t.Helper()
	index, err := NewIndexBuilder(embedder, &vectorBuilderFake{}, 0).Build(context.Background(), records)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return index
}

func TestSearchRanksAndLimits(t *testing.T) {
	embedder := &embedderFake{keywords: []string{"invoice", "shipping"}}
	records := []domain.DocumentRecord{
		{SourceID: "a.pdf", Text: "shipping terms"},
		{SourceID: "b.pdf", Text: "invoice total"},
		{SourceID: "c.pdf", Text: "invoice and shipping"},
		{SourceID: "d.pdf", Text: "unrelated"},
		{SourceID: "e.pdf", Text: "another invoice"},
		{SourceID: "f.pdf", Text: "cover"},
	}
	index := buildTestIndex(t, embedder, records)

	results, err := NewRetriever(embedder).Search(context.Background(), index, "invoice", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != DefaultTopK {
		t.Fatalf("expected default top-k %d, got %d", DefaultTopK, len(results))
	}
	if results[0].Record.SourceID != "b.pdf" || results[1].Record.SourceID != "c.pdf" || results[2].Record.SourceID != "e.pdf" {
		t.Fatalf("expected invoice records first in insertion order, got %+v", results)
	}

	results, err = NewRetriever(embedder).Search(context.Background(), index, "invoice", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearchNilOrEmptyIndex(t *testing.T) {
	retriever := NewRetriever(&embedderFake{})
	if _, err := retriever.Search(context.Background(), nil, "anything", 4); !domain.IsKind(err, domain.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments for nil index, got %v", err)
	}
	if _, err := retriever.Search(context.Background(), &Index{}, "anything", 4); !domain.IsKind(err, domain.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments for empty index, got %v", err)
	}
}

func TestSearchRejectsBlankQueryAndModelMismatch(t *testing.T) {
	embedder := &embedderFake{model: "titan-v1"}
	index := buildTestIndex(t, embedder, []domain.DocumentRecord{{SourceID: "a.pdf", Text: "x"}})

	if _, err := NewRetriever(embedder).Search(context.Background(), index, "  ", 4); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank query, got %v", err)
	}
	other := &embedderFake{model: "nomic"}
	if _, err := NewRetriever(other).Search(context.Background(), index, "x", 4); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for model mismatch, got %v", err)
	}
	if other.queryCalls != 0 {
		t.Fatalf("query must not be embedded with a mismatched model")
	}
}
