package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const pdfSuffix = ".pdf"

// DocumentSource lists the documents bucket and turns every PDF into page records.
type DocumentSource struct {
	storage   ports.ObjectStorage
	extractor ports.PageExtractor
	excluded  []string
}

type SourceOption func(*DocumentSource)

// WithExcludedPrefixes replaces the key prefixes skipped while listing.
// The default skips the catalog upload namespace.
func WithExcludedPrefixes(prefixes ...string) SourceOption {
	return func(s *DocumentSource) {
		s.excluded = append([]string(nil), prefixes...)
	}
}

func NewDocumentSource(storage ports.ObjectStorage, extractor ports.PageExtractor, opts ...SourceOption) *DocumentSource {
	s := &DocumentSource{
		storage:   storage,
		extractor: extractor,
		excluded:  []string{uploadKeyPrefix},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DocumentSource) skip(key string) bool {
	if !strings.HasSuffix(key, pdfSuffix) {
		return true
	}
	for _, prefix := range s.excluded {
		if prefix != "" && strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// ListAndLoad returns one record per non-empty page of every .pdf object
// outside the excluded prefixes.
// On any failure it returns nil and an error naming the step and key.
func (s *DocumentSource) ListAndLoad(ctx context.Context) ([]domain.DocumentRecord, error) {
	objects, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	records := make([]domain.DocumentRecord, 0, len(objects))
	for _, obj := range objects {
		if s.skip(obj.Key) {
			continue
		}
		pages, err := s.loadPages(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		for i, page := range pages {
			if strings.TrimSpace(page) == "" {
				continue
			}
			records = append(records, domain.DocumentRecord{
				SourceID:   obj.Key,
				Text:       page,
				SequenceNo: i,
			})
		}
	}

	slog.Info("documents_loaded", "objects", len(objects), "records", len(records))
	return records, nil
}

func (s *DocumentSource) loadPages(ctx context.Context, key string) ([]string, error) {
	rc, err := s.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	pages, err := s.extractor.ExtractPages(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return pages, nil
}
