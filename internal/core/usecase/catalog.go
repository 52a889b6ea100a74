package usecase

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

type CatalogQueryUseCase struct {
	catalog ports.CatalogStore
	storage ports.ObjectStorage
}

func NewCatalogQueryUseCase(catalog ports.CatalogStore, storage ports.ObjectStorage) *CatalogQueryUseCase {
	return &CatalogQueryUseCase{
		catalog: catalog,
		storage: storage,
	}
}

// List scans the catalog and keeps records matching every non-empty filter, newest first.
func (uc *CatalogQueryUseCase) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogRecord, error) {
	records, err := uc.catalog.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}

	out := make([]domain.CatalogRecord, 0, len(records))
	for _, record := range records {
		if filter.Match(record) {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Preview opens the stored image of a catalog record and reports its content type.
func (uc *CatalogQueryUseCase) Preview(ctx context.Context, id string) (io.ReadCloser, string, error) {
	record, err := uc.catalog.Get(ctx, id)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, "", domain.WrapError(domain.ErrNotFound, "preview", fmt.Errorf("record %s", id))
		}
		return nil, "", fmt.Errorf("get catalog record: %w", err)
	}
	if !record.Previewable() {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "preview", fmt.Errorf("record %s is not an image", id))
	}
	rc, err := uc.storage.Open(ctx, record.FileKey)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", record.FileKey, err)
	}
	contentType := mime.TypeByExtension(path.Ext(record.FileKey))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}
