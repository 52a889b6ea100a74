package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func TestCatalogListFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	catalog := &catalogStoreFake{records: []domain.CatalogRecord{
		{ID: "1", Name: "Alpha", Location: "NY", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "2", Name: "beta", Location: "LA", CreatedAt: base},
	}}
	uc := NewCatalogQueryUseCase(catalog, newStorageFake())

	records, err := uc.List(context.Background(), domain.CatalogFilter{Name: "a"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both records for name filter a, got %+v", records)
	}

	records, err = uc.List(context.Background(), domain.CatalogFilter{Name: "a", Location: "NY"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 || records[0].Name != "Alpha" {
		t.Fatalf("expected only Alpha, got %+v", records)
	}

	records, err = uc.List(context.Background(), domain.CatalogFilter{Location: "la"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "2" {
		t.Fatalf("expected case-insensitive location match, got %+v", records)
	}
}

func TestCatalogListNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	catalog := &catalogStoreFake{records: []domain.CatalogRecord{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(time.Minute)},
	}}
	records, err := NewCatalogQueryUseCase(catalog, newStorageFake()).List(context.Background(), domain.CatalogFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if records[0].ID != "new" {
		t.Fatalf("expected newest first, got %+v", records)
	}
}

func TestCatalogPreview(t *testing.T) {
	storage := newStorageFake()
	storage.objects["uploads/1_shop.png"] = []byte("png-bytes")
	catalog := &catalogStoreFake{records: []domain.CatalogRecord{
		{ID: "1", FileKey: "uploads/1_shop.png"},
		{ID: "2", FileKey: "uploads/2_notes.pdf"},
	}}
	uc := NewCatalogQueryUseCase(catalog, storage)

	rc, contentType, err := uc.Preview(context.Background(), "1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected preview %q %q", body, contentType)
	}

	if _, _, err := uc.Preview(context.Background(), "2"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for non-image, got %v", err)
	}
	if _, _, err := uc.Preview(context.Background(), "3"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogPreviewFetchesOneRecord(t *testing.T) {
	storage := newStorageFake()
	storage.objects["uploads/7_front.jpg"] = []byte("jpg")
	catalog := &catalogStoreFake{}
	for i := range 50 {
		catalog.records = append(catalog.records, domain.CatalogRecord{ID: fmt.Sprintf("r-%d", i), FileKey: "uploads/x.pdf"})
	}
	catalog.records = append(catalog.records, domain.CatalogRecord{ID: "7", FileKey: "uploads/7_front.jpg"})
	uc := NewCatalogQueryUseCase(catalog, storage)

	rc, contentType, err := uc.Preview(context.Background(), "7")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	rc.Close()
	if contentType != "image/jpeg" || catalog.getCalls != 1 || catalog.scanCalls != 0 {
		t.Fatalf("unexpected lookup: type=%q get=%d scan=%d", contentType, catalog.getCalls, catalog.scanCalls)
	}
}

func TestCatalogPreviewStoreFailure(t *testing.T) {
	catalog := &catalogStoreFake{scanErr: domain.WrapError(domain.ErrTemporary, "get", errors.New("timeout"))}
	uc := NewCatalogQueryUseCase(catalog, newStorageFake())

	if _, _, err := uc.Preview(context.Background(), "1"); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
