package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func TestWriteCatalog(t *testing.T) {
	records := []domain.CatalogRecord{
		{ID: "1", Name: "Alpha", Location: "NY", FileLink: "https://signed/1", FileKey: "uploads/1_a.PNG", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: "2", Name: "beta", Location: "LA", Description: "price sheet", FileLink: "https://signed/2", FileKey: "uploads/2_b.pdf"},
	}

	var buf bytes.Buffer
	if err := WriteCatalog(&buf, records); err != nil {
		t.Fatalf("WriteCatalog() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][1] != "Alpha" || rows[2][3] != "price sheet" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][5] != "TRUE" || rows[2][5] != "FALSE" {
		t.Fatalf("unexpected previewable column %q %q", rows[1][5], rows[2][5])
	}
	if rows[1][6] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %q", rows[1][6])
	}

	ok, target, err := f.GetCellHyperLink(sheetName, "E2")
	if err != nil || !ok || target != "https://signed/1" {
		t.Fatalf("expected hyperlink on E2, got ok=%v target=%q err=%v", ok, target, err)
	}
}

func TestWriteCatalogEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, nil); err != nil {
		t.Fatalf("WriteCatalog() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected a workbook even without records")
	}
}
