package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const sheetName = "Catalog"

var header = []any{"ID", "Name", "Location", "Description", "Link", "Previewable", "Created At"}

// WriteCatalog renders records as a single-sheet workbook.
func WriteCatalog(w io.Writer, records []domain.CatalogRecord) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, record := range records {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{
			record.ID,
			record.Name,
			record.Location,
			record.Description,
			record.FileLink,
			record.Previewable(),
			record.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if record.FileLink != "" {
			linkCell, _ := excelize.CoordinatesToCellName(5, row)
			if err := f.SetCellHyperLink(sheetName, linkCell, record.FileLink, "External"); err != nil {
				return fmt.Errorf("link row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "B", "E", 28); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
