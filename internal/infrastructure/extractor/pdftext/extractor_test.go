package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pageTexts ...string) []byte {
	var objects []string
	n := len(pageTexts)
	fontID := 3 + 2*n

	kids := make([]string, 0, n)
	for i := range pageTexts {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	)
	for i, text := range pageTexts {
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPagesInOrder(t *testing.T) {
	content := buildPDF("Hello page one", "", "Goodbye page three")

	pages, err := NewExtractor().ExtractPages(context.Background(), content)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if !strings.Contains(pages[0], "Hello page one") {
		t.Fatalf("unexpected first page %q", pages[0])
	}
	if strings.TrimSpace(pages[1]) != "" {
		t.Fatalf("expected blank second page, got %q", pages[1])
	}
	if !strings.Contains(pages[2], "Goodbye page three") {
		t.Fatalf("unexpected third page %q", pages[2])
	}
}

func TestExtractPagesRejectsGarbage(t *testing.T) {
	for _, content := range [][]byte{nil, []byte("not a pdf at all")} {
		if _, err := NewExtractor().ExtractPages(context.Background(), content); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %q, got %v", content, err)
		}
	}
}
