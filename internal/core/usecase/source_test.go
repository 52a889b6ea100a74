package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func TestListAndLoadKeepsOnlyLowercasePDFKeys(t *testing.T) {
	storage := newStorageFake()
	storage.objects["a.pdf"] = []byte("first page\fsecond page")
	storage.objects["b.PDF"] = []byte("upper case suffix")
	storage.objects["notes.txt"] = []byte("plain text")
	storage.objects["dir/c.pdf"] = []byte("nested")

	records, err := NewDocumentSource(storage, &pageExtractorFake{}).ListAndLoad(context.Background())
	if err != nil {
		t.Fatalf("ListAndLoad() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	for _, record := range records {
		if !strings.HasSuffix(record.SourceID, ".pdf") {
			t.Fatalf("unexpected source %q", record.SourceID)
		}
	}
	if records[0].SourceID != "a.pdf" || records[0].SequenceNo != 0 || records[1].SequenceNo != 1 {
		t.Fatalf("unexpected page tagging: %+v", records[:2])
	}
}

func TestListAndLoadDropsBlankPages(t *testing.T) {
	storage := newStorageFake()
	storage.objects["doc.pdf"] = []byte("intro\f   \n\t\fsummary")

	records, err := NewDocumentSource(storage, &pageExtractorFake{}).ListAndLoad(context.Background())
	if err != nil {
		t.Fatalf("ListAndLoad() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 non-empty pages, got %d", len(records))
	}
	if records[1].Text != "summary" || records[1].SequenceNo != 2 {
		t.Fatalf("expected page index preserved, got %+v", records[1])
	}
}

func TestListAndLoadEmptyBucket(t *testing.T) {
	records, err := NewDocumentSource(newStorageFake(), &pageExtractorFake{}).ListAndLoad(context.Background())
	if err != nil {
		t.Fatalf("ListAndLoad() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestListAndLoadFetchErrorReturnsNoRecords(t *testing.T) {
	storage := newStorageFake()
	storage.objects["a.pdf"] = []byte("fine")
	storage.objects["b.pdf"] = []byte("broken")
	storage.openErr["b.pdf"] = domain.WrapError(domain.ErrUnauthorized, "get object", errors.New("access denied"))

	records, err := NewDocumentSource(storage, &pageExtractorFake{}).ListAndLoad(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if records != nil {
		t.Fatalf("expected nil records on failure, got %+v", records)
	}
	if !strings.Contains(err.Error(), "fetch b.pdf") {
		t.Fatalf("expected error naming step and key, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized kind preserved, got %v", err)
	}
}

func TestListAndLoadListAndParseErrors(t *testing.T) {
	storage := newStorageFake()
	storage.listErr = errors.New("bucket missing")
	if _, err := NewDocumentSource(storage, &pageExtractorFake{}).ListAndLoad(context.Background()); err == nil || !strings.Contains(err.Error(), "list documents") {
		t.Fatalf("expected list error, got %v", err)
	}

	storage = newStorageFake()
	storage.objects["x.pdf"] = []byte("%PDF-garbage")
	_, err := NewDocumentSource(storage, &pageExtractorFake{err: errors.New("malformed xref")}).ListAndLoad(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parse x.pdf") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

// strictExtractorFake rejects content that does not start with a PDF header.
type strictExtractorFake struct{}

func (strictExtractorFake) ExtractPages(_ context.Context, content []byte) ([]string, error) {
	if !strings.HasPrefix(string(content), "%PDF") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract pdf", errors.New("not a PDF file"))
	}
	return strings.Split(strings.TrimPrefix(string(content), "%PDF"), "\f"), nil
}

func TestListAndLoadIgnoresCatalogUploadsInSharedStorage(t *testing.T) {
	storage := newStorageFake()
	storage.objects["manual.pdf"] = []byte("%PDFinstallation guide")

	outcome, err := NewUploadUseCase(storage, &catalogStoreFake{}, nil, 0).Submit(context.Background(), domain.UploadForm{
		Filename: "scan.pdf",
		Body:     strings.NewReader("not a pdf"),
		Name:     "Scan",
		Location: "Desk",
	})
	if err != nil || outcome.State != domain.UploadPersisted {
		t.Fatalf("Submit() = %+v, %v", outcome, err)
	}
	if !strings.HasPrefix(storage.savedKey, "uploads/") {
		t.Fatalf("expected upload under uploads/, got %q", storage.savedKey)
	}

	records, err := NewDocumentSource(storage, strictExtractorFake{}).ListAndLoad(context.Background())
	if err != nil {
		t.Fatalf("ListAndLoad() error = %v", err)
	}
	if len(records) != 1 || records[0].SourceID != "manual.pdf" {
		t.Fatalf("expected only the document, got %+v", records)
	}
}

func TestListAndLoadExcludedPrefixesCanBeReplaced(t *testing.T) {
	storage := newStorageFake()
	storage.objects["uploads/report.pdf"] = []byte("kept")
	storage.objects["drafts/wip.pdf"] = []byte("skipped")

	records, err := NewDocumentSource(storage, &pageExtractorFake{}, WithExcludedPrefixes("drafts/")).ListAndLoad(context.Background())
	if err != nil {
		t.Fatalf("ListAndLoad() error = %v", err)
	}
	if len(records) != 1 || records[0].SourceID != "uploads/report.pdf" {
		t.Fatalf("unexpected records %+v", records)
	}
}
