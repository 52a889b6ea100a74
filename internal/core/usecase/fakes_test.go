package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

type storageFake struct {
	mu sync.Mutex

	objects    map[string][]byte
	listErr    error
	openErr    map[string]error
	saveErr    error
	presignErr error

	saveCalls    int
	presignCalls []string
	savedKey     string
	savedType    string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte), openErr: make(map[string]error)}
}

func (f *storageFake) List(context.Context) ([]domain.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sortStrings(keys)
	out := make([]domain.ObjectInfo, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.ObjectInfo{Key: key, Size: int64(len(f.objects[key]))})
	}
	return out, nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := f.openErr[key]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *storageFake) Save(_ context.Context, key, contentType string, data io.Reader) error {
	f.mu.Lock()
	f.saveCalls++
	f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	f.savedKey = key
	f.savedType = contentType
	return nil
}

func (f *storageFake) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	f.presignCalls = append(f.presignCalls, key)
	f.mu.Unlock()
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.example/" + key + "?ttl=" + ttl.String(), nil
}

func sortStrings(values []string) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] < values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

// pageExtractorFake splits content on form feeds, one page per part.
type pageExtractorFake struct {
	err error
}

func (f *pageExtractorFake) ExtractPages(_ context.Context, content []byte) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return strings.Split(string(content), "\f"), nil
}

// embedderFake maps each text to a vector of keyword hits.
type embedderFake struct {
	model    string
	keywords []string
	err      error

	batches    [][]string
	queryCalls int
	shortBy    int
}

func (f *embedderFake) vector(text string) []float32 {
	lower := strings.ToLower(text)
	out := make([]float32, len(f.keywords)+1)
	for i, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			out[i] = 1
		}
	}
	out[len(f.keywords)] = 0.01
	return out
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]string(nil), texts...))
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, f.vector(text))
	}
	return out[:len(out)-f.shortBy], nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queryCalls++
	return f.vector(text), nil
}

func (f *embedderFake) Model() string {
	if f.model == "" {
		return "fake-embed"
	}
	return f.model
}

type vectorBuilderFake struct {
	built []domain.IndexEntry
	err   error
}

func (f *vectorBuilderFake) Build(_ context.Context, entries []domain.IndexEntry) (ports.VectorIndex, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.built = append([]domain.IndexEntry(nil), entries...)
	return &dotIndexFake{entries: f.built}, nil
}

// dotIndexFake ranks by dot product, keeping insertion order for ties.
type dotIndexFake struct {
	entries []domain.IndexEntry
}

func (f *dotIndexFake) Search(_ context.Context, queryVector []float32, limit int) ([]domain.RetrievedRecord, error) {
	out := make([]domain.RetrievedRecord, 0, len(f.entries))
	for _, entry := range f.entries {
		var score float64
		for i := range queryVector {
			if i < len(entry.Vector) {
				score += float64(queryVector[i] * entry.Vector[i])
			}
		}
		out = append(out, domain.RetrievedRecord{Record: entry.Payload, Score: score})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *dotIndexFake) Len() int {
	return len(f.entries)
}

type completionFake struct {
	mu sync.Mutex

	answer    string
	throttles int
	err       error
	block     chan struct{}

	calls   int
	prompts []string
}

func (f *completionFake) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	call := f.calls
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if call <= f.throttles {
		return "", domain.WrapError(domain.ErrThrottled, "complete", errors.New("rate exceeded"))
	}
	return f.answer, nil
}

type catalogStoreFake struct {
	records   []domain.CatalogRecord
	appendErr error
	scanErr   error

	appendCalls int
	scanCalls   int
	getCalls    int
}

func (f *catalogStoreFake) Append(_ context.Context, record domain.CatalogRecord) error {
	f.appendCalls++
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *catalogStoreFake) Scan(context.Context) ([]domain.CatalogRecord, error) {
	f.scanCalls++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return append([]domain.CatalogRecord(nil), f.records...), nil
}

func (f *catalogStoreFake) Get(_ context.Context, id string) (domain.CatalogRecord, error) {
	f.getCalls++
	if f.scanErr != nil {
		return domain.CatalogRecord{}, f.scanErr
	}
	for _, record := range f.records {
		if record.ID == id {
			return record, nil
		}
	}
	return domain.CatalogRecord{}, domain.WrapError(domain.ErrNotFound, "get", errors.New("record "+id))
}

type catalogEventsFake struct {
	published []domain.CatalogRecord
	err       error
}

func (f *catalogEventsFake) PublishRecordPersisted(_ context.Context, record domain.CatalogRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, record)
	return nil
}

type linkCacheFake struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newLinkCacheFake() *linkCacheFake {
	return &linkCacheFake{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *linkCacheFake) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *linkCacheFake) Set(_ context.Context, key, link string, ttl time.Duration) error {
	f.values[key] = link
	f.ttls[key] = ttl
	return nil
}
