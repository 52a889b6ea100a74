package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const upsertBatchSize = 256

// Builder creates one fresh collection per build so sessions never share an index.
type Builder struct {
	client *Client
	prefix string
}

func NewBuilder(client *Client, collectionPrefix string) *Builder {
	if strings.TrimSpace(collectionPrefix) == "" {
		collectionPrefix = "docqa"
	}
	return &Builder{client: client, prefix: collectionPrefix}
}

func (b *Builder) Build(ctx context.Context, entries []domain.IndexEntry) (ports.VectorIndex, error) {
	if len(entries) == 0 {
		return nil, domain.WrapError(domain.ErrNoDocuments, "qdrant build", fmt.Errorf("no entries"))
	}
	size := len(entries[0].Vector)
	for i, entry := range entries {
		if len(entry.Vector) != size {
			return nil, fmt.Errorf("qdrant build: entry %d has dimension %d, want %d", i, len(entry.Vector), size)
		}
	}

	index := &Index{
		client:     b.client,
		collection: b.prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		size:       len(entries),
	}
	if err := index.create(ctx, size); err != nil {
		return nil, err
	}
	if err := index.upsert(ctx, entries); err != nil {
		_ = index.Close()
		return nil, err
	}
	return index, nil
}

type Index struct {
	client     *Client
	collection string
	size       int
}

func (i *Index) Len() int {
	return i.size
}

func (i *Index) Collection() string {
	return i.collection
}

func (i *Index) create(ctx context.Context, vectorSize int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	return i.client.do(ctx, http.MethodPut, "/collections/"+i.collection, reqBody, nil, "create collection")
}

type point struct {
	ID      int            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (i *Index) upsert(ctx context.Context, entries []domain.IndexEntry) error {
	for start := 0; start < len(entries); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(entries))
		points := make([]point, 0, end-start)
		for ordinal := start; ordinal < end; ordinal++ {
			entry := entries[ordinal]
			points = append(points, point{
				ID:     ordinal,
				Vector: entry.Vector,
				Payload: map[string]any{
					"source_id":   entry.Payload.SourceID,
					"sequence_no": entry.Payload.SequenceNo,
					"text":        entry.Payload.Text,
				},
			})
		}
		path := fmt.Sprintf("/collections/%s/points?wait=true", i.collection)
		if err := i.client.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert"); err != nil {
			return err
		}
	}
	return nil
}

type scoredPoint struct {
	ID      int            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search orders by score, then by insertion ordinal so ties are stable.
// Qdrant breaks ties arbitrarily, so one extra point is fetched and a tie
// across the cut is resolved by fetching every point scoring at least the
// tied score.
func (i *Index) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedRecord, error) {
	if limit <= 0 {
		limit = i.size
	}
	if limit <= 0 {
		return nil, nil
	}
	points, err := i.search(ctx, queryVector, limit+1, nil)
	if err != nil {
		return nil, err
	}
	sortPoints(points)

	if len(points) > limit && points[limit-1].Score == points[limit].Score {
		threshold := points[limit].Score
		points, err = i.search(ctx, queryVector, max(i.size, limit+1), &threshold)
		if err != nil {
			return nil, err
		}
		sortPoints(points)
	}
	if len(points) > limit {
		points = points[:limit]
	}

	out := make([]domain.RetrievedRecord, 0, len(points))
	for _, r := range points {
		out = append(out, domain.RetrievedRecord{
			Record: domain.DocumentRecord{
				SourceID:   getStringPayload(r.Payload, "source_id"),
				Text:       getStringPayload(r.Payload, "text"),
				SequenceNo: getIntPayload(r.Payload, "sequence_no"),
			},
			Score: r.Score,
		})
	}
	return out, nil
}

func (i *Index) search(ctx context.Context, queryVector []float32, limit int, threshold *float64) ([]scoredPoint, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold != nil {
		reqBody["score_threshold"] = *threshold
	}
	var searchResp struct {
		Result []scoredPoint `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", i.collection)
	if err := i.client.do(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}
	return searchResp.Result, nil
}

func sortPoints(points []scoredPoint) {
	sort.SliceStable(points, func(a, b int) bool {
		if points[a].Score != points[b].Score {
			return points[a].Score > points[b].Score
		}
		return points[a].ID < points[b].ID
	})
}

// Close drops the collection.
func (i *Index) Close() error {
	return i.client.do(context.Background(), http.MethodDelete, "/collections/"+i.collection, nil, nil, "delete collection")
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
