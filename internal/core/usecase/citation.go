package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const (
	DefaultLinkTTL         = time.Hour
	DefaultLinkCacheMargin = 5 * time.Minute
)

// CitationResolver issues one time-limited link per distinct source, in ranked order.
type CitationResolver struct {
	storage ports.ObjectStorage
	cache   ports.LinkCache
	ttl     time.Duration
	margin  time.Duration
	now     func() time.Time
}

type CitationOption func(*CitationResolver)

// WithLinkCache keeps issued links in cache for ttl minus margin.
func WithLinkCache(cache ports.LinkCache, margin time.Duration) CitationOption {
	return func(r *CitationResolver) {
		r.cache = cache
		if margin > 0 {
			r.margin = margin
		}
	}
}

func WithClock(now func() time.Time) CitationOption {
	return func(r *CitationResolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewCitationResolver(storage ports.ObjectStorage, ttl time.Duration, opts ...CitationOption) *CitationResolver {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	r := &CitationResolver{
		storage: storage,
		ttl:     ttl,
		margin:  DefaultLinkCacheMargin,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CitationResolver) Cite(ctx context.Context, records []domain.RetrievedRecord) ([]domain.Citation, error) {
	seen := make(map[string]struct{}, len(records))
	citations := make([]domain.Citation, 0, len(records))
	for _, record := range records {
		sourceID := record.Record.SourceID
		if _, ok := seen[sourceID]; ok {
			continue
		}
		seen[sourceID] = struct{}{}

		link, expiresAt, err := r.link(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("issue link for %s: %w", sourceID, err)
		}
		citations = append(citations, domain.Citation{
			SourceID:  sourceID,
			Link:      link,
			ExpiresAt: expiresAt,
		})
	}
	return citations, nil
}

func (r *CitationResolver) link(ctx context.Context, key string) (string, time.Time, error) {
	cacheTTL := r.ttl - r.margin
	useCache := r.cache != nil && cacheTTL > 0

	if useCache {
		cached, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("link_cache_get_failed", "key", key, "error", err)
		} else if ok {
			// Cached entries are younger than cacheTTL, so the link is valid for at least margin.
			return cached, r.now().Add(r.margin).UTC(), nil
		}
	}

	issuedAt := r.now()
	link, err := r.storage.PresignGet(ctx, key, r.ttl)
	if err != nil {
		return "", time.Time{}, err
	}

	if useCache {
		if err := r.cache.Set(ctx, key, link, cacheTTL); err != nil {
			slog.Warn("link_cache_set_failed", "key", key, "error", err)
		}
	}
	return link, issuedAt.Add(r.ttl).UTC(), nil
}
