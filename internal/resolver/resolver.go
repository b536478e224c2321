// Package resolver orchestrates the fetch half of the render pipeline: the
// primary record and its related set, cached, bounded, and normalized.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/quillpress/prerender/internal/cache"
	"github.com/quillpress/prerender/internal/config"
	"github.com/quillpress/prerender/internal/content"
	"github.com/quillpress/prerender/internal/logger"
	"github.com/quillpress/prerender/internal/metrics"
	"github.com/quillpress/prerender/internal/upstream"
)

const tracerName = "prerender/resolver"

// Fetcher is the backend boundary the resolver pulls raw records through.
type Fetcher interface {
	FetchPrimary(ctx context.Context, slugOrID string) (content.RawRecord, error)
	FetchRelated(ctx context.Context, contentID, contentType string, tags []string, limit int) ([]content.RawRecord, error)
}

// ResolvedPage is a fully resolved render input: the primary content plus a
// possibly empty related set.
type ResolvedPage struct {
	Primary content.CanonicalContent   `json:"content"`
	Related []content.CanonicalContent `json:"related"`
}

// Resolver resolves slugs to render-ready pages.
type Resolver struct {
	fetcher Fetcher
	cache   *cache.Cache
	cfg     config.RenderConfig
	logger  logger.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New creates a Resolver. The cache decides whether results are actually
// stored; in interactive mode it is constructed disabled and every resolve
// hits the backend.
func New(fetcher Fetcher, requestCache *cache.Cache, cfg config.RenderConfig, log logger.Logger, m *metrics.Metrics) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Resolver{
		fetcher: fetcher,
		cache:   requestCache,
		cfg:     cfg,
		logger:  log,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
}

// Resolve fetches and normalizes the page for slugOrID.
//
// The primary record is resolved first; without it there is no page, so its
// failure is the request's failure (upstream.ErrNotFound stays recognizable
// via errors.Is). The related fetch runs as an independent bounded operation
// once the primary's id, type, and tags are known; its failure is absorbed
// into an empty related set.
func (r *Resolver) Resolve(ctx context.Context, slugOrID string) (*ResolvedPage, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve")
	defer span.End()

	start := time.Now()
	defer func() {
		r.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	}()

	primary, err := r.resolvePrimary(ctx, slugOrID)
	if err != nil {
		return nil, err
	}

	related := r.resolveRelated(ctx, primary)

	return &ResolvedPage{Primary: primary, Related: related}, nil
}

func (r *Resolver) resolvePrimary(ctx context.Context, slugOrID string) (content.CanonicalContent, error) {
	key := cache.Key("primary", slugOrID)

	raw, err := cache.GetOrFetch(ctx, r.cache, key, r.cfg.PrimaryTTL, func(fetchCtx context.Context) (content.RawRecord, error) {
		fetchCtx, cancel := r.fetchContext(fetchCtx)
		defer cancel()

		record, fetchErr := r.fetcher.FetchPrimary(fetchCtx, slugOrID)
		if fetchErr != nil {
			r.metrics.UpstreamRequests.WithLabelValues("primary", "error").Inc()
			return nil, fetchErr
		}
		r.metrics.UpstreamRequests.WithLabelValues("primary", "ok").Inc()
		return record, nil
	})
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return content.CanonicalContent{}, fmt.Errorf("resolve %q: %w", slugOrID, err)
		}
		return content.CanonicalContent{}, fmt.Errorf("resolve %q: fetch primary: %w", slugOrID, err)
	}

	return content.Normalize(raw), nil
}

// resolveRelated runs the related-items fetch as its own bounded operation.
// Related content is cosmetic: any failure, including a blown deadline,
// degrades to an empty set.
func (r *Resolver) resolveRelated(ctx context.Context, primary content.CanonicalContent) []content.CanonicalContent {
	tags := make([]string, 0, len(primary.Tags))
	for _, t := range primary.Tags {
		tags = append(tags, t.Slug)
	}
	// Tags shape the query, so a retagged primary must miss the old set.
	key := cache.Key("related", primary.ID, primary.Type, strings.Join(tags, ","))

	records, err := cache.GetOrFetch(ctx, r.cache, key, r.cfg.RelatedTTL, func(fetchCtx context.Context) ([]content.RawRecord, error) {
		fetchCtx, cancel := r.fetchContext(fetchCtx)
		defer cancel()

		items, fetchErr := r.fetcher.FetchRelated(fetchCtx, primary.ID, primary.Type, tags, r.cfg.RelatedLimit)
		if fetchErr != nil {
			r.metrics.UpstreamRequests.WithLabelValues("related", "error").Inc()
			return nil, fetchErr
		}
		r.metrics.UpstreamRequests.WithLabelValues("related", "ok").Inc()
		return items, nil
	})
	if err != nil {
		r.logger.Warn("Related fetch failed, rendering without related items",
			logger.String("content_id", primary.ID),
			logger.String("content_type", primary.Type),
			logger.Error(err),
		)
		return []content.CanonicalContent{}
	}

	return r.filterRelated(primary, records)
}

// filterRelated normalizes the raw related records and enforces the set's
// invariants: same type as the primary, primary excluded by id, capped.
func (r *Resolver) filterRelated(primary content.CanonicalContent, records []content.RawRecord) []content.CanonicalContent {
	related := make([]content.CanonicalContent, 0, r.cfg.RelatedLimit)
	for _, raw := range records {
		item := content.Normalize(raw)
		if item.ID == "" || item.ID == primary.ID {
			continue
		}
		if item.Type != primary.Type {
			continue
		}
		related = append(related, item)
		if len(related) == r.cfg.RelatedLimit {
			break
		}
	}
	return related
}

// fetchContext bounds a fetch with the per-fetch deadline, detached from the
// caller's cancellation. An abandoned request may let the fetch finish and
// warm the cache for the next caller; the deadline keeps that bounded.
func (r *Resolver) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.cfg.FetchDeadline)
}
