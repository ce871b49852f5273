package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
	"catalog-search-api/pkg/logger"
	"catalog-search-api/pkg/metrics"
)

// trendingTypes 参与热门榜的媒体类型
var trendingTypes = []entity.ContentType{
	entity.ContentTypeAnime,
	entity.ContentTypeManga,
	entity.ContentTypeNovels,
}

var periodWindows = map[TrendingPeriod]time.Duration{
	PeriodDay:   24 * time.Hour,
	PeriodWeek:  7 * 24 * time.Hour,
	PeriodMonth: 30 * 24 * time.Hour,
}

// Trending 热门榜：统计周期内有更新的条目按热度降序
type Trending struct {
	catalog repository.CatalogRepository
	cache   FacetCache
	ttl     time.Duration
	now     func() time.Time
}

// NewTrending 创建热门榜服务，cache 可为 nil
func NewTrending(catalog repository.CatalogRepository, cache FacetCache, ttl time.Duration) *Trending {
	return &Trending{
		catalog: catalog,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
	}
}

// List 返回热门条目
func (t *Trending) List(ctx context.Context, req *TrendingRequest) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "search.Trending.List")
	defer span.End()

	if t.cache == nil || t.ttl <= 0 {
		return t.load(ctx, req)
	}

	var loadErr error
	key := fmt.Sprintf("search:trending:%s:%d", req.Period, req.Limit)
	data, err := t.cache.GetOrLoadSafe(ctx, key, t.ttl, func() (interface{}, error) {
		list, err := t.load(ctx, req)
		loadErr = err
		return list, err
	})
	if loadErr != nil {
		span.RecordError(loadErr)
		return nil, loadErr
	}
	if err != nil {
		logger.Warn(ctx, "trending cache unavailable, loading directly", "error", err.Error())
		metrics.CacheLookupsTotal.WithLabelValues("trending", "error").Inc()
		return t.load(ctx, req)
	}

	var out []SearchResult
	if err := json.Unmarshal(data, &out); err != nil {
		return t.load(ctx, req)
	}
	return out, nil
}

func (t *Trending) load(ctx context.Context, req *TrendingRequest) ([]SearchResult, error) {
	var preds []repository.Predicate
	if window, ok := periodWindows[req.Period]; ok {
		preds = append(preds, fieldPredicate(repository.OpGte, entity.FieldUpdated, t.now().Add(-window)))
	}
	sortKeys := []repository.SortKey{
		{Field: entity.FieldPopularity, Order: repository.SortOrderDesc},
		{Field: entity.FieldID, Order: repository.SortOrderAsc},
	}

	rows := make([][]*entity.CatalogRow, len(trendingTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, ct := range trendingTypes {
		q := &repository.CatalogQuery{Type: ct, Predicates: preds, Sort: sortKeys, Limit: req.Limit}
		g.Go(func() error {
			list, err := t.catalog.List(gctx, q)
			if err != nil {
				return fmt.Errorf("trending %s: %w", ct, err)
			}
			rows[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*entity.CatalogRow
	for _, list := range rows {
		merged = append(merged, list...)
	}
	sortRows(merged, sortKeys)
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	out := make([]SearchResult, 0, len(merged))
	for _, row := range merged {
		out = append(out, FromRow(row))
	}
	return out, nil
}
