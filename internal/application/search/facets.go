package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
	"catalog-search-api/pkg/logger"
	"catalog-search-api/pkg/metrics"
)

// FacetAssembler 过滤元数据组装，词表始终来自关系库
type FacetAssembler struct {
	vocab   repository.VocabularyRepository
	catalog repository.CatalogRepository
	cache   FacetCache
	ttl     time.Duration
}

// NewFacetAssembler 创建过滤元数据组装器，cache 可为 nil
func NewFacetAssembler(vocab repository.VocabularyRepository, catalog repository.CatalogRepository, cache FacetCache, ttl time.Duration) *FacetAssembler {
	return &FacetAssembler{
		vocab:   vocab,
		catalog: catalog,
		cache:   cache,
		ttl:     ttl,
	}
}

// Filters 返回指定类型的过滤元数据，缓存故障时直接查库
func (f *FacetAssembler) Filters(ctx context.Context, t entity.ContentType) (*FacetSet, error) {
	ctx, span := tracer.Start(ctx, "search.FacetAssembler.Filters")
	defer span.End()

	if f.cache == nil || f.ttl <= 0 {
		return f.assemble(ctx, t)
	}

	var (
		loaded  bool
		loadErr error
	)
	data, err := f.cache.GetOrLoadSafe(ctx, "search:filters:"+string(t), f.ttl, func() (interface{}, error) {
		loaded = true
		fs, err := f.assemble(ctx, t)
		loadErr = err
		return fs, err
	})
	if loadErr != nil {
		span.RecordError(loadErr)
		return nil, loadErr
	}
	if err != nil {
		logger.Warn(ctx, "facet cache unavailable, loading directly", "error", err.Error())
		metrics.CacheLookupsTotal.WithLabelValues("facets", "error").Inc()
		return f.assemble(ctx, t)
	}
	metrics.CacheLookupsTotal.WithLabelValues("facets", hitLabel(loaded)).Inc()

	var out FacetSet
	if err := json.Unmarshal(data, &out); err != nil {
		logger.Warn(ctx, "facet cache entry corrupt, loading directly", "error", err.Error())
		return f.assemble(ctx, t)
	}
	return &out, nil
}

func (f *FacetAssembler) assemble(ctx context.Context, t entity.ContentType) (*FacetSet, error) {
	genres, err := f.vocab.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	tags, err := f.vocab.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	years, err := f.catalog.YearRange(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute year range: %w", err)
	}

	fs := &FacetSet{
		Genres:      make([]string, 0, len(genres)),
		Tags:        make([]string, 0, len(tags)),
		YearRange:   years,
		Types:       append([]entity.ContentType{entity.ContentTypeAll}, entity.ConcreteTypes()...),
		Statuses:    t.Statuses(),
		RatingRange: RatingRange{Min: entity.RatingMin, Max: entity.RatingMax},
	}
	for _, g := range genres {
		fs.Genres = append(fs.Genres, g.Name)
	}
	for _, tag := range tags {
		fs.Tags = append(fs.Tags, tag.Name)
	}
	if fs.Statuses == nil {
		fs.Statuses = []string{}
	}
	return fs, nil
}

func hitLabel(loaded bool) string {
	if loaded {
		return "miss"
	}
	return "hit"
}

type aggBucket struct {
	Key         json.RawMessage `json:"key"`
	KeyAsString string          `json:"key_as_string"`
	DocCount    int64           `json:"doc_count"`
}

type aggBuckets struct {
	Buckets []aggBucket `json:"buckets"`
}

// ParseAggregations 解析高级搜索聚合响应，types 桶的索引名被映射回内容类型
func ParseAggregations(raw map[string]json.RawMessage, names IndexNames) (*Aggregations, error) {
	out := &Aggregations{
		Types:   []Bucket{},
		Genres:  []Bucket{},
		Years:   []Bucket{},
		Ratings: []Bucket{},
	}
	for name, dst := range map[string]*[]Bucket{
		aggTypes:   &out.Types,
		aggGenres:  &out.Genres,
		aggYears:   &out.Years,
		aggRatings: &out.Ratings,
	} {
		body, ok := raw[name]
		if !ok {
			continue
		}
		var agg aggBuckets
		if err := json.Unmarshal(body, &agg); err != nil {
			return nil, fmt.Errorf("failed to decode aggregation %s: %w", name, err)
		}
		for _, b := range agg.Buckets {
			key, err := bucketKey(b)
			if err != nil {
				return nil, fmt.Errorf("aggregation %s: %w", name, err)
			}
			if name == aggTypes {
				if t, ok := names.TypeOf(key); ok {
					key = string(t)
				}
			}
			*dst = append(*dst, Bucket{Key: key, Count: b.DocCount})
		}
	}
	return out, nil
}

// bucketKey terms 桶的 key 可能是字符串或数字，histogram 的 key 为浮点数
func bucketKey(b aggBucket) (string, error) {
	if len(b.Key) == 0 {
		return b.KeyAsString, nil
	}
	var s string
	if err := json.Unmarshal(b.Key, &s); err == nil {
		return s, nil
	}
	var f float64
	if err := json.Unmarshal(b.Key, &f); err != nil {
		return "", fmt.Errorf("unsupported bucket key %s", string(b.Key))
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
