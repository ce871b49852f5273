package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
	"catalog-search-api/pkg/logger"
	"catalog-search-api/pkg/metrics"
)

var tracer = otel.Tracer("search")

// 请求种类，用于指标与日志
const (
	kindGlobal   = "global"
	kindAdvanced = "advanced"
	kindSuggest  = "suggest"
)

// fallback 原因
const (
	reasonUnavailable = "unavailable"
	reasonQueryError  = "query_error"
)

// Options 引擎配置
type Options struct {
	// SubSearchTimeout 每个索引子查询的独立超时
	SubSearchTimeout time.Duration
	// AdvancedFallbackOnIndexError 高级搜索在索引失败时是否降级为无聚合的关系查询
	AdvancedFallbackOnIndexError bool
}

// Engine 混合搜索引擎：探测 -> 索引 -> 失败回退关系查询
type Engine struct {
	backend IndexBackend
	prober  *Prober
	catalog repository.CatalogRepository
	names   IndexNames
	opts    Options
}

// NewEngine 创建搜索引擎，backend 可为 nil（仅关系查询）
func NewEngine(backend IndexBackend, prober *Prober, catalog repository.CatalogRepository, names IndexNames, opts Options) *Engine {
	if opts.SubSearchTimeout <= 0 {
		opts.SubSearchTimeout = 2 * time.Second
	}
	return &Engine{
		backend: backend,
		prober:  prober,
		catalog: catalog,
		names:   names,
		opts:    opts,
	}
}

// Search 全局搜索，索引路径失败时静默回退
func (e *Engine) Search(ctx context.Context, req *SearchRequest) (*ResultPage, error) {
	ctx, span := tracer.Start(ctx, "search.Engine.Search", trace.WithAttributes(
		attribute.String("search.type", string(req.Type)),
		attribute.Int("search.page", req.Page),
		attribute.Int("search.limit", req.Limit),
	))
	defer span.End()
	start := time.Now()

	if e.prober.Available(ctx) {
		page, err := e.searchViaIndex(ctx, req)
		if err == nil {
			e.observe(span, kindGlobal, MethodIndex, start)
			return page, nil
		}
		e.logFallback(ctx, kindGlobal, reasonQueryError, err)
	} else {
		e.logFallback(ctx, kindGlobal, reasonUnavailable, &IndexUnavailableError{})
	}

	page, err := e.searchViaFallback(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fallback search failed: %w", err)
	}
	e.observe(span, kindGlobal, MethodFallback, start)
	return page, nil
}

// Advanced 高级搜索，需要索引聚合；索引失败时按配置返回 ErrAggregationsUnavailable 或降级
func (e *Engine) Advanced(ctx context.Context, req *SearchRequest) (*AdvancedPage, error) {
	ctx, span := tracer.Start(ctx, "search.Engine.Advanced", trace.WithAttributes(
		attribute.String("search.type", string(req.Type)),
	))
	defer span.End()
	start := time.Now()

	var indexErr error
	reason := reasonUnavailable
	if e.prober.Available(ctx) {
		page, err := e.advancedViaIndex(ctx, req)
		if err == nil {
			e.observe(span, kindAdvanced, MethodIndex, start)
			return page, nil
		}
		indexErr, reason = err, reasonQueryError
	} else {
		indexErr = &IndexUnavailableError{}
	}

	if !e.opts.AdvancedFallbackOnIndexError {
		logger.Warn(ctx, "advanced search unavailable without index", "reason", reason, "error", indexErr.Error())
		metrics.SearchFallbackTotal.WithLabelValues(kindAdvanced, reason+"_rejected").Inc()
		span.RecordError(indexErr)
		return nil, fmt.Errorf("%w: %w", ErrAggregationsUnavailable, indexErr)
	}

	e.logFallback(ctx, kindAdvanced, reason, indexErr)
	page, err := e.searchViaFallback(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fallback search failed: %w", err)
	}
	e.observe(span, kindAdvanced, MethodFallback, start)
	return &AdvancedPage{ResultPage: *page}, nil
}

// searchViaIndex 索引路径：type=all 走扇出，否则查询单个索引
func (e *Engine) searchViaIndex(ctx context.Context, req *SearchRequest) (*ResultPage, error) {
	if req.Type == entity.ContentTypeAll {
		return e.fanOut(ctx, req)
	}

	index := e.names.For(req.Type)
	q := BuildIndexQuery(req, req.Offset(), req.Limit)
	resp, err := e.searchIndex(ctx, []string{index}, q, e.opts.SubSearchTimeout)
	if err != nil {
		return nil, &IndexQueryError{Index: index, Clause: q.Describe(), Err: err}
	}

	results := make([]SearchResult, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		r, err := FromHit(req.Type, hit)
		if err != nil {
			return nil, &IndexQueryError{Index: index, Clause: "decode", Err: err}
		}
		results = append(results, r)
	}
	return newResultPage(results, resp.Total, req.Page, req.Limit, MethodIndex), nil
}

// advancedViaIndex 跨索引单次查询，使聚合覆盖所有请求类型
func (e *Engine) advancedViaIndex(ctx context.Context, req *SearchRequest) (*AdvancedPage, error) {
	indices := e.names.ForAll(req.Type.Expand())
	q := BuildIndexQuery(req, req.Offset(), req.Limit)
	q.Aggregations = true

	resp, err := e.searchIndex(ctx, indices, q, e.opts.SubSearchTimeout)
	if err != nil {
		return nil, &IndexQueryError{Index: indexLabel(indices), Clause: q.Describe(), Err: err}
	}

	results := make([]SearchResult, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		t := req.Type
		if t == entity.ContentTypeAll {
			var ok bool
			if t, ok = e.names.TypeOf(hit.Index); !ok {
				return nil, &IndexQueryError{Index: hit.Index, Clause: "decode", Err: fmt.Errorf("unknown index %q", hit.Index)}
			}
		}
		r, err := FromHit(t, hit)
		if err != nil {
			return nil, &IndexQueryError{Index: hit.Index, Clause: "decode", Err: err}
		}
		results = append(results, r)
	}

	aggs, err := ParseAggregations(resp.Aggregations, e.names)
	if err != nil {
		return nil, &IndexQueryError{Index: indexLabel(indices), Clause: "aggs", Err: err}
	}

	page := newResultPage(results, resp.Total, req.Page, req.Limit, MethodIndex)
	return &AdvancedPage{ResultPage: *page, Aggregations: aggs}, nil
}

// searchViaFallback 关系路径：每个类型独立查询与计数，type=all 时跨类型合并
func (e *Engine) searchViaFallback(ctx context.Context, req *SearchRequest) (*ResultPage, error) {
	plan := BuildFallbackPlan(req)
	if len(plan.Skipped) > 0 {
		logger.Debug(ctx, "fallback skipped types lacking filter fields", "types", plan.Skipped)
	}

	rows := make([][]*entity.CatalogRow, len(plan.Queries))
	counts := make([]int64, len(plan.Queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range plan.Queries {
		g.Go(func() error {
			list, err := e.catalog.List(gctx, q)
			if err != nil {
				return fmt.Errorf("list %s: %w", q.Type, err)
			}
			n, err := e.catalog.Count(gctx, q)
			if err != nil {
				return fmt.Errorf("count %s: %w", q.Type, err)
			}
			rows[i], counts[i] = list, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int64
	merged := make([]*entity.CatalogRow, 0, req.Limit)
	for i := range plan.Queries {
		total += counts[i]
		merged = append(merged, rows[i]...)
	}
	if plan.Combined {
		sortRows(merged, plan.Sort)
		merged = merged[min(req.Offset(), len(merged)):]
	}
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	results := make([]SearchResult, 0, len(merged))
	for _, row := range merged {
		results = append(results, FromRow(row))
	}

	page := newResultPage(results, total, req.Page, req.Limit, MethodFallback)
	page.Approximate = plan.Combined
	return page, nil
}

func (e *Engine) observe(span trace.Span, kind string, method Method, start time.Time) {
	span.SetAttributes(attribute.String("search.method", string(method)))
	metrics.SearchRequestsTotal.WithLabelValues(kind, string(method)).Inc()
	metrics.SearchResolveDuration.WithLabelValues(kind, string(method)).Observe(time.Since(start).Seconds())
}

// logFallback 记录回退原因，包含索引与子句定位信息，仅写日志不返回给调用方
func (e *Engine) logFallback(ctx context.Context, kind, reason string, err error) {
	args := []any{"kind", kind, "reason", reason, "error", err.Error()}
	var qe *IndexQueryError
	if errors.As(err, &qe) {
		args = append(args, "index", qe.Index, "clause", qe.Clause)
	}
	logger.Warn(ctx, "search falling back to relational store", args...)
	metrics.SearchFallbackTotal.WithLabelValues(kind, reason).Inc()
}
