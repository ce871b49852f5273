package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
	"catalog-search-api/pkg/metrics"
)

// suggestTypesFor 联想涉及的具体类型；all 包含没有联想器的用户，因此整体走前缀匹配
func suggestTypesFor(t entity.ContentType) []entity.ContentType {
	return t.Expand()
}

// Suggest 输入联想：补全联想器优先，不可用、出错或类型无联想器时走前缀匹配
func (e *Engine) Suggest(ctx context.Context, req *SuggestRequest) (*SuggestionPage, error) {
	ctx, span := tracer.Start(ctx, "search.Engine.Suggest", trace.WithAttributes(
		attribute.String("search.type", string(req.Type)),
		attribute.Int("search.limit", req.Limit),
	))
	defer span.End()
	start := time.Now()

	types := suggestTypesFor(req.Type)
	if allHaveSuggester(types) {
		if e.prober.Available(ctx) {
			items, err := e.suggestViaIndex(ctx, req, types)
			if err == nil {
				e.observe(span, kindSuggest, MethodIndex, start)
				return &SuggestionPage{Suggestions: items, Query: req.Query, SearchMethod: MethodIndex}, nil
			}
			e.logFallback(ctx, kindSuggest, reasonQueryError, err)
		} else {
			e.logFallback(ctx, kindSuggest, reasonUnavailable, &IndexUnavailableError{})
		}
	}

	items, err := e.suggestViaFallback(ctx, req, types)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fallback suggestions failed: %w", err)
	}
	e.observe(span, kindSuggest, MethodFallback, start)
	return &SuggestionPage{Suggestions: items, Query: req.Query, SearchMethod: MethodFallback}, nil
}

func allHaveSuggester(types []entity.ContentType) bool {
	for _, t := range types {
		if !hasSuggester(t) {
			return false
		}
	}
	return true
}

type scoredSuggestion struct {
	item  SuggestionItem
	score float64
}

// suggestViaIndex 每个索引一个补全请求，合并后按分数降序截断
func (e *Engine) suggestViaIndex(ctx context.Context, req *SuggestRequest, types []entity.ContentType) ([]SuggestionItem, error) {
	perType := make([][]scoredSuggestion, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		index := e.names.For(t)
		q := &SuggestQuery{Prefix: req.Query, Size: req.Limit}
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, e.opts.SubSearchTimeout)
			defer cancel()

			start := time.Now()
			opts, err := e.backend.Suggest(sctx, index, q)
			metrics.IndexQueryDuration.WithLabelValues(index, "suggest").Observe(time.Since(start).Seconds())
			if err == nil {
				err = sctx.Err()
			}
			if err != nil {
				return &IndexQueryError{Index: index, Clause: "completion:suggest", Err: err}
			}

			out := make([]scoredSuggestion, 0, len(opts))
			for _, opt := range opts {
				item, err := SuggestionFromOption(t, opt)
				if err != nil {
					return &IndexQueryError{Index: index, Clause: "decode", Err: err}
				}
				out = append(out, scoredSuggestion{item: item, score: opt.Score})
			}
			perType[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []scoredSuggestion
	for _, list := range perType {
		for _, s := range list {
			key := string(s.item.Type) + "/" + s.item.ID
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, s)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	items := make([]SuggestionItem, 0, len(merged))
	for _, s := range merged {
		items = append(items, s.item)
	}
	return items, nil
}

// suggestViaFallback 每个类型前缀匹配 ceil(limit/n) 条，按类型顺序拼接，不再重排
func (e *Engine) suggestViaFallback(ctx context.Context, req *SuggestRequest, types []entity.ContentType) ([]SuggestionItem, error) {
	perType := ceilDiv(req.Limit, len(types))
	rows := make([][]*entity.CatalogRow, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		q := &repository.CatalogQuery{
			Type: t,
			Predicates: []repository.Predicate{
				{Op: repository.OpPrefix, Fields: t.PrefixFields(), Value: req.Query},
			},
			Sort: []repository.SortKey{
				{Field: entity.FieldPopularity, Order: repository.SortOrderDesc},
				{Field: entity.FieldID, Order: repository.SortOrderAsc},
			},
			Limit: perType,
		}
		g.Go(func() error {
			list, err := e.catalog.List(gctx, q)
			if err != nil {
				return fmt.Errorf("prefix %s: %w", t, err)
			}
			rows[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]SuggestionItem, 0, req.Limit)
	for _, list := range rows {
		for _, row := range list {
			items = append(items, SuggestionFromRow(row))
		}
	}
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items, nil
}
