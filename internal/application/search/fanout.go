package search

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/pkg/metrics"
)

// fanOut type=all 时对每个具体索引并发子查询，任一子查询失败或超时则整体失败
func (e *Engine) fanOut(ctx context.Context, req *SearchRequest) (*ResultPage, error) {
	types := entity.ConcreteTypes()
	size := ceilDiv(req.Limit, len(types))
	from := (req.Page - 1) * size

	responses := make([]*IndexResponse, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		index := e.names.For(t)
		q := BuildIndexQuery(req, from, size)
		g.Go(func() error {
			resp, err := e.searchIndex(gctx, []string{index}, q, e.opts.SubSearchTimeout)
			if err != nil {
				return &IndexQueryError{Index: index, Clause: q.Describe(), Err: err}
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int64
	merged := make([]SearchResult, 0, size*len(types))
	for i, t := range types {
		resp := responses[i]
		total += resp.Total
		for _, hit := range resp.Hits {
			r, err := FromHit(t, hit)
			if err != nil {
				return nil, &IndexQueryError{Index: e.names.For(t), Clause: "decode", Err: err}
			}
			merged = append(merged, r)
		}
	}

	// 只有相关度排序时跨类型分数可比
	if req.Sort.Field == SortRelevance {
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Score > merged[j].Score
		})
	}
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	page := newResultPage(merged, total, req.Page, req.Limit, MethodIndex)
	page.Approximate = true
	return page, nil
}

// searchIndex 执行单次索引查询，timeout 大于 0 时附加独立超时
func (e *Engine) searchIndex(ctx context.Context, indices []string, q *IndexQuery, timeout time.Duration) (*IndexResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	label := indexLabel(indices)
	start := time.Now()
	resp, err := e.backend.Search(ctx, indices, q)
	metrics.IndexQueryDuration.WithLabelValues(label, "search").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if resp == nil {
		resp = &IndexResponse{}
	}
	return resp, nil
}

func indexLabel(indices []string) string {
	if len(indices) == 1 {
		return indices[0]
	}
	return "multi"
}
