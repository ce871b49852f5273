package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"catalog-search-api/internal/application/search"
)

var _ search.IndexBackend = (*Client)(nil)

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Index     string              `json:"_index"`
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type suggestResponse struct {
	Suggest map[string][]struct {
		Text    string `json:"text"`
		Options []struct {
			Text   string          `json:"text"`
			Index  string          `json:"_index"`
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"options"`
	} `json:"suggest"`
}

// Ping 存活探测
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.Ping")
	defer span.End()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fail(span, fmt.Errorf("failed to ping elasticsearch: %w", err))
	}
	if err := decodeResponse(res, nil); err != nil {
		return fail(span, err)
	}
	return nil
}

// Search 在一个或多个索引上执行查询
func (c *Client) Search(ctx context.Context, indices []string, q *search.IndexQuery) (*search.IndexResponse, error) {
	ctx, span := tracer.Start(ctx, "elasticsearch.Search",
		trace.WithAttributes(
			attribute.StringSlice("es.indices", indices),
			attribute.String("es.query", q.Describe()),
		))
	defer span.End()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := encodeBody(q.Source())
	if err != nil {
		return nil, fail(span, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(body),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to search: %w", err))
	}

	var raw searchResponse
	if err := decodeResponse(res, &raw); err != nil {
		return nil, fail(span, err)
	}

	out := &search.IndexResponse{
		Total:        raw.Hits.Total.Value,
		Hits:         make([]search.IndexHit, 0, len(raw.Hits.Hits)),
		Aggregations: raw.Aggregations,
	}
	for _, h := range raw.Hits.Hits {
		hit := search.IndexHit{
			Index:     h.Index,
			ID:        h.ID,
			Source:    h.Source,
			Highlight: h.Highlight,
		}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits = append(out.Hits, hit)
	}

	span.SetAttributes(
		attribute.Int64("es.total", out.Total),
		attribute.Int("es.hits", len(out.Hits)),
	)
	return out, nil
}

// Suggest 在单个索引上执行补全联想
func (c *Client) Suggest(ctx context.Context, index string, q *search.SuggestQuery) ([]search.SuggestOption, error) {
	ctx, span := tracer.Start(ctx, "elasticsearch.Suggest",
		trace.WithAttributes(
			attribute.String("es.index", index),
			attribute.Int("es.size", q.Size),
		))
	defer span.End()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := encodeBody(q.Source())
	if err != nil {
		return nil, fail(span, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(body),
	)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to suggest: %w", err))
	}

	var raw suggestResponse
	if err := decodeResponse(res, &raw); err != nil {
		return nil, fail(span, err)
	}

	var out []search.SuggestOption
	for _, entry := range raw.Suggest[q.SuggesterName()] {
		for _, opt := range entry.Options {
			out = append(out, search.SuggestOption{
				Index:  opt.Index,
				ID:     opt.ID,
				Score:  opt.Score,
				Text:   opt.Text,
				Source: opt.Source,
			})
		}
	}
	span.SetAttributes(attribute.Int("es.options", len(out)))
	return out, nil
}

// IndexDocument 按 ID 写入文档，已存在时整体覆盖
func (c *Client) IndexDocument(ctx context.Context, index, id string, doc *search.Document) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.IndexDocument",
		trace.WithAttributes(
			attribute.String("es.index", index),
			attribute.String("es.id", id),
		))
	defer span.End()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := encodeBody(doc)
	if err != nil {
		return fail(span, err)
	}

	res, err := c.es.Index(index, body,
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fail(span, fmt.Errorf("failed to index document: %w", err))
	}
	if err := decodeResponse(res, nil); err != nil {
		return fail(span, err)
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
