package elasticsearch

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// catalogMapping 所有类型索引共用的映射，字段与 search.Document 的 JSON 名称一致
func catalogMapping() map[string]any {
	text := func() map[string]any {
		return map[string]any{
			"type": "text",
			"fields": map[string]any{
				"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
			},
		}
	}
	keyword := map[string]any{"type": "keyword"}
	integer := map[string]any{"type": "integer"}
	date := map[string]any{"type": "date"}

	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"dynamic": "false",
			"properties": map[string]any{
				"type":          keyword,
				"id":            keyword,
				"title":         text(),
				"titleEnglish":  text(),
				"titleRomaji":   text(),
				"titleJapanese": text(),
				"synopsis":      map[string]any{"type": "text"},
				"description":   map[string]any{"type": "text"},
				"coverImage":    map[string]any{"type": "keyword", "index": false},
				"mediaType":     keyword,
				"status":        keyword,
				"rating":        map[string]any{"type": "float"},
				"popularity":    map[string]any{"type": "long"},
				"genres":        keyword,
				"tags":          keyword,
				"year":          integer,
				"adult":         map[string]any{"type": "boolean"},
				"episodes":      integer,
				"duration":      integer,
				"createdAt":     date,
				"updatedAt":     date,
				"suggest":       map[string]any{"type": "completion"},
			},
		},
	}
}

// EnsureIndices 创建缺失的索引，已存在的索引不做修改
func (c *Client) EnsureIndices(ctx context.Context, names []string) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.EnsureIndices",
		trace.WithAttributes(attribute.StringSlice("es.indices", names)))
	defer span.End()

	for _, name := range names {
		res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fail(span, fmt.Errorf("failed to check index %s: %w", name, err))
		}
		res.Body.Close()
		if res.StatusCode == http.StatusOK {
			continue
		}
		if res.StatusCode != http.StatusNotFound {
			return fail(span, &ResponseError{Status: res.StatusCode})
		}

		body, err := encodeBody(catalogMapping())
		if err != nil {
			return fail(span, err)
		}
		res, err = c.es.Indices.Create(name,
			c.es.Indices.Create.WithContext(ctx),
			c.es.Indices.Create.WithBody(body),
		)
		if err != nil {
			return fail(span, fmt.Errorf("failed to create index %s: %w", name, err))
		}
		if err := decodeResponse(res, nil); err != nil {
			return fail(span, fmt.Errorf("failed to create index %s: %w", name, err))
		}
	}
	return nil
}
