package search

import (
	"context"
	"encoding/json"
	"time"
)

// IndexBackend 应用层对全文索引后端的最小依赖（port），由基础设施层提供实现
type IndexBackend interface {
	// Ping 存活探测
	Ping(ctx context.Context) error
	// Search 在一个或多个索引上执行查询
	Search(ctx context.Context, indices []string, q *IndexQuery) (*IndexResponse, error)
	// Suggest 在单个索引上执行补全联想
	Suggest(ctx context.Context, index string, q *SuggestQuery) ([]SuggestOption, error)
	// IndexDocument 按 ID 写入（覆盖）文档
	IndexDocument(ctx context.Context, index, id string, doc *Document) error
}

// IndexHit 单条命中
type IndexHit struct {
	Index     string
	ID        string
	Score     float64
	Source    json.RawMessage
	Highlight map[string][]string
}

// IndexResponse 查询响应
type IndexResponse struct {
	Total        int64
	Hits         []IndexHit
	Aggregations map[string]json.RawMessage
}

// SuggestOption 补全候选
type SuggestOption struct {
	Index  string
	ID     string
	Score  float64
	Text   string
	Source json.RawMessage
}

// FacetCache 过滤元数据缓存，命中时返回序列化后的值
type FacetCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// ReindexPublisher 异步重建索引任务发布
type ReindexPublisher interface {
	PublishReindex(ctx context.Context, job ReindexJob) error
}
