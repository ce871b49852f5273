package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
	"catalog-search-api/pkg/logger"
	"catalog-search-api/pkg/metrics"
)

// ErrReindexQueueDisabled 未配置异步重建索引队列
var ErrReindexQueueDisabled = errors.New("async reindex queue is not configured")

// ReindexJob 单个实体的重建索引任务，按 ID 覆盖写入，可重复投递
type ReindexJob struct {
	Type        entity.ContentType `json:"type"`
	ID          string             `json:"id"`
	RequestedBy string             `json:"requestedBy,omitempty"`
}

// AuthorizeReindex 只有 admin/super_admin 可以手动重建索引
func AuthorizeReindex(role string) error {
	if entity.UserRole(role).CanReindex() {
		return nil
	}
	return &AuthorizationError{Role: role, Action: "reindex content"}
}

// Indexer 将关系库中的实体写入索引
type Indexer struct {
	backend   IndexBackend
	prober    *Prober
	catalog   repository.CatalogRepository
	names     IndexNames
	publisher ReindexPublisher
}

// NewIndexer 创建索引写入器，publisher 可为 nil（不支持异步）
func NewIndexer(backend IndexBackend, prober *Prober, catalog repository.CatalogRepository, names IndexNames, publisher ReindexPublisher) *Indexer {
	return &Indexer{
		backend:   backend,
		prober:    prober,
		catalog:   catalog,
		names:     names,
		publisher: publisher,
	}
}

// Reindex 同步重建单个实体的索引文档
func (i *Indexer) Reindex(ctx context.Context, t entity.ContentType, id string) (*Document, error) {
	ctx, span := tracer.Start(ctx, "search.Indexer.Reindex", trace.WithAttributes(
		attribute.String("content.type", string(t)),
		attribute.String("content.id", id),
	))
	defer span.End()

	row, err := i.lookup(ctx, t, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if i.backend == nil || !i.prober.Available(ctx) {
		metrics.IndexDocumentsTotal.WithLabelValues(string(t), "unavailable").Inc()
		return nil, &IndexUnavailableError{}
	}

	index := i.names.For(t)
	doc := DocumentFromRow(row)
	start := time.Now()
	err = i.backend.IndexDocument(ctx, index, row.ID, doc)
	metrics.IndexQueryDuration.WithLabelValues(index, "index").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.IndexDocumentsTotal.WithLabelValues(string(t), "error").Inc()
		return nil, &IndexQueryError{Index: index, Clause: "index:" + row.ID, Err: err}
	}

	metrics.IndexDocumentsTotal.WithLabelValues(string(t), "ok").Inc()
	logger.Info(ctx, "content reindexed", "type", t, "id", row.ID, "index", index)
	return doc, nil
}

// Enqueue 校验实体存在后投递异步重建任务
func (i *Indexer) Enqueue(ctx context.Context, job ReindexJob) error {
	if i.publisher == nil {
		return ErrReindexQueueDisabled
	}
	row, err := i.lookup(ctx, job.Type, job.ID)
	if err != nil {
		return err
	}
	job.ID = row.ID
	if err := i.publisher.PublishReindex(ctx, job); err != nil {
		return fmt.Errorf("failed to publish reindex job: %w", err)
	}
	metrics.IndexDocumentsTotal.WithLabelValues(string(job.Type), "queued").Inc()
	return nil
}

func (i *Indexer) lookup(ctx context.Context, t entity.ContentType, id string) (*entity.CatalogRow, error) {
	id = strings.TrimSpace(id)
	verr := &ValidationError{}
	if !t.IsConcrete() {
		verr.Add("type", "must be one of anime, manga, characters, users, novels")
	}
	if id == "" {
		verr.Add("id", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	row, err := i.catalog.GetByID(ctx, t, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", t, id, err)
	}
	if row == nil {
		return nil, &EntityNotFoundError{Type: t, ID: id}
	}
	return row, nil
}

// BackfillResult 批量回填统计
type BackfillResult struct {
	Indexed int
	Failed  int
}

// Backfill 按 ID 升序分批读取某一类型的全部条目并逐条写入索引；单条失败只计数，
// 索引不可用时立即返回
func (i *Indexer) Backfill(ctx context.Context, t entity.ContentType, batchSize int) (BackfillResult, error) {
	ctx, span := tracer.Start(ctx, "search.Indexer.Backfill", trace.WithAttributes(
		attribute.String("content.type", string(t)),
	))
	defer span.End()

	var res BackfillResult
	if !t.IsConcrete() {
		return res, &ValidationError{Fields: []FieldError{{Field: "type", Message: "must be a concrete content type"}}}
	}
	if i.backend == nil || !i.prober.Available(ctx) {
		return res, &IndexUnavailableError{}
	}
	if batchSize <= 0 {
		batchSize = 200
	}

	index := i.names.For(t)
	byID := []repository.SortKey{{Field: entity.FieldID, Order: repository.SortOrderAsc}}
	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rows, err := i.catalog.List(ctx, &repository.CatalogQuery{Type: t, Sort: byID, Offset: offset, Limit: batchSize})
		if err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("failed to list %s at offset %d: %w", t, offset, err)
		}

		for _, row := range rows {
			if err := i.backend.IndexDocument(ctx, index, row.ID, DocumentFromRow(row)); err != nil {
				res.Failed++
				metrics.IndexDocumentsTotal.WithLabelValues(string(t), "error").Inc()
				logger.Warn(ctx, "backfill document failed", "type", t, "id", row.ID, "error", err.Error())
				continue
			}
			res.Indexed++
			metrics.IndexDocumentsTotal.WithLabelValues(string(t), "ok").Inc()
		}

		if len(rows) < batchSize {
			break
		}
	}

	logger.Info(ctx, "backfill finished", "type", t, "index", index, "indexed", res.Indexed, "failed", res.Failed)
	return res, nil
}
