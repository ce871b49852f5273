package messaging

import (
	"context"
	"errors"
	"fmt"

	"catalog-search-api/internal/application/search"
	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/pkg/logger"
)

// Reindexer 同步写入单个索引文档
type Reindexer interface {
	Reindex(ctx context.Context, t entity.ContentType, id string) (*search.Document, error)
}

// NewReindexHandler 构造重建索引消息处理器；条目不存在或参数非法视为永久失败，
// 其余错误（索引不可用、写入失败）留待重试。写入成功后调用 onIndexed（可为 nil）
func NewReindexHandler(indexer Reindexer, onIndexed func(ctx context.Context, job search.ReindexJob)) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var job search.ReindexJob
		if err := msg.UnmarshalPayload(&job); err != nil {
			return fmt.Errorf("%w: invalid reindex payload: %v", ErrPermanent, err)
		}

		var (
			verr     *search.ValidationError
			notFound *search.EntityNotFoundError
		)
		doc, err := indexer.Reindex(ctx, job.Type, job.ID)
		switch {
		case err == nil:
		case errors.As(err, &verr), errors.As(err, &notFound):
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		default:
			return err
		}

		logger.Info(ctx, "reindex job applied",
			"type", job.Type,
			"id", doc.ID,
			"requested_by", job.RequestedBy,
		)
		if onIndexed != nil {
			onIndexed(ctx, job)
		}
		return nil
	}
}
