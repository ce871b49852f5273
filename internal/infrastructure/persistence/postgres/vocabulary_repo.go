package postgres

import (
	"context"
	"fmt"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

// VocabularyRepository 类型/标签词表仓储实现
type VocabularyRepository struct {
	client *Client
}

// NewVocabularyRepository 创建词表仓储
func NewVocabularyRepository(client *Client) *VocabularyRepository {
	return &VocabularyRepository{client: client}
}

var _ repository.VocabularyRepository = (*VocabularyRepository)(nil)

// ListGenres 获取全部类型，按名称排序
func (r *VocabularyRepository) ListGenres(ctx context.Context) ([]*entity.Genre, error) {
	ctx, span := tracer.Start(ctx, "postgres.VocabularyRepository.ListGenres")
	defer span.End()

	var genres []*entity.Genre
	if err := getDB(ctx, r.client.db).Order("name ASC").Find(&genres).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

// ListTags 获取全部标签，按名称排序
func (r *VocabularyRepository) ListTags(ctx context.Context) ([]*entity.Tag, error) {
	ctx, span := tracer.Start(ctx, "postgres.VocabularyRepository.ListTags")
	defer span.End()

	var tags []*entity.Tag
	if err := getDB(ctx, r.client.db).Order("name ASC").Find(&tags).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}
