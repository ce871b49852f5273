package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

// CatalogRepository 目录仓储实现，按类型路由到对应的表
type CatalogRepository struct {
	client *Client
}

// NewCatalogRepository 创建目录仓储
func NewCatalogRepository(client *Client) *CatalogRepository {
	return &CatalogRepository{client: client}
}

var _ repository.CatalogRepository = (*CatalogRepository)(nil)

// GetByID 根据 ID 获取记录
func (r *CatalogRepository) GetByID(ctx context.Context, contentType entity.ContentType, id string) (*entity.CatalogRow, error) {
	ctx, span := tracer.Start(ctx, "postgres.CatalogRepository.GetByID",
		trace.WithAttributes(attribute.String("catalog.type", string(contentType))))
	defer span.End()

	s, err := schemaFor(contentType)
	if err != nil {
		return nil, err
	}
	// 主键是 uuid，非法字符串视为不存在
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	db := getDB(ctx, r.client.db).Model(s.model).
		Where(s.columns[entity.FieldID]+" = ?", id).
		Limit(1)
	rows, err := s.load(db)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get %s: %w", contentType, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// List 按查询条件获取记录
func (r *CatalogRepository) List(ctx context.Context, q *repository.CatalogQuery) ([]*entity.CatalogRow, error) {
	ctx, span := tracer.Start(ctx, "postgres.CatalogRepository.List",
		trace.WithAttributes(
			attribute.String("catalog.type", string(q.Type)),
			attribute.Int("catalog.offset", q.Offset),
			attribute.Int("catalog.limit", q.Limit),
		))
	defer span.End()

	s, db, err := r.filtered(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	db = db.Order(s.orderBy(q.Sort))
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	rows, err := s.load(db)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list %s: %w", q.Type, err)
	}
	return rows, nil
}

// Count 统计满足谓词的记录数
func (r *CatalogRepository) Count(ctx context.Context, q *repository.CatalogQuery) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.CatalogRepository.Count",
		trace.WithAttributes(attribute.String("catalog.type", string(q.Type))))
	defer span.End()

	_, db, err := r.filtered(ctx, q)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count %s: %w", q.Type, err)
	}
	return total, nil
}

// filtered 构造带 WHERE 条件的查询
func (r *CatalogRepository) filtered(ctx context.Context, q *repository.CatalogQuery) (*catalogSchema, *gorm.DB, error) {
	s, err := schemaFor(q.Type)
	if err != nil {
		return nil, nil, err
	}
	clauses, err := s.where(q.Predicates)
	if err != nil {
		return nil, nil, err
	}

	db := getDB(ctx, r.client.db).Model(s.model)
	for _, c := range clauses {
		db = db.Where(c.sql, c.args...)
	}
	return s, db, nil
}

// yearSources 带年份的表及其日期列
var yearSources = []struct {
	table  string
	column string
}{
	{"anime", "start_date"},
	{"manga", "start_date"},
	{"novels", "published_at"},
}

// yearRangeSQL 跨表统计年份范围
func yearRangeSQL() string {
	parts := make([]string, 0, len(yearSources))
	for _, src := range yearSources {
		parts = append(parts, fmt.Sprintf(
			"SELECT EXTRACT(YEAR FROM %[2]s) AS y FROM %[1]s WHERE %[2]s IS NOT NULL", src.table, src.column,
		))
	}
	return "SELECT MIN(y)::int AS min_year, MAX(y)::int AS max_year FROM (" +
		strings.Join(parts, " UNION ALL ") + ") years"
}

// YearRange 获取全部类型的年份范围
func (r *CatalogRepository) YearRange(ctx context.Context) (*entity.YearRange, error) {
	ctx, span := tracer.Start(ctx, "postgres.CatalogRepository.YearRange")
	defer span.End()

	var result struct {
		MinYear sql.NullInt64
		MaxYear sql.NullInt64
	}
	if err := getDB(ctx, r.client.db).Raw(yearRangeSQL()).Scan(&result).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get year range: %w", err)
	}
	if !result.MinYear.Valid || !result.MaxYear.Valid {
		return nil, nil
	}
	return &entity.YearRange{Min: int(result.MinYear.Int64), Max: int(result.MaxYear.Int64)}, nil
}
