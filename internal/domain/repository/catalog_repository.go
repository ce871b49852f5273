// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"catalog-search-api/internal/domain/entity"
)

// PredicateOp 谓词操作符
type PredicateOp string

const (
	// OpContains 任一字段大小写不敏感包含 Value
	OpContains PredicateOp = "contains"
	// OpPrefix 任一字段大小写不敏感以 Value 开头
	OpPrefix PredicateOp = "prefix"
	OpEq     PredicateOp = "eq"
	OpGte    PredicateOp = "gte"
	OpLte    PredicateOp = "lte"
	OpLt     PredicateOp = "lt"
	// OpAnyOf 多对多关联中存在任一 Values
	OpAnyOf PredicateOp = "any_of"
)

// Predicate 单个过滤谓词，Fields 多于一个时按 OR 组合
type Predicate struct {
	Op     PredicateOp
	Fields []entity.Field
	Value  any
	Values []string
}

// SortKey 排序键
type SortKey struct {
	Field entity.Field
	Order SortOrder
}

// CatalogQuery 针对单一具体类型的查询，谓词之间按 AND 组合
type CatalogQuery struct {
	Type       entity.ContentType
	Predicates []Predicate
	Sort       []SortKey
	Offset     int
	Limit      int
}

// CatalogRepository 目录实体仓储接口
type CatalogRepository interface {
	// GetByID 根据 ID 获取记录，不存在时返回 nil, nil
	GetByID(ctx context.Context, contentType entity.ContentType, id string) (*entity.CatalogRow, error)

	// List 按查询条件获取记录
	List(ctx context.Context, q *CatalogQuery) ([]*entity.CatalogRow, error)

	// Count 统计满足谓词的记录数，忽略分页与排序
	Count(ctx context.Context, q *CatalogQuery) (int64, error)

	// YearRange 获取全部类型的年份范围，无数据时返回 nil
	YearRange(ctx context.Context) (*entity.YearRange, error)
}

// VocabularyRepository 类型/标签词表仓储接口
type VocabularyRepository interface {
	// ListGenres 获取全部类型
	ListGenres(ctx context.Context) ([]*entity.Genre, error)

	// ListTags 获取全部标签
	ListTags(ctx context.Context) ([]*entity.Tag, error)
}
