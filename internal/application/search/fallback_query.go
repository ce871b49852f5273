package search

import (
	"time"

	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/domain/repository"
)

// FallbackPlan 关系回退的查询计划
type FallbackPlan struct {
	// Queries 每个可参与查询的具体类型一条
	Queries []*repository.CatalogQuery
	// Skipped 缺少过滤所需字段、不可能命中的类型
	Skipped []entity.ContentType
	// Combined type=all 时为 true，每个类型从头取到请求页末尾，合并排序后再切出当前页
	Combined bool
	// Sort 合并排序使用的排序键（不含类型相关的降级）
	Sort []repository.SortKey
}

var (
	titleTextFields       = []entity.Field{entity.FieldTitle, entity.FieldTitleEnglish, entity.FieldTitleRomaji, entity.FieldTitleJapanese}
	descriptionTextFields = []entity.Field{entity.FieldSynopsis, entity.FieldDescription}
)

// BuildFallbackPlan 将请求编译为每个具体类型的关系谓词
func BuildFallbackPlan(req *SearchRequest) *FallbackPlan {
	plan := &FallbackPlan{
		Combined: req.Type == entity.ContentTypeAll,
		Sort:     fallbackSort(entity.ContentTypeAll, req.Sort),
	}

	offset, limit := req.Offset(), req.Limit
	if plan.Combined {
		// 任一类型在合并序列前 offset+limit 位的行都出自它自己的前 offset+limit 行
		offset, limit = 0, req.Offset()+req.Limit
	}

	required := req.Filters.RequiredFields()
	for _, t := range req.Type.Expand() {
		preds, ok := buildPredicates(t, req, required)
		if !ok {
			plan.Skipped = append(plan.Skipped, t)
			continue
		}
		plan.Queries = append(plan.Queries, &repository.CatalogQuery{
			Type:       t,
			Predicates: preds,
			Sort:       fallbackSort(t, req.Sort),
			Offset:     offset,
			Limit:      limit,
		})
	}
	return plan
}

func buildPredicates(t entity.ContentType, req *SearchRequest, required []entity.Field) ([]repository.Predicate, bool) {
	for _, f := range required {
		if !t.Supports(f) {
			return nil, false
		}
	}

	var preds []repository.Predicate
	if req.Text != "" {
		preds = append(preds, repository.Predicate{Op: repository.OpContains, Fields: t.TextFields(), Value: req.Text})
	}
	if req.Title != "" {
		preds = append(preds, repository.Predicate{Op: repository.OpContains, Fields: supported(t, titleTextFields), Value: req.Title})
	}
	if req.Description != "" {
		fields := supported(t, descriptionTextFields)
		if len(fields) == 0 {
			return nil, false
		}
		preds = append(preds, repository.Predicate{Op: repository.OpContains, Fields: fields, Value: req.Description})
	}

	f := req.Filters
	if len(f.Genres) > 0 {
		preds = append(preds, repository.Predicate{Op: repository.OpAnyOf, Fields: []entity.Field{entity.FieldGenres}, Values: f.Genres})
	}
	if len(f.Tags) > 0 {
		preds = append(preds, repository.Predicate{Op: repository.OpAnyOf, Fields: []entity.Field{entity.FieldTags}, Values: f.Tags})
	}
	// 年份转换为 [Jan1(from), Jan1(to+1)) 日期区间
	if f.YearFrom != nil {
		preds = append(preds, fieldPredicate(repository.OpGte, entity.FieldYear, jan1(*f.YearFrom)))
	}
	if f.YearTo != nil {
		preds = append(preds, fieldPredicate(repository.OpLt, entity.FieldYear, jan1(*f.YearTo+1)))
	}
	if f.Status != "" {
		preds = append(preds, fieldPredicate(repository.OpEq, entity.FieldStatus, f.Status))
	}
	if f.Rating != nil {
		if f.Rating.Min != nil {
			preds = append(preds, fieldPredicate(repository.OpGte, entity.FieldRating, *f.Rating.Min))
		}
		if f.Rating.Max != nil {
			preds = append(preds, fieldPredicate(repository.OpLte, entity.FieldRating, *f.Rating.Max))
		}
	}
	if f.Adult != nil {
		preds = append(preds, fieldPredicate(repository.OpEq, entity.FieldAdult, *f.Adult))
	}
	preds = appendIntRangePredicates(preds, entity.FieldEpisodes, f.Episodes)
	preds = appendIntRangePredicates(preds, entity.FieldDuration, f.Duration)

	return preds, true
}

func appendIntRangePredicates(preds []repository.Predicate, field entity.Field, r *IntRange) []repository.Predicate {
	if r == nil {
		return preds
	}
	if r.Min != nil {
		preds = append(preds, fieldPredicate(repository.OpGte, field, *r.Min))
	}
	if r.Max != nil {
		preds = append(preds, fieldPredicate(repository.OpLte, field, *r.Max))
	}
	return preds
}

func fieldPredicate(op repository.PredicateOp, field entity.Field, value any) repository.Predicate {
	return repository.Predicate{Op: op, Fields: []entity.Field{field}, Value: value}
}

func supported(t entity.ContentType, fields []entity.Field) []entity.Field {
	out := make([]entity.Field, 0, len(fields))
	for _, f := range fields {
		if t.Supports(f) {
			out = append(out, f)
		}
	}
	return out
}

func jan1(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// sortFieldColumns 排序字段到实体字段的映射
var sortFieldColumns = map[SortField]entity.Field{
	SortPopularity: entity.FieldPopularity,
	SortRating:     entity.FieldRating,
	SortCreated:    entity.FieldCreated,
	SortUpdated:    entity.FieldUpdated,
	SortTitle:      entity.FieldTitle,
}

// fallbackSort 关系库没有相关度，relevance 及类型不支持的字段降级为热度降序，最后以 id 升序兜底
func fallbackSort(t entity.ContentType, s SortSpec) []repository.SortKey {
	order := repository.SortOrderDesc
	if s.Order == SortAsc {
		order = repository.SortOrderAsc
	}

	field, ok := sortFieldColumns[s.Field]
	supportedField := ok && (t == entity.ContentTypeAll || t.Supports(field))
	if !supportedField {
		field, order = entity.FieldPopularity, repository.SortOrderDesc
	}

	keys := []repository.SortKey{{Field: field, Order: order}}
	if field != entity.FieldPopularity {
		keys = append(keys, repository.SortKey{Field: entity.FieldPopularity, Order: repository.SortOrderDesc})
	}
	return append(keys, repository.SortKey{Field: entity.FieldID, Order: repository.SortOrderAsc})
}
