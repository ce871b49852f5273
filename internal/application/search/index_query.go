package search

import (
	"fmt"
	"strings"
)

var (
	// textBoosts 全局文本匹配字段，标题权重最高
	textBoosts = []string{
		"title^3",
		"titleEnglish^2",
		"titleRomaji^2",
		"titleJapanese^2",
		"genres^1.5",
		"synopsis",
		"description",
	}
	titleBoosts       = []string{"title^3", "titleEnglish^2", "titleRomaji^2", "titleJapanese^2"}
	descriptionFields = []string{"synopsis", "description"}
	highlightFields   = []string{"title", "synopsis", "description"}
)

// 聚合名称
const (
	aggTypes   = "types"
	aggGenres  = "genres"
	aggYears   = "years"
	aggRatings = "ratings"
)

// MatchClause 多字段加权文本匹配
type MatchClause struct {
	Text   string
	Fields []string
}

// FilterKind 过滤子句类型
type FilterKind string

const (
	FilterTerms FilterKind = "terms"
	FilterTerm  FilterKind = "term"
	FilterRange FilterKind = "range"
)

// FilterClause 单个过滤子句，不参与打分
type FilterClause struct {
	Kind   FilterKind
	Field  string
	Value  any
	Values []string
	Gte    any
	Lte    any
}

// SortClause 排序子句
type SortClause struct {
	Field string
	Order SortOrder
}

// IndexQuery 编译前的索引查询，Source 生成后端原生 DSL
type IndexQuery struct {
	Must         []MatchClause
	Filters      []FilterClause
	Sort         []SortClause
	From         int
	Size         int
	Highlight    bool
	Aggregations bool
}

// BuildIndexQuery 由规范化请求构造索引查询
func BuildIndexQuery(req *SearchRequest, from, size int) *IndexQuery {
	q := &IndexQuery{
		From:      from,
		Size:      size,
		Highlight: true,
		Filters:   buildFilterClauses(req.Filters),
		Sort:      indexSort(req.Sort),
	}
	if req.Text != "" {
		q.Must = append(q.Must, MatchClause{Text: req.Text, Fields: textBoosts})
	}
	if req.Title != "" {
		q.Must = append(q.Must, MatchClause{Text: req.Title, Fields: titleBoosts})
	}
	if req.Description != "" {
		q.Must = append(q.Must, MatchClause{Text: req.Description, Fields: descriptionFields})
	}
	return q
}

func buildFilterClauses(f FilterSet) []FilterClause {
	var out []FilterClause
	if len(f.Genres) > 0 {
		out = append(out, FilterClause{Kind: FilterTerms, Field: "genres", Values: f.Genres})
	}
	if len(f.Tags) > 0 {
		out = append(out, FilterClause{Kind: FilterTerms, Field: "tags", Values: f.Tags})
	}
	if f.YearFrom != nil || f.YearTo != nil {
		c := FilterClause{Kind: FilterRange, Field: "year"}
		if f.YearFrom != nil {
			c.Gte = *f.YearFrom
		}
		if f.YearTo != nil {
			c.Lte = *f.YearTo
		}
		out = append(out, c)
	}
	if f.Status != "" {
		out = append(out, FilterClause{Kind: FilterTerm, Field: "status", Value: f.Status})
	}
	if f.Rating != nil && (f.Rating.Min != nil || f.Rating.Max != nil) {
		c := FilterClause{Kind: FilterRange, Field: "rating"}
		if f.Rating.Min != nil {
			c.Gte = *f.Rating.Min
		}
		if f.Rating.Max != nil {
			c.Lte = *f.Rating.Max
		}
		out = append(out, c)
	}
	if f.Adult != nil {
		out = append(out, FilterClause{Kind: FilterTerm, Field: "adult", Value: *f.Adult})
	}
	out = appendIntRange(out, "episodes", f.Episodes)
	out = appendIntRange(out, "duration", f.Duration)
	return out
}

func appendIntRange(out []FilterClause, field string, r *IntRange) []FilterClause {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return out
	}
	c := FilterClause{Kind: FilterRange, Field: field}
	if r.Min != nil {
		c.Gte = *r.Min
	}
	if r.Max != nil {
		c.Lte = *r.Max
	}
	return append(out, c)
}

// indexSortFields 排序字段到文档字段的映射
var indexSortFields = map[SortField]string{
	SortPopularity: "popularity",
	SortRating:     "rating",
	SortCreated:    "createdAt",
	SortUpdated:    "updatedAt",
	SortTitle:      "title.keyword",
}

func indexSort(s SortSpec) []SortClause {
	order := s.Order
	if order == "" {
		order = SortDesc
	}
	field, ok := indexSortFields[s.Field]
	if !ok {
		return []SortClause{{Field: "_score", Order: order}}
	}
	return []SortClause{
		{Field: field, Order: order},
		{Field: "_score", Order: SortDesc},
	}
}

// Source 编译为 Elasticsearch 查询 DSL
func (q *IndexQuery) Source() map[string]any {
	must := make([]any, 0, len(q.Must))
	for _, m := range q.Must {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     m.Text,
				"fields":    m.Fields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
				"operator":  "or",
			},
		})
	}
	if len(must) == 0 {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	filter := make([]any, 0, len(q.Filters))
	for _, f := range q.Filters {
		filter = append(filter, f.source())
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filter,
			},
		},
		"from":             q.From,
		"size":             q.Size,
		"track_total_hits": true,
	}

	if len(q.Sort) > 0 {
		sorts := make([]any, 0, len(q.Sort))
		for _, s := range q.Sort {
			opts := map[string]any{"order": string(s.Order)}
			if s.Field != "_score" {
				opts["missing"] = "_last"
			}
			sorts = append(sorts, map[string]any{s.Field: opts})
		}
		body["sort"] = sorts
	}

	if q.Highlight {
		fields := make(map[string]any, len(highlightFields))
		for _, f := range highlightFields {
			fields[f] = map[string]any{
				"fragment_size":       150,
				"number_of_fragments": 3,
			}
		}
		body["highlight"] = map[string]any{
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
			"fields":    fields,
		}
	}

	if q.Aggregations {
		body["aggs"] = map[string]any{
			aggTypes:  map[string]any{"terms": map[string]any{"field": "_index", "size": 10}},
			aggGenres: map[string]any{"terms": map[string]any{"field": "genres", "size": 100}},
			aggYears: map[string]any{"terms": map[string]any{
				"field": "year",
				"size":  100,
				"order": map[string]any{"_key": "desc"},
			}},
			aggRatings: map[string]any{"histogram": map[string]any{
				"field":           "rating",
				"interval":        1,
				"min_doc_count":   0,
				"extended_bounds": map[string]any{"min": 0, "max": 10},
			}},
		}
	}

	return body
}

func (f FilterClause) source() map[string]any {
	switch f.Kind {
	case FilterTerms:
		return map[string]any{"terms": map[string]any{f.Field: f.Values}}
	case FilterRange:
		r := map[string]any{}
		if f.Gte != nil {
			r["gte"] = f.Gte
		}
		if f.Lte != nil {
			r["lte"] = f.Lte
		}
		return map[string]any{"range": map[string]any{f.Field: r}}
	default:
		return map[string]any{"term": map[string]any{f.Field: f.Value}}
	}
}

// Describe 返回查询子句摘要，用于日志定位失败的子句
func (q *IndexQuery) Describe() string {
	var parts []string
	if len(q.Must) == 0 {
		parts = append(parts, "must=match_all")
	} else {
		parts = append(parts, fmt.Sprintf("must=multi_match*%d", len(q.Must)))
	}
	if len(q.Filters) > 0 {
		fs := make([]string, 0, len(q.Filters))
		for _, f := range q.Filters {
			fs = append(fs, string(f.Kind)+":"+f.Field)
		}
		parts = append(parts, "filter="+strings.Join(fs, ","))
	}
	if len(q.Sort) > 0 {
		parts = append(parts, "sort="+q.Sort[0].Field+":"+string(q.Sort[0].Order))
	}
	if q.Aggregations {
		parts = append(parts, "aggs")
	}
	return strings.Join(parts, " ")
}

// SuggestQuery 补全联想查询
type SuggestQuery struct {
	Prefix string
	Size   int
}

// suggestName 请求体中 suggester 的名称
const suggestName = "title_suggest"

// Source 编译为 completion suggester DSL
func (q *SuggestQuery) Source() map[string]any {
	return map[string]any{
		// 只需要 suggest 段，不取普通命中
		"size":    0,
		"_source": []string{"type", "id", "title", "titleEnglish", "coverImage", "mediaType"},
		"suggest": map[string]any{
			suggestName: map[string]any{
				"prefix": q.Prefix,
				"completion": map[string]any{
					"field": "suggest",
					"size":  q.Size,
					"fuzzy": map[string]any{"fuzziness": "AUTO"},
				},
			},
		},
	}
}

// SuggesterName 返回响应中读取候选所用的 suggester 名称
func (q *SuggestQuery) SuggesterName() string {
	return suggestName
}
