// Package search 实现目录混合搜索：优先走全文索引，索引不可用或出错时回退到关系查询
package search

import (
	"catalog-search-api/internal/domain/entity"
)

// SortField 排序字段
type SortField string

const (
	SortRelevance  SortField = "relevance"
	SortPopularity SortField = "popularity"
	SortRating     SortField = "rating"
	SortCreated    SortField = "created"
	SortUpdated    SortField = "updated"
	SortTitle      SortField = "title"
)

// SortOrder 排序方向
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortSpec 排序规格
type SortSpec struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"order"`
}

// DefaultSort 默认按相关度降序
var DefaultSort = SortSpec{Field: SortRelevance, Order: SortDesc}

// Range 浮点闭区间，端点可缺省
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IntRange 整数闭区间，端点可缺省
type IntRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// FilterSet 过滤条件，零值表示不过滤
type FilterSet struct {
	Genres   []string  `json:"genres,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	YearFrom *int      `json:"yearFrom,omitempty"`
	YearTo   *int      `json:"yearTo,omitempty"`
	Status   string    `json:"status,omitempty"`
	Rating   *Range    `json:"rating,omitempty"`
	Adult    *bool     `json:"adult,omitempty"`
	Episodes *IntRange `json:"episodes,omitempty"`
	Duration *IntRange `json:"duration,omitempty"`
}

// RequiredFields 返回这些过滤条件依赖的实体字段
func (f FilterSet) RequiredFields() []entity.Field {
	var out []entity.Field
	if len(f.Genres) > 0 {
		out = append(out, entity.FieldGenres)
	}
	if len(f.Tags) > 0 {
		out = append(out, entity.FieldTags)
	}
	if f.YearFrom != nil || f.YearTo != nil {
		out = append(out, entity.FieldYear)
	}
	if f.Status != "" {
		out = append(out, entity.FieldStatus)
	}
	if f.Rating != nil && (f.Rating.Min != nil || f.Rating.Max != nil) {
		out = append(out, entity.FieldRating)
	}
	if f.Adult != nil {
		out = append(out, entity.FieldAdult)
	}
	if f.Episodes != nil && (f.Episodes.Min != nil || f.Episodes.Max != nil) {
		out = append(out, entity.FieldEpisodes)
	}
	if f.Duration != nil && (f.Duration.Min != nil || f.Duration.Max != nil) {
		out = append(out, entity.FieldDuration)
	}
	return out
}

// SearchRequest 规范化后的搜索请求
type SearchRequest struct {
	// Text 全局搜索文本，高级搜索可为空
	Text string
	// Title/Description 仅高级搜索使用的定向文本
	Title       string
	Description string

	Type    entity.ContentType
	Filters FilterSet
	Sort    SortSpec
	Page    int
	Limit   int
}

// Offset 返回单一类型查询的偏移量
func (r *SearchRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// HasText 是否包含任何文本条件
func (r *SearchRequest) HasText() bool {
	return r.Text != "" || r.Title != "" || r.Description != ""
}

// Method 实际走过的搜索路径
type Method string

const (
	MethodIndex    Method = "index"
	MethodFallback Method = "fallback"
)

// SearchResult 统一的搜索结果
type SearchResult struct {
	Type         entity.ContentType  `json:"type"`
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	TitleEnglish string              `json:"titleEnglish,omitempty"`
	Synopsis     string              `json:"synopsis,omitempty"`
	CoverImage   string              `json:"coverImage,omitempty"`
	Rating       *float64            `json:"rating,omitempty"`
	Popularity   *int64              `json:"popularity,omitempty"`
	Genres       []string            `json:"genres"`
	Score        float64             `json:"score"`
	Highlight    map[string][]string `json:"highlight,omitempty"`
}

// ResultPage 分页搜索结果
type ResultPage struct {
	Results      []SearchResult `json:"results"`
	Total        int64          `json:"total"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	TotalPages   int            `json:"totalPages"`
	HasNext      bool           `json:"hasNext"`
	HasPrev      bool           `json:"hasPrev"`
	SearchMethod Method         `json:"searchMethod"`
	// Approximate total 为各类型独立计数之和时为 true
	Approximate bool `json:"approximate"`
}

// Bucket 聚合桶
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Aggregations 高级搜索聚合结果
type Aggregations struct {
	Types   []Bucket `json:"types"`
	Genres  []Bucket `json:"genres"`
	Years   []Bucket `json:"years"`
	Ratings []Bucket `json:"ratings"`
}

// AdvancedPage 高级搜索结果，回退路径下 Aggregations 为 nil
type AdvancedPage struct {
	ResultPage
	Aggregations *Aggregations `json:"aggregations,omitempty"`
}

// SuggestRequest 联想请求
type SuggestRequest struct {
	Query string
	Type  entity.ContentType
	Limit int
}

// SuggestionItem 联想条目
type SuggestionItem struct {
	Type         entity.ContentType `json:"type"`
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	TitleEnglish string             `json:"titleEnglish,omitempty"`
	CoverImage   string             `json:"coverImage,omitempty"`
	MediaType    string             `json:"mediaType,omitempty"`
}

// SuggestionPage 联想结果
type SuggestionPage struct {
	Suggestions  []SuggestionItem `json:"suggestions"`
	Query        string           `json:"query"`
	SearchMethod Method           `json:"searchMethod"`
}

// RatingRange 评分边界
type RatingRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FacetSet 过滤元数据
type FacetSet struct {
	Genres      []string             `json:"genres"`
	Tags        []string             `json:"tags"`
	YearRange   *entity.YearRange    `json:"yearRange"`
	Types       []entity.ContentType `json:"types"`
	Statuses    []string             `json:"statuses"`
	RatingRange RatingRange          `json:"ratingRange"`
}

// TrendingPeriod 热门统计周期
type TrendingPeriod string

const (
	PeriodDay   TrendingPeriod = "day"
	PeriodWeek  TrendingPeriod = "week"
	PeriodMonth TrendingPeriod = "month"
	PeriodAll   TrendingPeriod = "all"
)

// TrendingRequest 热门请求
type TrendingRequest struct {
	Period TrendingPeriod
	Limit  int
}
