package dto

import (
	"catalog-search-api/internal/application/search"

	"github.com/gin-gonic/gin"
)

// GlobalSearchQuery 全局搜索查询参数，数值保持字符串交给规范化器统一校验
type GlobalSearchQuery struct {
	Query     string `form:"query"`
	Type      string `form:"type"`
	Page      string `form:"page"`
	Limit     string `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// BindGlobalSearch 绑定全局搜索参数，filters[...] 以 map 形式读取；
// genres/tags 可重复出现，也可逗号分隔
func BindGlobalSearch(c *gin.Context) (search.RawSearchParams, error) {
	var q GlobalSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return search.RawSearchParams{}, err
	}
	filters := c.QueryMap("filters")
	return search.RawSearchParams{
		Query:     q.Query,
		Type:      q.Type,
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Genres:    c.QueryArray("filters[genres]"),
		Tags:      c.QueryArray("filters[tags]"),
		Year:      filters["year"],
		Status:    filters["status"],
		RatingMin: filters["ratingMin"],
		RatingMax: filters["ratingMax"],
		Adult:     filters["adult"],
	}, nil
}

// IntBounds {from,to} 区间
type IntBounds struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// IntMinMax {min,max} 整数区间
type IntMinMax struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// FloatMinMax {min,max} 浮点区间
type FloatMinMax struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// AdvancedSearchRequest 高级搜索请求体
type AdvancedSearchRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Genres      []string     `json:"genres"`
	Tags        []string     `json:"tags"`
	Type        string       `json:"type"`
	Status      string       `json:"status"`
	Year        *IntBounds   `json:"year"`
	Rating      *FloatMinMax `json:"rating"`
	Episodes    *IntMinMax   `json:"episodes"`
	Duration    *IntMinMax   `json:"duration"`
	Adult       *bool        `json:"adult"`
	SortBy      string       `json:"sortBy"`
	SortOrder   string       `json:"sortOrder"`
	Page        *int         `json:"page"`
	Limit       *int         `json:"limit"`
}

// ToRaw 展开嵌套区间
func (r *AdvancedSearchRequest) ToRaw() search.RawAdvancedParams {
	raw := search.RawAdvancedParams{
		Title:       r.Title,
		Description: r.Description,
		Genres:      r.Genres,
		Tags:        r.Tags,
		Type:        r.Type,
		Status:      r.Status,
		Adult:       r.Adult,
		SortBy:      r.SortBy,
		SortOrder:   r.SortOrder,
		Page:        r.Page,
		Limit:       r.Limit,
	}
	if r.Year != nil {
		raw.YearFrom, raw.YearTo = r.Year.From, r.Year.To
	}
	if r.Rating != nil {
		raw.RatingMin, raw.RatingMax = r.Rating.Min, r.Rating.Max
	}
	if r.Episodes != nil {
		raw.EpisodesMin, raw.EpisodesMax = r.Episodes.Min, r.Episodes.Max
	}
	if r.Duration != nil {
		raw.DurationMin, raw.DurationMax = r.Duration.Min, r.Duration.Max
	}
	return raw
}

// SuggestionsQuery 联想查询参数
type SuggestionsQuery struct {
	Query string `form:"query"`
	Type  string `form:"type"`
	Limit string `form:"limit"`
}

// ToRaw 转换为规范化器输入
func (q SuggestionsQuery) ToRaw() search.RawSuggestParams {
	return search.RawSuggestParams{Query: q.Query, Type: q.Type, Limit: q.Limit}
}

// TrendingQuery 热门查询参数
type TrendingQuery struct {
	Period string `form:"period"`
	Limit  string `form:"limit"`
}

// ToRaw 转换为规范化器输入
func (q TrendingQuery) ToRaw() search.RawTrendingParams {
	return search.RawTrendingParams{Period: q.Period, Limit: q.Limit}
}

// ReindexURI 重建索引路径参数
type ReindexURI struct {
	Type string `uri:"type"`
	ID   string `uri:"id"`
}
