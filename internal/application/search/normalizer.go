package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"catalog-search-api/internal/domain/entity"
)

// 年份过滤的合法区间
const (
	minFilterYear = 1900
	maxFilterYear = 2100
)

const (
	defaultTrendingLimit = 10
	maxTrendingLimit     = 50
)

// Limits 规范化使用的边界
type Limits struct {
	DefaultLimit        int
	MaxLimit            int
	MaxQueryLength      int
	SuggestDefaultLimit int
	SuggestMaxLimit     int
}

// DefaultLimits 默认边界
var DefaultLimits = Limits{
	DefaultLimit:        20,
	MaxLimit:            50,
	MaxQueryLength:      200,
	SuggestDefaultLimit: 5,
	SuggestMaxLimit:     10,
}

// RawSearchParams 全局搜索的原始查询参数
type RawSearchParams struct {
	Query     string
	Type      string
	Page      string
	Limit     string
	SortBy    string
	SortOrder string

	Genres    []string
	Tags      []string
	Year      string
	Status    string
	RatingMin string
	RatingMax string
	Adult     string
}

// RawAdvancedParams 高级搜索请求体
type RawAdvancedParams struct {
	Title       string
	Description string
	Genres      []string
	Tags        []string
	Type        string
	Status      string
	YearFrom    *int
	YearTo      *int
	RatingMin   *float64
	RatingMax   *float64
	EpisodesMin *int
	EpisodesMax *int
	DurationMin *int
	DurationMax *int
	Adult       *bool
	SortBy      string
	SortOrder   string
	Page        *int
	Limit       *int
}

// RawSuggestParams 联想原始参数
type RawSuggestParams struct {
	Query string
	Type  string
	Limit string
}

// RawTrendingParams 热门原始参数
type RawTrendingParams struct {
	Period string
	Limit  string
}

// Normalizer 把传输层输入校验为强类型请求，一次性收集全部字段错误
type Normalizer struct {
	validate *validator.Validate
	limits   Limits
}

// NewNormalizer 创建规范化器，未设置的边界取默认值
func NewNormalizer(limits Limits) *Normalizer {
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = DefaultLimits.MaxLimit
	}
	if limits.DefaultLimit <= 0 || limits.DefaultLimit > limits.MaxLimit {
		limits.DefaultLimit = min(DefaultLimits.DefaultLimit, limits.MaxLimit)
	}
	if limits.MaxQueryLength <= 0 {
		limits.MaxQueryLength = DefaultLimits.MaxQueryLength
	}
	if limits.SuggestMaxLimit <= 0 {
		limits.SuggestMaxLimit = DefaultLimits.SuggestMaxLimit
	}
	if limits.SuggestDefaultLimit <= 0 || limits.SuggestDefaultLimit > limits.SuggestMaxLimit {
		limits.SuggestDefaultLimit = min(DefaultLimits.SuggestDefaultLimit, limits.SuggestMaxLimit)
	}
	return &Normalizer{
		validate: validator.New(),
		limits:   limits,
	}
}

// Global 规范化全局搜索，文本必填
func (n *Normalizer) Global(raw RawSearchParams) (*SearchRequest, error) {
	verr := &ValidationError{}
	req := &SearchRequest{}

	req.Text = n.text(verr, "query", raw.Query, true)
	req.Type = n.contentType(verr, "type", raw.Type)
	req.Page = n.intParam(verr, "page", raw.Page, 1, "min=1")
	req.Limit = n.intParam(verr, "limit", raw.Limit, n.limits.DefaultLimit, fmt.Sprintf("min=1,max=%d", n.limits.MaxLimit))
	req.Sort = n.sort(verr, raw.SortBy, raw.SortOrder)

	req.Filters.Genres = cleanList(raw.Genres)
	req.Filters.Tags = cleanList(raw.Tags)
	if raw.Year != "" {
		year := n.intParam(verr, "filters[year]", raw.Year, 0, fmt.Sprintf("min=%d,max=%d", minFilterYear, maxFilterYear))
		if year != 0 {
			req.Filters.YearFrom, req.Filters.YearTo = &year, &year
		}
	}
	req.Filters.Status = n.status(verr, "filters[status]", req.Type, raw.Status)
	ratingMin := n.floatParam(verr, "filters[ratingMin]", raw.RatingMin)
	ratingMax := n.floatParam(verr, "filters[ratingMax]", raw.RatingMax)
	req.Filters.Rating = n.rating(verr, "filters[ratingMin]", "filters[ratingMax]", ratingMin, ratingMax)
	if raw.Adult != "" {
		adult, err := strconv.ParseBool(raw.Adult)
		if err != nil {
			verr.Add("filters[adult]", "must be a boolean")
		} else {
			req.Filters.Adult = &adult
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

// Advanced 规范化高级搜索，文本可选以支持纯过滤浏览
func (n *Normalizer) Advanced(raw RawAdvancedParams) (*SearchRequest, error) {
	verr := &ValidationError{}
	req := &SearchRequest{}

	req.Title = n.text(verr, "title", raw.Title, false)
	req.Description = n.text(verr, "description", raw.Description, false)
	req.Type = n.contentType(verr, "type", raw.Type)
	req.Page = n.intValue(verr, "page", raw.Page, 1, "min=1")
	req.Limit = n.intValue(verr, "limit", raw.Limit, n.limits.DefaultLimit, fmt.Sprintf("min=1,max=%d", n.limits.MaxLimit))
	req.Sort = n.sort(verr, raw.SortBy, raw.SortOrder)

	req.Filters.Genres = cleanList(raw.Genres)
	req.Filters.Tags = cleanList(raw.Tags)
	req.Filters.Status = n.status(verr, "status", req.Type, raw.Status)
	req.Filters.Adult = raw.Adult

	yearTag := fmt.Sprintf("min=%d,max=%d", minFilterYear, maxFilterYear)
	if raw.YearFrom != nil {
		n.check(verr, "year.from", *raw.YearFrom, yearTag)
	}
	if raw.YearTo != nil {
		n.check(verr, "year.to", *raw.YearTo, yearTag)
	}
	if raw.YearFrom != nil && raw.YearTo != nil && *raw.YearFrom > *raw.YearTo {
		verr.Add("year", "from must not be greater than to")
	}
	req.Filters.YearFrom, req.Filters.YearTo = raw.YearFrom, raw.YearTo

	req.Filters.Rating = n.rating(verr, "rating.min", "rating.max", raw.RatingMin, raw.RatingMax)
	req.Filters.Episodes = n.intRange(verr, "episodes", raw.EpisodesMin, raw.EpisodesMax)
	req.Filters.Duration = n.intRange(verr, "duration", raw.DurationMin, raw.DurationMax)

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

// Suggest 规范化联想请求
func (n *Normalizer) Suggest(raw RawSuggestParams) (*SuggestRequest, error) {
	verr := &ValidationError{}
	req := &SuggestRequest{
		Query: n.text(verr, "query", raw.Query, true),
		Type:  n.contentType(verr, "type", raw.Type),
		Limit: n.intParam(verr, "limit", raw.Limit, n.limits.SuggestDefaultLimit,
			fmt.Sprintf("min=1,max=%d", n.limits.SuggestMaxLimit)),
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

// Filters 校验过滤元数据请求的类型参数
func (n *Normalizer) Filters(rawType string) (entity.ContentType, error) {
	verr := &ValidationError{}
	t := n.contentType(verr, "type", rawType)
	if err := verr.OrNil(); err != nil {
		return "", err
	}
	return t, nil
}

// Trending 规范化热门请求
func (n *Normalizer) Trending(raw RawTrendingParams) (*TrendingRequest, error) {
	verr := &ValidationError{}
	req := &TrendingRequest{Period: PeriodWeek}
	if p := strings.TrimSpace(raw.Period); p != "" {
		if n.check(verr, "period", p, "oneof=day week month all") {
			req.Period = TrendingPeriod(p)
		}
	}
	req.Limit = n.intParam(verr, "limit", raw.Limit, defaultTrendingLimit, fmt.Sprintf("min=1,max=%d", maxTrendingLimit))
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

func (n *Normalizer) text(verr *ValidationError, field, raw string, required bool) string {
	s := strings.TrimSpace(raw)
	tag := fmt.Sprintf("max=%d", n.limits.MaxQueryLength)
	if required {
		tag = "required," + tag
	} else if s == "" {
		return ""
	}
	n.check(verr, field, s, tag)
	return s
}

func (n *Normalizer) contentType(verr *ValidationError, field, raw string) entity.ContentType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return entity.ContentTypeAll
	}
	t := entity.ContentType(s)
	if !t.IsValid() {
		verr.Add(field, "must be one of all, anime, manga, characters, users, novels")
		return entity.ContentTypeAll
	}
	return t
}

func (n *Normalizer) sort(verr *ValidationError, by, order string) SortSpec {
	out := DefaultSort
	if by = strings.TrimSpace(by); by != "" {
		if n.check(verr, "sortBy", by, "oneof=relevance popularity rating created updated title") {
			out.Field = SortField(by)
		}
	}
	if order = strings.ToLower(strings.TrimSpace(order)); order != "" {
		if n.check(verr, "sortOrder", order, "oneof=asc desc") {
			out.Order = SortOrder(order)
		}
	}
	return out
}

func (n *Normalizer) status(verr *ValidationError, field string, t entity.ContentType, raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	allowed := t.Statuses()
	if len(allowed) == 0 {
		verr.Add(field, fmt.Sprintf("is not supported for type %s", t))
		return ""
	}
	if !n.check(verr, field, s, "oneof="+strings.Join(allowed, " ")) {
		return ""
	}
	return s
}

func (n *Normalizer) rating(verr *ValidationError, minField, maxField string, lo, hi *float64) *Range {
	tag := fmt.Sprintf("gte=%g,lte=%g", entity.RatingMin, entity.RatingMax)
	ok := true
	if lo != nil {
		ok = n.check(verr, minField, *lo, tag) && ok
	}
	if hi != nil {
		ok = n.check(verr, maxField, *hi, tag) && ok
	}
	if lo != nil && hi != nil && *lo > *hi {
		verr.Add(minField, "must not be greater than "+maxField)
		ok = false
	}
	if !ok || (lo == nil && hi == nil) {
		return nil
	}
	return &Range{Min: lo, Max: hi}
}

func (n *Normalizer) intRange(verr *ValidationError, field string, lo, hi *int) *IntRange {
	ok := true
	if lo != nil {
		ok = n.check(verr, field+".min", *lo, "min=0") && ok
	}
	if hi != nil {
		ok = n.check(verr, field+".max", *hi, "min=0") && ok
	}
	if lo != nil && hi != nil && *lo > *hi {
		verr.Add(field, "min must not be greater than max")
		ok = false
	}
	if !ok || (lo == nil && hi == nil) {
		return nil
	}
	return &IntRange{Min: lo, Max: hi}
}

// intParam 解析字符串整数，空串取默认值
func (n *Normalizer) intParam(verr *ValidationError, field, raw string, def int, tag string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(field, "must be an integer")
		return def
	}
	if !n.check(verr, field, v, tag) {
		return def
	}
	return v
}

func (n *Normalizer) intValue(verr *ValidationError, field string, raw *int, def int, tag string) int {
	if raw == nil {
		return def
	}
	if !n.check(verr, field, *raw, tag) {
		return def
	}
	return *raw
}

func (n *Normalizer) floatParam(verr *ValidationError, field, raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.Add(field, "must be a number")
		return nil
	}
	return &v
}

// check 用 validator 的 tag 校验单个值，失败时记录字段错误
func (n *Normalizer) check(verr *ValidationError, field string, value any, tag string) bool {
	err := n.validate.Var(value, tag)
	if err == nil {
		return true
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		verr.Add(field, describeTag(fieldErrs[0]))
	} else {
		verr.Add(field, err.Error())
	}
	return false
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "string" {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind().String() == "string" {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// cleanList 去除空白与重复项
func cleanList(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}
