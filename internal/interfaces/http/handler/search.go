package handler

import (
	"context"
	"strconv"

	"catalog-search-api/internal/application/search"
	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// SearchService 搜索引擎
type SearchService interface {
	Search(ctx context.Context, req *search.SearchRequest) (*search.ResultPage, error)
	Advanced(ctx context.Context, req *search.SearchRequest) (*search.AdvancedPage, error)
	Suggest(ctx context.Context, req *search.SuggestRequest) (*search.SuggestionPage, error)
}

// FacetService 过滤元数据
type FacetService interface {
	Filters(ctx context.Context, t entity.ContentType) (*search.FacetSet, error)
}

// TrendingService 热门榜
type TrendingService interface {
	List(ctx context.Context, req *search.TrendingRequest) ([]search.SearchResult, error)
}

// ReindexService 重建索引
type ReindexService interface {
	Reindex(ctx context.Context, t entity.ContentType, id string) (*search.Document, error)
	Enqueue(ctx context.Context, job search.ReindexJob) error
}

// SearchHandler 目录搜索处理器
type SearchHandler struct {
	normalizer *search.Normalizer
	engine     SearchService
	facets     FacetService
	trending   TrendingService
	indexer    ReindexService
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(normalizer *search.Normalizer, engine SearchService, facets FacetService, trending TrendingService, indexer ReindexService) *SearchHandler {
	return &SearchHandler{
		normalizer: normalizer,
		engine:     engine,
		facets:     facets,
		trending:   trending,
		indexer:    indexer,
	}
}

// Global 全局搜索
// @Summary 全局搜索
// @Description 跨类型全文搜索，索引不可用时自动回退到数据库
// @Tags Search
// @Produce json
// @Param query query string true "搜索文本"
// @Param type query string false "内容类型" Enums(all, anime, manga, characters, users, novels)
// @Success 200 {object} dto.Response[search.ResultPage]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/search/global [get]
func (h *SearchHandler) Global(c *gin.Context) {
	raw, err := dto.BindGlobalSearch(c)
	if err != nil {
		badBinding(c, "query", err)
		return
	}
	req, err := h.normalizer.Global(raw)
	if err != nil {
		respondError(c, "global search", err)
		return
	}

	page, err := h.engine.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, "global search", err)
		return
	}
	c.Set("search_method", string(page.SearchMethod))
	dto.Success(c, page)
}

// Advanced 高级搜索
// @Summary 高级搜索
// @Description 定向字段检索与聚合，聚合依赖索引
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.AdvancedSearchRequest true "高级搜索条件"
// @Success 200 {object} dto.Response[search.AdvancedPage]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/search/advanced [post]
func (h *SearchHandler) Advanced(c *gin.Context) {
	var body dto.AdvancedSearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badBinding(c, "body", err)
		return
	}
	req, err := h.normalizer.Advanced(body.ToRaw())
	if err != nil {
		respondError(c, "advanced search", err)
		return
	}

	page, err := h.engine.Advanced(c.Request.Context(), req)
	if err != nil {
		respondError(c, "advanced search", err)
		return
	}
	c.Set("search_method", string(page.SearchMethod))
	dto.Success(c, page)
}

// Suggestions 输入联想
// @Summary 输入联想
// @Tags Search
// @Produce json
// @Param query query string true "前缀"
// @Param type query string false "内容类型"
// @Param limit query int false "条数"
// @Success 200 {object} dto.Response[search.SuggestionPage]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/search/suggestions [get]
func (h *SearchHandler) Suggestions(c *gin.Context) {
	var q dto.SuggestionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, "query", err)
		return
	}
	req, err := h.normalizer.Suggest(q.ToRaw())
	if err != nil {
		respondError(c, "suggestions", err)
		return
	}

	page, err := h.engine.Suggest(c.Request.Context(), req)
	if err != nil {
		respondError(c, "suggestions", err)
		return
	}
	c.Set("search_method", string(page.SearchMethod))
	dto.Success(c, page)
}

// Filters 过滤元数据
// @Summary 过滤元数据
// @Tags Search
// @Produce json
// @Param type query string false "内容类型"
// @Success 200 {object} dto.Response[search.FacetSet]
// @Router /v1/search/filters [get]
func (h *SearchHandler) Filters(c *gin.Context) {
	t, err := h.normalizer.Filters(c.Query("type"))
	if err != nil {
		respondError(c, "filters", err)
		return
	}

	facets, err := h.facets.Filters(c.Request.Context(), t)
	if err != nil {
		respondError(c, "filters", err)
		return
	}
	dto.Success(c, facets)
}

// Trending 热门榜
// @Summary 热门榜
// @Tags Search
// @Produce json
// @Param period query string false "统计周期" Enums(day, week, month, all)
// @Param limit query int false "条数"
// @Success 200 {object} dto.Response[dto.TrendingResponse]
// @Router /v1/search/trending [get]
func (h *SearchHandler) Trending(c *gin.Context) {
	var q dto.TrendingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, "query", err)
		return
	}
	req, err := h.normalizer.Trending(q.ToRaw())
	if err != nil {
		respondError(c, "trending", err)
		return
	}

	results, err := h.trending.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, "trending", err)
		return
	}
	dto.Success(c, dto.TrendingResponse{Period: req.Period, Results: results})
}

// Reindex 重建单个条目的索引
// @Summary 重建索引
// @Description 仅 admin/super_admin；async=true 时投递到队列并返回 202
// @Tags Search
// @Produce json
// @Param type path string true "内容类型"
// @Param id path string true "条目 ID"
// @Param async query bool false "异步执行"
// @Success 200 {object} dto.Response[dto.ReindexResponse]
// @Success 202 {object} dto.Response[dto.ReindexResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/search/index/{type}/{id} [post]
func (h *SearchHandler) Reindex(c *gin.Context) {
	if err := search.AuthorizeReindex(c.GetString("role")); err != nil {
		respondError(c, "reindex", err)
		return
	}

	var uri dto.ReindexURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badBinding(c, "path", err)
		return
	}
	t := entity.ContentType(uri.Type)
	ctx := c.Request.Context()

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		job := search.ReindexJob{Type: t, ID: uri.ID, RequestedBy: c.GetString("user_id")}
		if err := h.indexer.Enqueue(ctx, job); err != nil {
			respondError(c, "reindex", err)
			return
		}
		dto.Accepted(c, dto.ReindexResponse{Type: t, ID: uri.ID, Status: "queued"})
		return
	}

	doc, err := h.indexer.Reindex(ctx, t, uri.ID)
	if err != nil {
		respondError(c, "reindex", err)
		return
	}
	dto.Success(c, dto.ReindexResponse{Type: t, ID: doc.ID, Status: "indexed", Document: doc})
}
