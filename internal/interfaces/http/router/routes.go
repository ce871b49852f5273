package router

import (
	"catalog-search-api/internal/interfaces/http/handler"
	"catalog-search-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, searchHandler *handler.SearchHandler) {
	search := v1.Group("/search")
	{
		search.GET("/global", searchHandler.Global)
		search.POST("/advanced", searchHandler.Advanced)
		search.GET("/suggestions", searchHandler.Suggestions)
		search.GET("/filters", searchHandler.Filters)
		search.GET("/trending", searchHandler.Trending)

		// 管理操作需要登录，角色由应用层校验
		search.POST("/index/:type/:id", middleware.RequireAuthenticated(), searchHandler.Reindex)
	}
}
