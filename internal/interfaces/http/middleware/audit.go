// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"catalog-search-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditConfig 审计配置
type AuditConfig struct {
	// SkipPaths 跳过审计的路径
	SkipPaths []string
	// SlowThreshold 超过该耗时的请求以 WARN 记录
	SlowThreshold time.Duration
}

// DefaultAuditSkipPaths 默认跳过审计的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// Audit 请求审计日志，5xx 与慢请求提升为 WARN
func Audit(cfg AuditConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		fields := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		}
		if method, ok := c.Get("search_method"); ok {
			fields = append(fields, "search_method", method)
		}

		ctx := c.Request.Context()
		if c.Writer.Status() >= 500 || (cfg.SlowThreshold > 0 && duration > cfg.SlowThreshold) {
			logger.Warn(ctx, "api request", fields...)
			return
		}
		logger.Info(ctx, "api request", fields...)
	}
}
