package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalog-search-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func echoIdentity(c *gin.Context) {
	c.String(http.StatusOK, c.GetString("user_id")+"|"+c.GetString("role"))
}

func TestAuth(t *testing.T) {
	cfg := AuthConfig{Secret: "secret", Issuer: "catalog", Optional: true}
	jwt := utils.NewJWTManager(cfg.Secret, cfg.Issuer)
	valid, _ := jwt.GenerateToken("u-1", "admin", time.Minute)
	expired, _ := jwt.GenerateToken("u-1", "admin", -time.Minute)

	r := gin.New()
	r.Use(Auth(cfg))
	r.GET("/open", echoIdentity)
	r.GET("/closed", RequireAuthenticated(), echoIdentity)

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"anonymous allowed", "/open", "", http.StatusOK, "|"},
		{"anonymous rejected by guard", "/closed", "", http.StatusUnauthorized, ""},
		{"valid token", "/closed", "Bearer " + valid, http.StatusOK, "u-1|admin"},
		{"lowercase scheme", "/open", "bearer " + valid, http.StatusOK, "u-1|admin"},
		{"expired token", "/open", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"garbage token", "/open", "Bearer abc", http.StatusUnauthorized, "invalid token"},
		{"wrong scheme", "/open", "Basic abc", http.StatusUnauthorized, "invalid authorization format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			if tt.body != "" && !strings.Contains(w.Body.String(), tt.body) {
				t.Errorf("body = %s, want to contain %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestAuth_Required(t *testing.T) {
	r := gin.New()
	r.Use(Auth(AuthConfig{Secret: "secret", Issuer: "catalog"}))
	r.GET("/x", echoIdentity)

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

type fakeLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.remaining, f.err
}

func TestRateLimit(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, RequestsPerWindow: 5, Window: time.Minute}

	t.Run("denied", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: false}
		r := gin.New()
		r.Use(func(c *gin.Context) { c.Set("user_id", "u-9"); c.Next() })
		r.Use(RateLimit(cfg, limiter))
		r.GET("/v1/search/global", echoIdentity)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/v1/search/global?query=x", nil))
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d", w.Code)
		}
		if w.Header().Get("X-RateLimit-Remaining") != "0" || w.Header().Get("Retry-After") != "60" {
			t.Errorf("headers = %v", w.Header())
		}
		if limiter.keys[0] != "ratelimit:u-9:/v1/search/global" {
			t.Errorf("key = %s", limiter.keys[0])
		}
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		r := gin.New()
		r.Use(RateLimit(cfg, &fakeLimiter{err: errors.New("redis down")}))
		r.GET("/x", echoIdentity)

		if w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("allowed sets remaining", func(t *testing.T) {
		r := gin.New()
		r.Use(RateLimit(cfg, &fakeLimiter{allowed: true, remaining: 3}))
		r.GET("/x", echoIdentity)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Remaining") != "3" {
			t.Errorf("status = %d, headers = %v", w.Code, w.Header())
		}
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	if w := serve(r, req); w.Body.String() != "req-123" || w.Header().Get(RequestIDHeader) != "req-123" {
		t.Errorf("upstream id not propagated: %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "bad id\twith spaces")
	w := serve(r, req)
	if got := w.Body.String(); got == "" || strings.ContainsAny(got, " \t") {
		t.Errorf("invalid id not replaced: %q", got)
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Errorf("panic value leaked: %s", w.Body.String())
	}
}
