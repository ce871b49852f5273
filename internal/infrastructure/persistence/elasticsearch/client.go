// Package elasticsearch 提供全文索引后端访问层实现
package elasticsearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel"

	"catalog-search-api/internal/config"
)

var tracer = otel.Tracer("elasticsearch")

// Client Elasticsearch 客户端
type Client struct {
	es     *elasticsearch.Client
	config *config.ElasticsearchConfig
}

// NewClient 创建 Elasticsearch 客户端，不会主动连接
func NewClient(cfg *config.ElasticsearchConfig) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		CloudID:    cfg.CloudID,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSSkipVerify {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Client{
		es:     es,
		config: cfg,
	}, nil
}

// ES 获取底层客户端
func (c *Client) ES() *elasticsearch.Client {
	return c.es
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "elasticsearch.HealthCheck")
	defer span.End()

	if err := c.Ping(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// withTimeout 附加单次请求超时，ctx 已有更早的截止时间时保持不变
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

// ResponseError 后端返回的错误响应
type ResponseError struct {
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch responded %d", e.Status)
	}
	return fmt.Sprintf("elasticsearch responded %d: %s: %s", e.Status, e.Type, e.Reason)
}

type errorBody struct {
	Error struct {
		Type      string `json:"type"`
		Reason    string `json:"reason"`
		RootCause []struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"root_cause"`
	} `json:"error"`
}

// decodeResponse 关闭响应体；错误状态码转为 ResponseError，否则解码到 out
func decodeResponse(res *esapi.Response, out any) error {
	defer res.Body.Close()

	if res.IsError() {
		rerr := &ResponseError{Status: res.StatusCode}
		var body errorBody
		if data, err := io.ReadAll(res.Body); err == nil && json.Unmarshal(data, &body) == nil {
			rerr.Type, rerr.Reason = body.Error.Type, body.Error.Reason
			if len(body.Error.RootCause) > 0 && rerr.Reason == "" {
				rerr.Reason = body.Error.RootCause[0].Reason
			}
		}
		return rerr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode elasticsearch response: %w", err)
	}
	return nil
}

// encodeBody 把 DSL 编码为请求体
func encodeBody(v any) (*strings.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return strings.NewReader(string(data)), nil
}
