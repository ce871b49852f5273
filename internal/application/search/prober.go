package search

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"catalog-search-api/pkg/logger"
	"catalog-search-api/pkg/metrics"
)

// ProberConfig 可用性探测配置
type ProberConfig struct {
	Timeout    time.Duration
	TTL        time.Duration
	FailureTTL time.Duration
}

// Prober 索引后端可用性探测器，成功与失败结果分别按不同 TTL 去抖
type Prober struct {
	backend IndexBackend
	cfg     ProberConfig
	now     func() time.Time
	group   singleflight.Group

	mu        sync.Mutex
	checked   bool
	available bool
	expiresAt time.Time
}

// NewProber 创建探测器，backend 为 nil 时始终不可用
func NewProber(backend IndexBackend, cfg ProberConfig) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.FailureTTL > cfg.TTL {
		cfg.FailureTTL = cfg.TTL
	}
	return &Prober{
		backend: backend,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Available 返回索引后端当前是否可用，探测错误只记录告警，不向上传播
func (p *Prober) Available(ctx context.Context) bool {
	if p == nil || p.backend == nil {
		return false
	}

	p.mu.Lock()
	if p.checked && p.now().Before(p.expiresAt) {
		up := p.available
		p.mu.Unlock()
		metrics.IndexProbeTotal.WithLabelValues(cachedLabel(up)).Inc()
		return up
	}
	p.mu.Unlock()

	v, _, _ := p.group.Do("probe", func() (interface{}, error) {
		return p.probe(ctx), nil
	})
	return v.(bool)
}

// Invalidate 丢弃缓存的探测结果，下一次调用会重新探测
func (p *Prober) Invalidate() {
	p.mu.Lock()
	p.checked = false
	p.mu.Unlock()
}

func (p *Prober) probe(ctx context.Context) bool {
	// 共享探测不受单个调用方取消的影响
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
	defer cancel()

	err := p.backend.Ping(pctx)
	up := err == nil
	if err != nil {
		logger.Warn(ctx, "search index probe failed", "error", err.Error(), "timeout", p.cfg.Timeout.String())
	}

	ttl := p.cfg.TTL
	if !up {
		ttl = p.cfg.FailureTTL
	}

	p.mu.Lock()
	p.checked = ttl > 0
	p.available = up
	p.expiresAt = p.now().Add(ttl)
	p.mu.Unlock()

	if up {
		metrics.IndexProbeTotal.WithLabelValues("up").Inc()
	} else {
		metrics.IndexProbeTotal.WithLabelValues("down").Inc()
	}
	return up
}

func cachedLabel(up bool) string {
	if up {
		return "cached_up"
	}
	return "cached_down"
}
