// Package server 提供 gRPC 健康检查服务，供编排系统探测后台 worker
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"catalog-search-api/internal/config"
	"catalog-search-api/pkg/logger"
)

// HealthChecker 可探测的依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthServer gRPC 健康检查服务；整体状态 "" 取决于全部依赖，每个依赖另以自身名称注册
type HealthServer struct {
	cfg      config.GRPCServerConfig
	health   *health.Server
	checks   map[string]HealthChecker
	interval time.Duration
}

// NewHealthServer 创建健康检查服务
func NewHealthServer(cfg config.GRPCServerConfig, checks map[string]HealthChecker, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		cfg:      cfg,
		health:   hs,
		checks:   checks,
		interval: interval,
	}
}

// Run 监听并服务，定期刷新依赖状态，ctx 取消时优雅停止
func (h *HealthServer) Run(ctx context.Context) error {
	addr := h.cfg.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	opts := []grpc.ServerOption{}
	if h.cfg.MaxRecvMsgSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(h.cfg.MaxRecvMsgSize))
	}
	if h.cfg.MaxSendMsgSize > 0 {
		opts = append(opts, grpc.MaxSendMsgSize(h.cfg.MaxSendMsgSize))
	}
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.health)

	logger.Info(ctx, "grpc health server starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	h.Refresh(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "grpc health server shutting down")
			h.health.Shutdown()
			s.GracefulStop()
			return nil
		case err := <-errCh:
			return fmt.Errorf("grpc server error: %w", err)
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Refresh 探测全部依赖并更新服务状态
func (h *HealthServer) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	overall := healthpb.HealthCheckResponse_SERVING
	for name, checker := range h.checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := checker.HealthCheck(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn(ctx, "dependency health check failed", "dependency", name, "error", err.Error())
		}
		h.health.SetServingStatus(name, status)
	}
	h.health.SetServingStatus("", overall)
}

// Health 返回底层健康服务
func (h *HealthServer) Health() healthpb.HealthServer {
	return h.health
}
