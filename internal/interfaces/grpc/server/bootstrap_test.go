package server

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"catalog-search-api/internal/config"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func status(t *testing.T, h *HealthServer, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Health().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) error = %v", service, err)
	}
	return resp.Status
}

func TestHealthServer_Refresh(t *testing.T) {
	redisErr := errors.New("redis down")
	var redisFailing bool
	h := NewHealthServer(config.GRPCServerConfig{}, map[string]HealthChecker{
		"postgres": checkerFunc(func(context.Context) error { return nil }),
		"redis": checkerFunc(func(context.Context) error {
			if redisFailing {
				return redisErr
			}
			return nil
		}),
	}, 0)

	if got := status(t, h, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("before refresh = %v, want NOT_SERVING", got)
	}

	h.Refresh(context.Background())
	if got := status(t, h, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall = %v, want SERVING", got)
	}

	redisFailing = true
	h.Refresh(context.Background())
	if got := status(t, h, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("overall = %v, want NOT_SERVING", got)
	}
	if got := status(t, h, "redis"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("redis = %v, want NOT_SERVING", got)
	}
	if got := status(t, h, "postgres"); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("postgres = %v, want SERVING", got)
	}
}
