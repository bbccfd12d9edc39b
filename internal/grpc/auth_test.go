package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestServiceAuthInterceptor(t *testing.T) {
	if _, err := NewServiceAuthUnaryInterceptor("", nil); !errors.Is(err, ErrServiceTokenRequired) {
		t.Fatalf("expected token required error, got %v", err)
	}

	interceptor, err := NewServiceAuthUnaryInterceptor("secret", nil)
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}

	cases := map[string]struct {
		ctx  context.Context
		code codes.Code
	}{
		"missing": {context.Background(), codes.Unauthenticated},
		"blank":   {metadata.NewIncomingContext(context.Background(), metadata.Pairs(serviceTokenHeader, "  ")), codes.Unauthenticated},
		"wrong":   {metadata.NewIncomingContext(context.Background(), metadata.Pairs(serviceTokenHeader, "nope")), codes.PermissionDenied},
		"valid":   {metadata.NewIncomingContext(context.Background(), metadata.Pairs(serviceTokenHeader, " secret ")), codes.OK},
	}
	for name, tc := range cases {
		resp, err := interceptor(tc.ctx, nil, info, handler)
		if got := status.Code(err); got != tc.code {
			t.Fatalf("%s: expected %s, got %s", name, tc.code, got)
		}
		if tc.code == codes.OK && resp != "ok" {
			t.Fatalf("%s: handler not called", name)
		}
	}
}

func TestNewServerRegistersHealth(t *testing.T) {
	if _, _, err := NewServer("", nil); err == nil {
		t.Fatalf("expected error without service token")
	}
	server, healthServer, err := NewServer("secret", nil)
	if err != nil {
		t.Fatalf("server error: %v", err)
	}
	defer server.Stop()

	if _, ok := server.GetServiceInfo()[healthpb.Health_ServiceDesc.ServiceName]; !ok {
		t.Fatalf("health service not registered")
	}
	resp, err := healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}
