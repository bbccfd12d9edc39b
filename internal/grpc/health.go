// Package grpc exposes the portal's health to sibling services over gRPC,
// behind the shared service token.
package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "institute.portal"

// NewServer builds a gRPC server exposing the standard health service for
// ServiceName. The returned health server lets the caller flip the status
// during shutdown.
func NewServer(serviceToken string, log *zap.Logger) (*grpc.Server, *health.Server, error) {
	interceptor, err := NewServiceAuthUnaryInterceptor(serviceToken, log)
	if err != nil {
		return nil, nil, err
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	return server, healthServer, nil
}
