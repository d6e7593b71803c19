package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"parkspot-backend/internal/api/grpc/interceptor"
	"parkspot-backend/internal/logger"
)

// PricingServiceName is the health service name load balancers probe.
const PricingServiceName = "parkspot.pricing.v1.PricingService"

// HealthServer reports SERVING once a discount rule set is loaded.
type HealthServer struct {
	server *health.Server
}

func NewHealthServer() *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(PricingServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{server: hs}
}

func (h *HealthServer) SetRulesReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(PricingServiceName, status)
	logger.Debug("Health status updated", "service", PricingServiceName, "status", status.String())
}

// Shutdown marks everything NOT_SERVING and ignores later updates.
func (h *HealthServer) Shutdown() {
	h.server.Shutdown()
}

// NewServer builds the gRPC server with health and reflection registered.
func NewServer(h *HealthServer) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.UnaryLogging()),
		grpc.ChainStreamInterceptor(interceptor.StreamLogging()),
	)
	healthpb.RegisterHealthServer(s, h.server)

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}
