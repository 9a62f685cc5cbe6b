// Package grpc serves the contact service over gRPC using protobuf
// well-known types as messages.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/tracekeeper/internal/logging"
	"github.com/dmitrijs2005/tracekeeper/internal/server/exposure"
	"github.com/dmitrijs2005/tracekeeper/internal/server/tempid"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ContactService is the business API behind the gRPC methods.
type ContactService interface {
	GenerateTemporaryIDs(ctx context.Context, userID uuid.UUID) (*tempid.Batch, error)
	UploadContacts(ctx context.Context, userID uuid.UUID, reports []tempid.ContactReport) (int, error)
	ExposureStatus(ctx context.Context, userID uuid.UUID) (exposure.Status, error)
	UploadRequired(ctx context.Context, userID uuid.UUID) (bool, error)
}

type GRPCServer struct {
	address   string
	contacts  ContactService
	logger    logging.Logger
	jwtSecret []byte
	health    *health.Server
}

func NewGRPCServer(address string, l logging.Logger, contacts ContactService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   address,
		logger:    l.With("module", "grpc_server"),
		contacts:  contacts,
		jwtSecret: []byte(secretKey),
		health:    health.NewServer(),
	}
}

// NewServer builds the *grpc.Server with the contact and health services
// registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterContactServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Run serves until ctx is canceled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
