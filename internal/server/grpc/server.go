// Package grpc serves the ProfileService RPC contract: accounts, the credit
// ledger, trials, payments and photo upload URLs.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/rpc"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/dmitrijs2005/photorestore/internal/server/services"
	"google.golang.org/grpc"
)

type userSvc interface {
	SignUp(ctx context.Context, email, password, fullName string) (*services.TokenPair, error)
	SignIn(ctx context.Context, email, password string) (*services.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type profileSvc interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID, fullName string) (*models.Profile, error)
	ApplyClientDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (*models.CreditDelta, error)
	TrialAvailable(ctx context.Context, ip string) (bool, error)
	ClaimTrial(ctx context.Context, userID, ip string) (int64, error)
}

type paymentSvc interface {
	ListPlans() []models.Plan
	CreateCheckout(ctx context.Context, userID, planID string) (*models.Checkout, string, error)
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

type photoSvc interface {
	CreateUploadURL(ctx context.Context, userID, fileName string) (*services.UploadTarget, error)
}

type GRPCServer struct {
	rpc.UnimplementedProfileServiceServer
	address   string
	users     userSvc
	profiles  profileSvc
	payments  paymentSvc
	photos    photoSvc
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, m *metrics.Metrics, secretKey string,
	us *services.UserService, ps *services.ProfileService, pay *services.PaymentService, ph *services.PhotoService) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		metrics:   m,
		users:     us,
		profiles:  ps,
		payments:  pay,
		photos:    ph,
		jwtSecret: []byte(secretKey),
	}
}

// newServer builds the gRPC server with interceptors and the service
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.accessTokenInterceptor))
	rpc.RegisterProfileServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
