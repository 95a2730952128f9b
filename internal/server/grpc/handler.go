package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/rpc"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/dmitrijs2005/photorestore/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes. Unknown errors become
// Internal without leaking details.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrInsufficientCredits):
		return status.Error(codes.FailedPrecondition, common.ErrInsufficientCredits.Error())
	case errors.Is(err, common.ErrTrialUnavailable):
		return status.Error(codes.FailedPrecondition, common.ErrTrialUnavailable.Error())
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// caller returns the authenticated user. A request naming another user is
// refused.
func caller(ctx context.Context, requested string) (string, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	if requested != "" && requested != userID {
		return "", status.Error(codes.PermissionDenied, "user mismatch")
	}
	return userID, nil
}

func tokenResponse(p *services.TokenPair) *rpc.TokenResponse {
	return &rpc.TokenResponse{UserID: p.UserID, AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func identityResponse(p *models.Profile) *rpc.IdentityResponse {
	return &rpc.IdentityResponse{ID: p.UserID, Email: p.Email, FullName: p.FullName}
}

func subscriptionResponse(sub *models.Subscription) *rpc.SubscriptionResponse {
	if sub == nil {
		return &rpc.SubscriptionResponse{Found: false}
	}
	return &rpc.SubscriptionResponse{
		Found:              true,
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
}

func (s *GRPCServer) SignUp(ctx context.Context, req *rpc.SignUpRequest) (*rpc.TokenResponse, error) {
	pair, err := s.users.SignUp(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info(ctx, "Registered", "user_id", pair.UserID)
	return tokenResponse(pair), nil
}

func (s *GRPCServer) SignIn(ctx context.Context, req *rpc.SignInRequest) (*rpc.TokenResponse, error) {
	pair, err := s.users.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return tokenResponse(pair), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.TokenResponse, error) {
	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return tokenResponse(pair), nil
}

func (s *GRPCServer) SignOut(ctx context.Context, req *rpc.SignOutRequest) (*rpc.Empty, error) {
	if _, err := caller(ctx, ""); err != nil {
		return nil, err
	}
	if err := s.users.SignOut(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) GetIdentity(ctx context.Context, _ *rpc.Empty) (*rpc.IdentityResponse, error) {
	userID, err := caller(ctx, "")
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return identityResponse(p), nil
}

func (s *GRPCServer) GetEntitlement(ctx context.Context, req *rpc.EntitlementRequest) (*rpc.EntitlementResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.EntitlementResponse{Credits: p.Credits, TrialUsed: p.TrialUsed, Version: p.Version}, nil
}

func (s *GRPCServer) ApplyCreditDelta(ctx context.Context, req *rpc.CreditDeltaRequest) (*rpc.CreditDeltaResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	d, err := s.profiles.ApplyClientDelta(ctx, userID, req.DeltaID, req.Amount, req.Reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.CreditDeltaResponse{Credits: d.Credits, Version: d.Version}, nil
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *rpc.UpdateProfileRequest) (*rpc.IdentityResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.UpdateProfile(ctx, userID, req.FullName)
	if err != nil {
		return nil, toStatus(err)
	}
	return identityResponse(p), nil
}

func (s *GRPCServer) TrialAvailable(ctx context.Context, _ *rpc.TrialRequest) (*rpc.TrialResponse, error) {
	ok, err := s.profiles.TrialAvailable(ctx, clientIP(ctx))
	if err != nil {
		s.logger.Warn(ctx, "trial store unavailable", "error", err)
		return nil, status.Error(codes.Unavailable, "trial store unavailable")
	}
	return &rpc.TrialResponse{Available: ok}, nil
}

func (s *GRPCServer) ClaimTrial(ctx context.Context, req *rpc.TrialRequest) (*rpc.TrialResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	version, err := s.profiles.ClaimTrial(ctx, userID, clientIP(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.TrialResponse{Available: false, Version: version}, nil
}

func (s *GRPCServer) ListPlans(context.Context, *rpc.Empty) (*rpc.ListPlansResponse, error) {
	plans := s.payments.ListPlans()
	out := make([]rpc.Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, rpc.Plan{
			ID:          p.ID,
			PriceID:     p.PriceID,
			Name:        p.Name,
			Description: p.Description,
			PriceCents:  p.PriceCents,
			Currency:    p.Currency,
			Mode:        string(p.Mode),
			Credits:     p.Credits,
			Popular:     p.Popular,
			Features:    p.Features,
		})
	}
	return &rpc.ListPlansResponse{Plans: out}, nil
}

func (s *GRPCServer) CreateCheckout(ctx context.Context, req *rpc.CheckoutRequest) (*rpc.CheckoutResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	c, url, err := s.payments.CreateCheckout(ctx, userID, req.PlanID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.CheckoutResponse{SessionID: c.ID, URL: url}, nil
}

func (s *GRPCServer) GetSubscription(ctx context.Context, req *rpc.SubscriptionRequest) (*rpc.SubscriptionResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	sub, err := s.payments.GetSubscription(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return subscriptionResponse(sub), nil
}

func (s *GRPCServer) CancelSubscription(ctx context.Context, req *rpc.SubscriptionRequest) (*rpc.SubscriptionResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	sub, err := s.payments.CancelSubscription(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return subscriptionResponse(sub), nil
}

func (s *GRPCServer) CreateUploadURL(ctx context.Context, req *rpc.UploadURLRequest) (*rpc.UploadURLResponse, error) {
	userID, err := caller(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	target, err := s.photos.CreateUploadURL(ctx, userID, req.FileName)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.UploadURLResponse{Key: target.Key, URL: target.PutURL, ViewURL: target.ViewURL}, nil
}

func (s *GRPCServer) Ping(context.Context, *rpc.Empty) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}
