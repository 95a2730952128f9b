package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/rpc"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.ProfileServiceClient
	store       TokenStore
	validate    *validator.Validate
	log         logging.Logger

	mu     sync.Mutex
	tokens models.TokenPair
	loaded bool

	// refreshMu serializes token rotation; the backend invalidates a refresh
	// token once it has been used.
	refreshMu sync.Mutex
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func tokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	tokens := s.currentTokens(ctx)
	if rpc.PublicMethods[method] || tokens.AccessToken == "" {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, tokens.AccessToken), method, req, reply, cc, opts...)
	if err == nil || !tokenExpired(err) || tokens.RefreshToken == "" {
		return err
	}

	access, rerr := s.refreshTokens(ctx, tokens)
	if rerr != nil {
		s.log.Warn(ctx, "token refresh failed", "error", rerr)
		return err
	}

	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// refreshTokens rotates the pair whose access token expired and returns the
// access token to retry with. If another call already rotated it, the current
// token is reused.
func (s *GRPCClient) refreshTokens(ctx context.Context, expired models.TokenPair) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	cur := s.currentTokens(ctx)
	if cur.AccessToken == "" {
		return "", common.ErrNotAuthenticated
	}
	if cur.AccessToken != expired.AccessToken {
		return cur.AccessToken, nil
	}

	resp, err := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: cur.RefreshToken})
	if err != nil {
		return "", err
	}
	s.setTokens(ctx, models.TokenPair{UserID: resp.UserID, AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return resp.AccessToken, nil
}

// NewGRPCClient dials endpointURL lazily. store may be nil, in which case
// tokens live only as long as the process.
func NewGRPCClient(endpointURL string, store TokenStore, log logging.Logger) (*GRPCClient, error) {
	c := newClient(store, log)
	c.endpointURL = endpointURL
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(store TokenStore, log logging.Logger) *GRPCClient {
	return &GRPCClient{
		store:    store,
		validate: validator.New(),
		log:      log.With("module", "grpc_client"),
	}
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewProfileServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) currentTokens(ctx context.Context) models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded && s.store != nil {
		p, err := s.store.LoadTokens(ctx)
		if err != nil {
			s.log.Warn(ctx, "failed to load stored tokens", "error", err)
		} else {
			s.tokens = p
		}
	}
	s.loaded = true
	return s.tokens
}

func (s *GRPCClient) setTokens(ctx context.Context, p models.TokenPair) {
	s.mu.Lock()
	s.tokens = p
	s.loaded = true
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.SaveTokens(ctx, p); err != nil {
		s.log.Warn(ctx, "failed to persist tokens", "error", err)
	}
}

// check rejects responses that do not match their declared shape.
func (s *GRPCClient) check(resp any) error {
	if err := s.validate.Struct(resp); err != nil {
		return fmt.Errorf("%w: malformed %T: %v", common.ErrNetworkOrBackend, resp, err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", common.ErrNetworkOrBackend, err)
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrNotAuthenticated
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", common.ErrNetworkOrBackend, st.Message())
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.AlreadyExists:
		return common.ErrorAlreadyExists
	case codes.FailedPrecondition:
		return common.ErrInsufficientCredits
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) authenticated(ctx context.Context, resp *rpc.TokenResponse) error {
	if err := s.check(resp); err != nil {
		return err
	}
	s.setTokens(ctx, models.TokenPair{UserID: resp.UserID, AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return nil
}

func (s *GRPCClient) SignIn(ctx context.Context, email, password string) error {
	resp, err := s.client.SignIn(ctx, &rpc.SignInRequest{Email: email, Password: password})
	if err != nil {
		switch status.Code(err) {
		case codes.Unauthenticated, codes.NotFound, codes.InvalidArgument:
			return common.ErrInvalidCredentials
		}
		return s.mapError(err)
	}
	return s.authenticated(ctx, resp)
}

func (s *GRPCClient) SignUp(ctx context.Context, email, password, fullName string) error {
	resp, err := s.client.SignUp(ctx, &rpc.SignUpRequest{Email: email, Password: password, FullName: fullName})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
			return fmt.Errorf("%w: %s", common.ErrInvalidCredentials, st.Message())
		}
		return s.mapError(err)
	}
	return s.authenticated(ctx, resp)
}

// SignOut revokes the refresh token. Local tokens are dropped even when the
// call fails.
func (s *GRPCClient) SignOut(ctx context.Context) error {
	tokens := s.currentTokens(ctx)
	defer s.setTokens(ctx, models.TokenPair{})

	if tokens.RefreshToken == "" {
		return nil
	}
	_, err := s.client.SignOut(ctx, &rpc.SignOutRequest{RefreshToken: tokens.RefreshToken})
	return s.mapError(err)
}

func (s *GRPCClient) GetCurrentIdentity(ctx context.Context) (*models.Identity, error) {
	if s.currentTokens(ctx).AccessToken == "" {
		return nil, nil
	}

	resp, err := s.client.GetIdentity(ctx, &rpc.Empty{})
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, common.ErrNotAuthenticated) || errors.Is(err, common.ErrorNotFound) {
			s.setTokens(ctx, models.TokenPair{})
			return nil, nil
		}
		return nil, err
	}
	if err := s.check(resp); err != nil {
		return nil, err
	}
	return &models.Identity{ID: resp.ID, Email: resp.Email, FullName: resp.FullName}, nil
}

func (s *GRPCClient) FetchEntitlement(ctx context.Context, userID string) (models.EntitlementSnapshot, error) {
	resp, err := s.client.GetEntitlement(ctx, &rpc.EntitlementRequest{UserID: userID})
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, common.ErrorNotFound) {
			return models.EntitlementSnapshot{}, common.ErrProfileNotFound
		}
		return models.EntitlementSnapshot{}, err
	}
	if err := s.check(resp); err != nil {
		return models.EntitlementSnapshot{}, err
	}
	return models.EntitlementSnapshot{
		Entitlement: models.Entitlement{Credits: resp.Credits, TrialUsed: resp.TrialUsed},
		Version:     resp.Version,
		FetchedAt:   time.Now(),
	}, nil
}

func (s *GRPCClient) PersistCreditDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (int64, error) {
	resp, err := s.client.ApplyCreditDelta(ctx, &rpc.CreditDeltaRequest{UserID: userID, DeltaID: deltaID, Amount: amount, Reason: reason})
	if err != nil {
		return 0, s.mapError(err)
	}
	if err := s.check(resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, userID, fullName string) (*models.Identity, error) {
	resp, err := s.client.UpdateProfile(ctx, &rpc.UpdateProfileRequest{UserID: userID, FullName: fullName})
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := s.check(resp); err != nil {
		return nil, err
	}
	return &models.Identity{ID: resp.ID, Email: resp.Email, FullName: resp.FullName}, nil
}

func (s *GRPCClient) TrialAvailable(ctx context.Context) (bool, error) {
	resp, err := s.client.TrialAvailable(ctx, &rpc.TrialRequest{})
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.Available, nil
}

// ClaimTrial marks the trial as used for userID and returns the new profile
// version.
func (s *GRPCClient) ClaimTrial(ctx context.Context, userID string) (int64, error) {
	resp, err := s.client.ClaimTrial(ctx, &rpc.TrialRequest{UserID: userID})
	if err != nil {
		if status.Code(err) == codes.FailedPrecondition {
			return 0, common.ErrTrialUnavailable
		}
		return 0, s.mapError(err)
	}
	return resp.Version, nil
}

func (s *GRPCClient) ListPlans(ctx context.Context) ([]models.Plan, error) {
	resp, err := s.client.ListPlans(ctx, &rpc.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := s.check(resp); err != nil {
		return nil, err
	}

	plans := make([]models.Plan, 0, len(resp.Plans))
	for _, p := range resp.Plans {
		plans = append(plans, models.Plan{
			ID:          p.ID,
			PriceID:     p.PriceID,
			Name:        p.Name,
			Description: p.Description,
			PriceCents:  p.PriceCents,
			Currency:    p.Currency,
			Mode:        models.PlanMode(p.Mode),
			Credits:     p.Credits,
			Popular:     p.Popular,
			Features:    p.Features,
		})
	}
	return plans, nil
}

func (s *GRPCClient) CreateCheckout(ctx context.Context, userID, planID string) (*models.Checkout, error) {
	resp, err := s.client.CreateCheckout(ctx, &rpc.CheckoutRequest{UserID: userID, PlanID: planID})
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := s.check(resp); err != nil {
		return nil, err
	}
	return &models.Checkout{SessionID: resp.SessionID, URL: resp.URL}, nil
}

func subscriptionFromResponse(resp *rpc.SubscriptionResponse) *models.Subscription {
	if resp == nil || !resp.Found {
		return nil
	}
	return &models.Subscription{
		ID:                 resp.ID,
		PlanID:             resp.PlanID,
		Status:             resp.Status,
		CurrentPeriodStart: resp.CurrentPeriodStart,
		CurrentPeriodEnd:   resp.CurrentPeriodEnd,
		CancelAtPeriodEnd:  resp.CancelAtPeriodEnd,
	}
}

// GetSubscription returns nil when the user has none.
func (s *GRPCClient) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	resp, err := s.client.GetSubscription(ctx, &rpc.SubscriptionRequest{UserID: userID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return subscriptionFromResponse(resp), nil
}

func (s *GRPCClient) CancelSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	resp, err := s.client.CancelSubscription(ctx, &rpc.SubscriptionRequest{UserID: userID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return subscriptionFromResponse(resp), nil
}

func (s *GRPCClient) CreateUploadURL(ctx context.Context, userID, fileName string) (*models.UploadTarget, error) {
	resp, err := s.client.CreateUploadURL(ctx, &rpc.UploadURLRequest{UserID: userID, FileName: fileName})
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := s.check(resp); err != nil {
		return nil, err
	}
	return &models.UploadTarget{Key: resp.Key, URL: resp.URL, ViewURL: resp.ViewURL}, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return common.ErrNetworkOrBackend
	}
	return nil
}
