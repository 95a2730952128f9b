package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/rpc"
	"github.com/dmitrijs2005/photorestore/internal/server/auth"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/dmitrijs2005/photorestore/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// ---- fakes ----

type fakeUsers struct {
	pair *services.TokenPair
	err  error

	signedOut string
}

func (f *fakeUsers) SignUp(context.Context, string, string, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeUsers) SignIn(context.Context, string, string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeUsers) SignOut(_ context.Context, token string) error {
	f.signedOut = token
	return f.err
}
func (f *fakeUsers) RefreshToken(context.Context, string) (*services.TokenPair, error) {
	return f.pair, f.err
}

type fakeProfiles struct {
	profile   *models.Profile
	err       error
	available bool
	lastIP    string
	lastDelta string
}

func (f *fakeProfiles) GetProfile(context.Context, string) (*models.Profile, error) {
	return f.profile, f.err
}
func (f *fakeProfiles) UpdateProfile(_ context.Context, _ string, name string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.FullName = name
	return &p, nil
}
func (f *fakeProfiles) ApplyClientDelta(_ context.Context, userID, deltaID string, amount int64, _ string) (*models.CreditDelta, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastDelta = deltaID
	return &models.CreditDelta{ID: deltaID, UserID: userID, Amount: amount, Credits: f.profile.Credits + amount, Version: f.profile.Version + 1}, nil
}
func (f *fakeProfiles) TrialAvailable(_ context.Context, ip string) (bool, error) {
	f.lastIP = ip
	return f.available, f.err
}
func (f *fakeProfiles) ClaimTrial(_ context.Context, _ string, ip string) (int64, error) {
	f.lastIP = ip
	if f.err != nil {
		return 0, f.err
	}
	return f.profile.Version + 1, nil
}

type fakePayments struct {
	sub *models.Subscription
	err error
}

func (f *fakePayments) ListPlans() []models.Plan { return services.Plans() }
func (f *fakePayments) CreateCheckout(_ context.Context, userID, planID string) (*models.Checkout, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &models.Checkout{ID: "co-1", UserID: userID, PlanID: planID}, "http://pay.local/checkout/co-1", nil
}
func (f *fakePayments) GetSubscription(context.Context, string) (*models.Subscription, error) {
	return f.sub, f.err
}
func (f *fakePayments) CancelSubscription(context.Context, string) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.sub
	s.CancelAtPeriodEnd = true
	return &s, nil
}

type fakePhotos struct{ err error }

func (f *fakePhotos) CreateUploadURL(_ context.Context, userID, name string) (*services.UploadTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := "photos/" + userID + "/" + name
	return &services.UploadTarget{Key: key, PutURL: "http://s3.local/put/" + key, ViewURL: "http://s3.local/get/" + key}, nil
}

// ---- helpers ----

type fixture struct {
	users    *fakeUsers
	profiles *fakeProfiles
	payments *fakePayments
	photos   *fakePhotos
	srv      *GRPCServer
}

func newFixture() *fixture {
	f := &fixture{
		users:    &fakeUsers{pair: &services.TokenPair{UserID: "u1", AccessToken: "a", RefreshToken: "r"}},
		profiles: &fakeProfiles{profile: &models.Profile{UserID: "u1", Email: "u1@example.com", FullName: "Ann", Credits: 3, Version: 4}, available: true},
		payments: &fakePayments{},
		photos:   &fakePhotos{},
	}
	f.srv = &GRPCServer{
		address:   "127.0.0.1:0",
		users:     f.users,
		profiles:  f.profiles,
		payments:  f.payments,
		photos:    f.photos,
		logger:    logging.Nop(),
		jwtSecret: []byte("k"),
	}
	return f
}

func authed(userID string) context.Context {
	return context.WithValue(context.Background(), userIDKey, userID)
}

// ---- tests ----

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: bad", common.ErrInvalidArgument), codes.InvalidArgument},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{fmt.Errorf("wrapped: %w", common.ErrorNotFound), codes.NotFound},
		{common.ErrorUnauthorized, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{common.ErrInsufficientCredits, codes.FailedPrecondition},
		{common.ErrTrialUnavailable, codes.FailedPrecondition},
		{common.ErrForbidden, codes.PermissionDenied},
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("db exploded"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, status.Code(toStatus(tc.err)))
		})
	}
	assert.Equal(t, "internal error", status.Convert(toStatus(errors.New("secret detail"))).Message())
}

func TestPing_OK(t *testing.T) {
	f := newFixture()
	resp, err := f.srv.Ping(context.Background(), &rpc.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestAuthHandlers(t *testing.T) {
	f := newFixture()

	resp, err := f.srv.SignUp(context.Background(), &rpc.SignUpRequest{Email: "a@b.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, &rpc.TokenResponse{UserID: "u1", AccessToken: "a", RefreshToken: "r"}, resp)

	_, err = f.srv.SignOut(authed("u1"), &rpc.SignOutRequest{RefreshToken: "r"})
	require.NoError(t, err)
	assert.Equal(t, "r", f.users.signedOut)

	f.users.err = common.ErrorUnauthorized
	_, err = f.srv.SignIn(context.Background(), &rpc.SignInRequest{Email: "a@b.io", Password: "x"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	f.users.err = common.ErrorAlreadyExists
	_, err = f.srv.SignUp(context.Background(), &rpc.SignUpRequest{Email: "a@b.io", Password: "secret1"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	f.users.err = errors.New("oops")
	_, err = f.srv.RefreshToken(context.Background(), &rpc.RefreshTokenRequest{RefreshToken: "r0"})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestEntitlement_RejectsOtherUser(t *testing.T) {
	f := newFixture()

	resp, err := f.srv.GetEntitlement(authed("u1"), &rpc.EntitlementRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, &rpc.EntitlementResponse{Credits: 3, TrialUsed: false, Version: 4}, resp)

	_, err = f.srv.GetEntitlement(authed("u1"), &rpc.EntitlementRequest{UserID: "u2"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.srv.GetEntitlement(context.Background(), &rpc.EntitlementRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	f.profiles.err = common.ErrorNotFound
	_, err = f.srv.GetEntitlement(authed("u1"), &rpc.EntitlementRequest{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestApplyCreditDelta(t *testing.T) {
	f := newFixture()

	resp, err := f.srv.ApplyCreditDelta(authed("u1"), &rpc.CreditDeltaRequest{DeltaID: "d1", Amount: -1})
	require.NoError(t, err)
	assert.Equal(t, &rpc.CreditDeltaResponse{Credits: 2, Version: 5}, resp)
	assert.Equal(t, "d1", f.profiles.lastDelta)

	f.profiles.err = common.ErrInsufficientCredits
	_, err = f.srv.ApplyCreditDelta(authed("u1"), &rpc.CreditDeltaRequest{DeltaID: "d2", Amount: -9})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	f.profiles.err = common.ErrForbidden
	_, err = f.srv.ApplyCreditDelta(authed("u1"), &rpc.CreditDeltaRequest{DeltaID: "d3", Amount: 9})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestTrialHandlers(t *testing.T) {
	f := newFixture()
	ctx := metadata.NewIncomingContext(authed("u1"), metadata.Pairs(common.ForwardedForHeaderName, "198.51.100.2"))

	avail, err := f.srv.TrialAvailable(ctx, &rpc.TrialRequest{})
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Equal(t, "198.51.100.2", f.profiles.lastIP)

	claim, err := f.srv.ClaimTrial(ctx, &rpc.TrialRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, claim.Available)
	assert.Equal(t, int64(5), claim.Version)

	f.profiles.err = common.ErrTrialUnavailable
	_, err = f.srv.ClaimTrial(ctx, &rpc.TrialRequest{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	f.profiles.err = errors.New("redis down")
	_, err = f.srv.TrialAvailable(ctx, &rpc.TrialRequest{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestPaymentHandlers(t *testing.T) {
	f := newFixture()

	plans, err := f.srv.ListPlans(context.Background(), &rpc.Empty{})
	require.NoError(t, err)
	require.Len(t, plans.Plans, 4)
	assert.Equal(t, "subscription", plans.Plans[0].Mode)

	co, err := f.srv.CreateCheckout(authed("u1"), &rpc.CheckoutRequest{PlanID: "pack10"})
	require.NoError(t, err)
	assert.Equal(t, "co-1", co.SessionID)
	assert.Equal(t, "http://pay.local/checkout/co-1", co.URL)

	sub, err := f.srv.GetSubscription(authed("u1"), &rpc.SubscriptionRequest{})
	require.NoError(t, err)
	assert.False(t, sub.Found)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.payments.sub = &models.Subscription{ID: "s1", UserID: "u1", PlanID: "club", Status: models.SubscriptionActive, CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(0, 1, 0)}
	canceled, err := f.srv.CancelSubscription(authed("u1"), &rpc.SubscriptionRequest{})
	require.NoError(t, err)
	assert.True(t, canceled.Found)
	assert.True(t, canceled.CancelAtPeriodEnd)
	assert.Equal(t, start, canceled.CurrentPeriodStart)

	f.payments.err = fmt.Errorf("%w: unknown plan", common.ErrInvalidArgument)
	_, err = f.srv.CreateCheckout(authed("u1"), &rpc.CheckoutRequest{PlanID: "gold"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCreateUploadURL(t *testing.T) {
	f := newFixture()

	resp, err := f.srv.CreateUploadURL(authed("u1"), &rpc.UploadURLRequest{FileName: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "photos/u1/a.png", resp.Key)
	assert.Equal(t, "http://s3.local/put/photos/u1/a.png", resp.URL)
	assert.Equal(t, "http://s3.local/get/photos/u1/a.png", resp.ViewURL)

	_, err = f.srv.CreateUploadURL(authed("u1"), &rpc.UploadURLRequest{UserID: "u2"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestIdentityHandlers(t *testing.T) {
	f := newFixture()

	id, err := f.srv.GetIdentity(authed("u1"), &rpc.Empty{})
	require.NoError(t, err)
	assert.Equal(t, &rpc.IdentityResponse{ID: "u1", Email: "u1@example.com", FullName: "Ann"}, id)

	upd, err := f.srv.UpdateProfile(authed("u1"), &rpc.UpdateProfileRequest{FullName: "Ann B"})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", upd.FullName)
}

// TestOverTheWire drives the registered service through bufconn with the
// shared client stub, interceptors included.
func TestOverTheWire(t *testing.T) {
	f := newFixture()

	lis := bufconn.Listen(1 << 20)
	srv := f.srv.newServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := rpc.NewProfileServiceClient(conn)

	ping, err := client.Ping(context.Background(), &rpc.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "OK", ping.Status)

	_, err = client.GetEntitlement(context.Background(), &rpc.EntitlementRequest{UserID: "u1"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := auth.GenerateToken("u1", []byte("k"), time.Minute)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)

	ent, err := client.GetEntitlement(ctx, &rpc.EntitlementRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ent.Credits)

	expired, err := auth.GenerateToken("u1", []byte("k"), -time.Minute)
	require.NoError(t, err)
	ctx = metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, expired)
	_, err = client.GetEntitlement(ctx, &rpc.EntitlementRequest{UserID: "u1"})
	st := status.Convert(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, common.ErrTokenExpired.Error(), st.Message())
}
