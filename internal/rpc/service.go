package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "photorestore.v1.ProfileService"

const (
	MethodSignUp             = "/" + ServiceName + "/SignUp"
	MethodSignIn             = "/" + ServiceName + "/SignIn"
	MethodRefreshToken       = "/" + ServiceName + "/RefreshToken"
	MethodSignOut            = "/" + ServiceName + "/SignOut"
	MethodGetIdentity        = "/" + ServiceName + "/GetIdentity"
	MethodGetEntitlement     = "/" + ServiceName + "/GetEntitlement"
	MethodApplyCreditDelta   = "/" + ServiceName + "/ApplyCreditDelta"
	MethodUpdateProfile      = "/" + ServiceName + "/UpdateProfile"
	MethodTrialAvailable     = "/" + ServiceName + "/TrialAvailable"
	MethodClaimTrial         = "/" + ServiceName + "/ClaimTrial"
	MethodListPlans          = "/" + ServiceName + "/ListPlans"
	MethodCreateCheckout     = "/" + ServiceName + "/CreateCheckout"
	MethodGetSubscription    = "/" + ServiceName + "/GetSubscription"
	MethodCancelSubscription = "/" + ServiceName + "/CancelSubscription"
	MethodCreateUploadURL    = "/" + ServiceName + "/CreateUploadURL"
	MethodPing               = "/" + ServiceName + "/Ping"
)

// PublicMethods can be called without an access token.
var PublicMethods = map[string]bool{
	MethodSignUp:         true,
	MethodSignIn:         true,
	MethodRefreshToken:   true,
	MethodTrialAvailable: true,
	MethodListPlans:      true,
	MethodPing:           true,
}

type ProfileServiceClient interface {
	SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*Empty, error)
	GetIdentity(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*IdentityResponse, error)
	GetEntitlement(ctx context.Context, in *EntitlementRequest, opts ...grpc.CallOption) (*EntitlementResponse, error)
	ApplyCreditDelta(ctx context.Context, in *CreditDeltaRequest, opts ...grpc.CallOption) (*CreditDeltaResponse, error)
	UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*IdentityResponse, error)
	TrialAvailable(ctx context.Context, in *TrialRequest, opts ...grpc.CallOption) (*TrialResponse, error)
	ClaimTrial(ctx context.Context, in *TrialRequest, opts ...grpc.CallOption) (*TrialResponse, error)
	ListPlans(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListPlansResponse, error)
	CreateCheckout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error)
	GetSubscription(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (*SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (*SubscriptionResponse, error)
	CreateUploadURL(ctx context.Context, in *UploadURLRequest, opts ...grpc.CallOption) (*UploadURLResponse, error)
	Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error)
}

type profileServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewProfileServiceClient(cc grpc.ClientConnInterface) ProfileServiceClient {
	return &profileServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *profileServiceClient) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodSignUp, in, opts)
}

func (c *profileServiceClient) SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodSignIn, in, opts)
}

func (c *profileServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *profileServiceClient) SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodSignOut, in, opts)
}

func (c *profileServiceClient) GetIdentity(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*IdentityResponse, error) {
	return invoke[IdentityResponse](ctx, c.cc, MethodGetIdentity, in, opts)
}

func (c *profileServiceClient) GetEntitlement(ctx context.Context, in *EntitlementRequest, opts ...grpc.CallOption) (*EntitlementResponse, error) {
	return invoke[EntitlementResponse](ctx, c.cc, MethodGetEntitlement, in, opts)
}

func (c *profileServiceClient) ApplyCreditDelta(ctx context.Context, in *CreditDeltaRequest, opts ...grpc.CallOption) (*CreditDeltaResponse, error) {
	return invoke[CreditDeltaResponse](ctx, c.cc, MethodApplyCreditDelta, in, opts)
}

func (c *profileServiceClient) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*IdentityResponse, error) {
	return invoke[IdentityResponse](ctx, c.cc, MethodUpdateProfile, in, opts)
}

func (c *profileServiceClient) TrialAvailable(ctx context.Context, in *TrialRequest, opts ...grpc.CallOption) (*TrialResponse, error) {
	return invoke[TrialResponse](ctx, c.cc, MethodTrialAvailable, in, opts)
}

func (c *profileServiceClient) ClaimTrial(ctx context.Context, in *TrialRequest, opts ...grpc.CallOption) (*TrialResponse, error) {
	return invoke[TrialResponse](ctx, c.cc, MethodClaimTrial, in, opts)
}

func (c *profileServiceClient) ListPlans(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListPlansResponse, error) {
	return invoke[ListPlansResponse](ctx, c.cc, MethodListPlans, in, opts)
}

func (c *profileServiceClient) CreateCheckout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	return invoke[CheckoutResponse](ctx, c.cc, MethodCreateCheckout, in, opts)
}

func (c *profileServiceClient) GetSubscription(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (*SubscriptionResponse, error) {
	return invoke[SubscriptionResponse](ctx, c.cc, MethodGetSubscription, in, opts)
}

func (c *profileServiceClient) CancelSubscription(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (*SubscriptionResponse, error) {
	return invoke[SubscriptionResponse](ctx, c.cc, MethodCancelSubscription, in, opts)
}

func (c *profileServiceClient) CreateUploadURL(ctx context.Context, in *UploadURLRequest, opts ...grpc.CallOption) (*UploadURLResponse, error) {
	return invoke[UploadURLResponse](ctx, c.cc, MethodCreateUploadURL, in, opts)
}

func (c *profileServiceClient) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

type ProfileServiceServer interface {
	SignUp(context.Context, *SignUpRequest) (*TokenResponse, error)
	SignIn(context.Context, *SignInRequest) (*TokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	SignOut(context.Context, *SignOutRequest) (*Empty, error)
	GetIdentity(context.Context, *Empty) (*IdentityResponse, error)
	GetEntitlement(context.Context, *EntitlementRequest) (*EntitlementResponse, error)
	ApplyCreditDelta(context.Context, *CreditDeltaRequest) (*CreditDeltaResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*IdentityResponse, error)
	TrialAvailable(context.Context, *TrialRequest) (*TrialResponse, error)
	ClaimTrial(context.Context, *TrialRequest) (*TrialResponse, error)
	ListPlans(context.Context, *Empty) (*ListPlansResponse, error)
	CreateCheckout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
	GetSubscription(context.Context, *SubscriptionRequest) (*SubscriptionResponse, error)
	CancelSubscription(context.Context, *SubscriptionRequest) (*SubscriptionResponse, error)
	CreateUploadURL(context.Context, *UploadURLRequest) (*UploadURLResponse, error)
	Ping(context.Context, *Empty) (*PingResponse, error)
}

// UnimplementedProfileServiceServer can be embedded by servers that only
// implement part of the service.
type UnimplementedProfileServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedProfileServiceServer) SignUp(context.Context, *SignUpRequest) (*TokenResponse, error) {
	return nil, unimplemented("SignUp")
}
func (UnimplementedProfileServiceServer) SignIn(context.Context, *SignInRequest) (*TokenResponse, error) {
	return nil, unimplemented("SignIn")
}
func (UnimplementedProfileServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedProfileServiceServer) SignOut(context.Context, *SignOutRequest) (*Empty, error) {
	return nil, unimplemented("SignOut")
}
func (UnimplementedProfileServiceServer) GetIdentity(context.Context, *Empty) (*IdentityResponse, error) {
	return nil, unimplemented("GetIdentity")
}
func (UnimplementedProfileServiceServer) GetEntitlement(context.Context, *EntitlementRequest) (*EntitlementResponse, error) {
	return nil, unimplemented("GetEntitlement")
}
func (UnimplementedProfileServiceServer) ApplyCreditDelta(context.Context, *CreditDeltaRequest) (*CreditDeltaResponse, error) {
	return nil, unimplemented("ApplyCreditDelta")
}
func (UnimplementedProfileServiceServer) UpdateProfile(context.Context, *UpdateProfileRequest) (*IdentityResponse, error) {
	return nil, unimplemented("UpdateProfile")
}
func (UnimplementedProfileServiceServer) TrialAvailable(context.Context, *TrialRequest) (*TrialResponse, error) {
	return nil, unimplemented("TrialAvailable")
}
func (UnimplementedProfileServiceServer) ClaimTrial(context.Context, *TrialRequest) (*TrialResponse, error) {
	return nil, unimplemented("ClaimTrial")
}
func (UnimplementedProfileServiceServer) ListPlans(context.Context, *Empty) (*ListPlansResponse, error) {
	return nil, unimplemented("ListPlans")
}
func (UnimplementedProfileServiceServer) CreateCheckout(context.Context, *CheckoutRequest) (*CheckoutResponse, error) {
	return nil, unimplemented("CreateCheckout")
}
func (UnimplementedProfileServiceServer) GetSubscription(context.Context, *SubscriptionRequest) (*SubscriptionResponse, error) {
	return nil, unimplemented("GetSubscription")
}
func (UnimplementedProfileServiceServer) CancelSubscription(context.Context, *SubscriptionRequest) (*SubscriptionResponse, error) {
	return nil, unimplemented("CancelSubscription")
}
func (UnimplementedProfileServiceServer) CreateUploadURL(context.Context, *UploadURLRequest) (*UploadURLResponse, error) {
	return nil, unimplemented("CreateUploadURL")
}
func (UnimplementedProfileServiceServer) Ping(context.Context, *Empty) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}

func RegisterProfileServiceServer(s grpc.ServiceRegistrar, srv ProfileServiceServer) {
	s.RegisterService(&ProfileService_ServiceDesc, srv)
}

// unary adapts a typed server method to grpc.MethodHandler.
func unary[Req any, Resp any](method string, call func(ProfileServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProfileServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProfileServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ProfileService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignUp", Handler: unary(MethodSignUp, ProfileServiceServer.SignUp)},
		{MethodName: "SignIn", Handler: unary(MethodSignIn, ProfileServiceServer.SignIn)},
		{MethodName: "RefreshToken", Handler: unary(MethodRefreshToken, ProfileServiceServer.RefreshToken)},
		{MethodName: "SignOut", Handler: unary(MethodSignOut, ProfileServiceServer.SignOut)},
		{MethodName: "GetIdentity", Handler: unary(MethodGetIdentity, ProfileServiceServer.GetIdentity)},
		{MethodName: "GetEntitlement", Handler: unary(MethodGetEntitlement, ProfileServiceServer.GetEntitlement)},
		{MethodName: "ApplyCreditDelta", Handler: unary(MethodApplyCreditDelta, ProfileServiceServer.ApplyCreditDelta)},
		{MethodName: "UpdateProfile", Handler: unary(MethodUpdateProfile, ProfileServiceServer.UpdateProfile)},
		{MethodName: "TrialAvailable", Handler: unary(MethodTrialAvailable, ProfileServiceServer.TrialAvailable)},
		{MethodName: "ClaimTrial", Handler: unary(MethodClaimTrial, ProfileServiceServer.ClaimTrial)},
		{MethodName: "ListPlans", Handler: unary(MethodListPlans, ProfileServiceServer.ListPlans)},
		{MethodName: "CreateCheckout", Handler: unary(MethodCreateCheckout, ProfileServiceServer.CreateCheckout)},
		{MethodName: "GetSubscription", Handler: unary(MethodGetSubscription, ProfileServiceServer.GetSubscription)},
		{MethodName: "CancelSubscription", Handler: unary(MethodCancelSubscription, ProfileServiceServer.CancelSubscription)},
		{MethodName: "CreateUploadURL", Handler: unary(MethodCreateUploadURL, ProfileServiceServer.CreateUploadURL)},
		{MethodName: "Ping", Handler: unary(MethodPing, ProfileServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "photorestore/v1/profile",
}
