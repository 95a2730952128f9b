package client

import (
	"context"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
)

// ProfileGateway is what the session core needs from the backend.
type ProfileGateway interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, fullName string) error
	SignOut(ctx context.Context) error

	// GetCurrentIdentity returns nil without error when there is no valid
	// session.
	GetCurrentIdentity(ctx context.Context) (*models.Identity, error)
	FetchEntitlement(ctx context.Context, userID string) (models.EntitlementSnapshot, error)

	// PersistCreditDelta applies amount to the remote balance and returns the
	// profile version that includes it. deltaID makes retries safe.
	PersistCreditDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (int64, error)
}

// Client is the full backend surface used by the CLI.
type Client interface {
	ProfileGateway

	UpdateProfile(ctx context.Context, userID, fullName string) (*models.Identity, error)
	TrialAvailable(ctx context.Context) (bool, error)
	ClaimTrial(ctx context.Context, userID string) (int64, error)

	ListPlans(ctx context.Context) ([]models.Plan, error)
	CreateCheckout(ctx context.Context, userID, planID string) (*models.Checkout, error)
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, userID string) (*models.Subscription, error)

	CreateUploadURL(ctx context.Context, userID, fileName string) (*models.UploadTarget, error)

	Ping(ctx context.Context) error
	Close() error
}

// TokenStore persists the token pair between runs.
type TokenStore interface {
	LoadTokens(ctx context.Context) (models.TokenPair, error)
	SaveTokens(ctx context.Context, p models.TokenPair) error
}
