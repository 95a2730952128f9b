package rpc

import "time"

type Empty struct{}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	UserID       string `json:"user_id" validate:"required"`
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type IdentityResponse struct {
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name,omitempty"`
}

type EntitlementRequest struct {
	UserID string `json:"user_id"`
}

type EntitlementResponse struct {
	Credits   int64 `json:"credits" validate:"gte=0"`
	TrialUsed bool  `json:"trial_used"`
	Version   int64 `json:"version" validate:"gte=1"`
}

// CreditDeltaRequest asks the server to apply Amount to the caller's balance.
// DeltaID is the idempotency key: replays return the original outcome.
type CreditDeltaRequest struct {
	UserID  string `json:"user_id"`
	DeltaID string `json:"delta_id"`
	Amount  int64  `json:"amount"`
	Reason  string `json:"reason,omitempty"`
}

type CreditDeltaResponse struct {
	Credits int64 `json:"credits" validate:"gte=0"`
	Version int64 `json:"version" validate:"gte=1"`
}

type UpdateProfileRequest struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

type TrialRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type TrialResponse struct {
	Available bool  `json:"available"`
	Version   int64 `json:"version,omitempty"`
}

type Plan struct {
	ID          string   `json:"id" validate:"required"`
	PriceID     string   `json:"price_id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents" validate:"gt=0"`
	Currency    string   `json:"currency"`
	Mode        string   `json:"mode" validate:"oneof=payment subscription"`
	Credits     int64    `json:"credits" validate:"gt=0"`
	Popular     bool     `json:"popular,omitempty"`
	Features    []string `json:"features,omitempty"`
}

type ListPlansResponse struct {
	Plans []Plan `json:"plans" validate:"dive"`
}

type CheckoutRequest struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id" validate:"required"`
	URL       string `json:"url" validate:"required,url"`
}

type SubscriptionRequest struct {
	UserID string `json:"user_id"`
}

type SubscriptionResponse struct {
	Found              bool      `json:"found"`
	ID                 string    `json:"id,omitempty"`
	PlanID             string    `json:"plan_id,omitempty"`
	Status             string    `json:"status,omitempty"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
}

type UploadURLRequest struct {
	UserID   string `json:"user_id"`
	FileName string `json:"file_name"`
}

type UploadURLResponse struct {
	Key     string `json:"key" validate:"required"`
	URL     string `json:"url" validate:"required,url"`
	ViewURL string `json:"view_url,omitempty" validate:"omitempty,url"`
}

type PingResponse struct {
	Status string `json:"status"`
}
