package models

import "time"

type PlanMode string

const (
	PlanModePayment      PlanMode = "payment"
	PlanModeSubscription PlanMode = "subscription"
)

// Plan is a purchasable product from the backend catalog.
type Plan struct {
	ID          string
	PriceID     string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	Mode        PlanMode
	Credits     int64
	Popular     bool
	Features    []string
}

type Checkout struct {
	SessionID string
	URL       string
}

type Subscription struct {
	ID                 string
	PlanID             string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// Active reports whether the subscription currently grants benefits.
func (s *Subscription) Active() bool {
	return s != nil && (s.Status == "active" || s.Status == "trialing")
}

// UploadTarget is a presigned location for the original photo.
// ViewURL, when set, is a presigned link for reading the photo back.
type UploadTarget struct {
	Key     string
	URL     string
	ViewURL string
}
