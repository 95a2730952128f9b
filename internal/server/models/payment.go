package models

import "time"

type PlanMode string

const (
	PlanModePayment      PlanMode = "payment"
	PlanModeSubscription PlanMode = "subscription"
)

// Plan is a purchasable product of the catalog.
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

type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutCompleted CheckoutStatus = "completed"
)

// Checkout is a hosted payment session. It is fulfilled at most once.
type Checkout struct {
	ID          string
	UserID      string
	PlanID      string
	Status      CheckoutStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription is the single recurring plan a user may hold.
type Subscription struct {
	ID                 string
	UserID             string
	PlanID             string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}
