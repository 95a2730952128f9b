// Package events publishes domain events of the photorestore server to a
// RabbitMQ topic exchange. Delivery is best effort: callers log failures and
// carry on.
package events

import (
	"context"
	"time"
)

// Routing keys.
const (
	CreditsChanged    = "credits.changed"
	CheckoutCompleted = "checkout.completed"
	TrialClaimed      = "trial.claimed"
	UserRegistered    = "user.registered"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

type CreditsChangedEvent struct {
	UserID     string    `json:"user_id"`
	DeltaID    string    `json:"delta_id"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason,omitempty"`
	Credits    int64     `json:"credits"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CheckoutCompletedEvent struct {
	CheckoutID string    `json:"checkout_id"`
	UserID     string    `json:"user_id"`
	PlanID     string    `json:"plan_id"`
	Credits    int64     `json:"credits"`
	OccurredAt time.Time `json:"occurred_at"`
}

type TrialClaimedEvent struct {
	UserID     string    `json:"user_id"`
	IP         string    `json:"ip,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type UserRegisteredEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }
