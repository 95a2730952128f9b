// Package subscriptions stores the recurring plan held by a user.
package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/photorestore/internal/server/models"
)

type Repository interface {
	// Upsert replaces the user's subscription and fills its ID.
	Upsert(ctx context.Context, s *models.Subscription) error
	// GetByUser returns common.ErrorNotFound when the user has none.
	GetByUser(ctx context.Context, userID string) (*models.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, userID string, cancel bool) (*models.Subscription, error)
}
