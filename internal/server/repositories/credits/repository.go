// Package credits stores applied credit deltas. A delta is keyed by
// (user, delta id), which makes replays detectable.
package credits

import (
	"context"

	"github.com/dmitrijs2005/photorestore/internal/server/models"
)

type Repository interface {
	// Find returns common.ErrorNotFound when the delta was never applied.
	Find(ctx context.Context, userID, deltaID string) (*models.CreditDelta, error)
	Insert(ctx context.Context, d *models.CreditDelta) error
	// ListByUser returns up to limit deltas, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.CreditDelta, error)
}
