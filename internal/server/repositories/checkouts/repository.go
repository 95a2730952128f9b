// Package checkouts stores hosted payment sessions.
package checkouts

import (
	"context"

	"github.com/dmitrijs2005/photorestore/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Checkout) error
	Get(ctx context.Context, id string) (*models.Checkout, error)
	// Complete moves a pending checkout to completed. It reports false when
	// the checkout had already been completed.
	Complete(ctx context.Context, id string) (bool, error)
}
