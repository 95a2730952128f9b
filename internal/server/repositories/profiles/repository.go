// Package profiles declares the repository for the authoritative entitlement
// row of each user: credits, trial flag and version.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/photorestore/internal/server/models"
)

type Repository interface {
	// Create inserts the initial profile (no credits, trial unused, version 1).
	Create(ctx context.Context, userID, fullName string) (*models.Profile, error)

	// Get returns the profile joined with the user's email.
	Get(ctx context.Context, userID string) (*models.Profile, error)

	// GetForUpdate returns the profile and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, userID string) (*models.Profile, error)

	// AddCredits applies amount atomically and returns the new balance and
	// version. A change that would make the balance negative fails with
	// common.ErrInsufficientCredits and leaves the row untouched.
	AddCredits(ctx context.Context, userID string, amount int64) (credits, version int64, err error)

	// MarkTrialUsed sets the trial flag once. A second call fails with
	// common.ErrTrialUnavailable.
	MarkTrialUsed(ctx context.Context, userID string) (version int64, err error)

	UpdateFullName(ctx context.Context, userID, fullName string) (*models.Profile, error)
}
