package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/sethvargo/go-retry"
)

// pollProfile fetches the profile of a freshly registered user. Only
// ProfileNotFound is retried; anything else ends the poll at once.
func (s *Store) pollProfile(ctx context.Context) (*models.Identity, models.EntitlementSnapshot, error) {
	var (
		ident *models.Identity
		snap  models.EntitlementSnapshot
	)

	backoff := retry.WithMaxRetries(uint64(s.opts.ProfileRetryAttempts-1), retry.NewExponential(s.opts.ProfileRetryDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		ident, snap, err = s.fetchProfile(ctx)
		if errors.Is(err, common.ErrProfileNotFound) {
			s.log.Debug(ctx, "profile not ready yet", "attempt", attempt)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, models.EntitlementSnapshot{}, err
	}
	return ident, snap, nil
}
