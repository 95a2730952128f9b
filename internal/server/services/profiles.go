package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/dbx"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/server/config"
	"github.com/dmitrijs2005/photorestore/internal/server/events"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photorestore/internal/server/trials"
)

const maxFullNameLen = 200

// ProfileService owns the authoritative credit ledger and the trial flag.
type ProfileService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	trials            trials.Store
	allowClientGrants bool
	events            events.Publisher
	metrics           *metrics.Metrics
	log               logging.Logger
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, ts trials.Store, ev events.Publisher, mt *metrics.Metrics, log logging.Logger) *ProfileService {
	return &ProfileService{
		db:                db,
		repomanager:       m,
		trials:            ts,
		allowClientGrants: cfg.AllowClientCreditGrants,
		events:            ev,
		metrics:           mt,
		log:               log.With("module", "profile_service"),
	}
}

// GetProfile returns the profile of userID or common.ErrorNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repomanager.Profiles(s.db).Get(ctx, userID)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if len(fullName) > maxFullNameLen {
		return nil, fmt.Errorf("%w: full name too long", common.ErrInvalidArgument)
	}
	if _, err := s.repomanager.Profiles(s.db).UpdateFullName(ctx, userID, fullName); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// History lists the latest applied deltas of userID, newest first.
func (s *ProfileService) History(ctx context.Context, userID string, limit int) ([]*models.CreditDelta, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repomanager.Credits(s.db).ListByUser(ctx, userID, limit)
}

// ApplyClientDelta applies a delta sent by a client. Clients may always spend;
// positive amounts are accepted only when client grants are enabled.
func (s *ProfileService) ApplyClientDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (*models.CreditDelta, error) {
	if amount > 0 && !s.allowClientGrants {
		s.metrics.CreditDeltas.WithLabelValues(metrics.Direction(amount), "rejected").Inc()
		return nil, fmt.Errorf("%w: client credit grants are disabled", common.ErrForbidden)
	}
	return s.ApplyDelta(ctx, userID, deltaID, amount, reason)
}

// ApplyDelta adds amount to the balance of userID exactly once per deltaID.
// A replay returns the originally recorded delta; reusing deltaID with a
// different amount is an invalid argument. The balance never goes negative:
// such a change fails with common.ErrInsufficientCredits.
func (s *ProfileService) ApplyDelta(ctx context.Context, userID, deltaID string, amount int64, reason string) (*models.CreditDelta, error) {
	if deltaID == "" || amount == 0 {
		return nil, fmt.Errorf("%w: delta id and non-zero amount required", common.ErrInvalidArgument)
	}

	var replayed bool
	d, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.CreditDelta, error) {
		d, fresh, err := s.applyDeltaTx(ctx, tx, userID, deltaID, amount, reason)
		replayed = !fresh
		return d, err
	})
	if err != nil {
		if errors.Is(err, common.ErrInsufficientCredits) {
			s.metrics.CreditDeltas.WithLabelValues(metrics.Direction(amount), "rejected").Inc()
		}
		return nil, err
	}

	if replayed {
		s.metrics.CreditDeltas.WithLabelValues(metrics.Direction(amount), "replayed").Inc()
		return d, nil
	}
	s.afterDelta(ctx, d)
	return d, nil
}

// applyDeltaTx runs inside tx. It reports fresh=false for a replay.
func (s *ProfileService) applyDeltaTx(ctx context.Context, tx dbx.DBTX, userID, deltaID string, amount int64, reason string) (*models.CreditDelta, bool, error) {
	if _, err := s.repomanager.Profiles(tx).GetForUpdate(ctx, userID); err != nil {
		return nil, false, err
	}

	prev, err := s.repomanager.Credits(tx).Find(ctx, userID, deltaID)
	switch {
	case err == nil:
		if prev.Amount != amount {
			return nil, false, fmt.Errorf("%w: delta %s was applied with a different amount", common.ErrInvalidArgument, deltaID)
		}
		return prev, false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, err
	}

	credits, version, err := s.repomanager.Profiles(tx).AddCredits(ctx, userID, amount)
	if err != nil {
		return nil, false, err
	}

	d := &models.CreditDelta{
		ID:      deltaID,
		UserID:  userID,
		Amount:  amount,
		Reason:  reason,
		Credits: credits,
		Version: version,
	}
	if err := s.repomanager.Credits(tx).Insert(ctx, d); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (s *ProfileService) afterDelta(ctx context.Context, d *models.CreditDelta) {
	s.metrics.CreditDeltas.WithLabelValues(metrics.Direction(d.Amount), "applied").Inc()
	s.log.Info(ctx, "credit delta applied", "user_id", d.UserID, "delta_id", d.ID, "amount", d.Amount, "credits", d.Credits)

	if err := s.events.Publish(ctx, events.CreditsChanged, events.CreditsChangedEvent{
		UserID:     d.UserID,
		DeltaID:    d.ID,
		Amount:     d.Amount,
		Reason:     d.Reason,
		Credits:    d.Credits,
		Version:    d.Version,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn(ctx, "failed to publish event", "event", events.CreditsChanged, "error", err)
	}
}

// TrialAvailable reports whether the free trial is still open for ip.
func (s *ProfileService) TrialAvailable(ctx context.Context, ip string) (bool, error) {
	return s.trials.Available(ctx, ip)
}

// ClaimTrial marks the trial of userID as used and returns the new profile
// version. A second claim fails with common.ErrTrialUnavailable. The client
// address is recorded as well; failing to record it only gets logged.
func (s *ProfileService) ClaimTrial(ctx context.Context, userID, ip string) (int64, error) {
	version, err := s.repomanager.Profiles(s.db).MarkTrialUsed(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrTrialUnavailable) {
			s.metrics.TrialClaims.WithLabelValues("rejected").Inc()
		}
		return 0, err
	}
	s.metrics.TrialClaims.WithLabelValues("claimed").Inc()

	if _, err := s.trials.Claim(ctx, ip); err != nil {
		s.log.Warn(ctx, "failed to record trial address", "user_id", userID, "error", err)
	}

	if err := s.events.Publish(ctx, events.TrialClaimed, events.TrialClaimedEvent{
		UserID: userID, IP: ip, OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn(ctx, "failed to publish event", "event", events.TrialClaimed, "error", err)
	}
	return version, nil
}
