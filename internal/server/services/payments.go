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
	"github.com/google/uuid"
)

// PaymentService sells catalog plans through hosted checkout sessions and
// fulfils them exactly once.
type PaymentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	profiles    *ProfileService
	baseURL     string
	events      events.Publisher
	metrics     *metrics.Metrics
	log         logging.Logger
	now         func() time.Time
}

func NewPaymentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, profiles *ProfileService, ev events.Publisher, mt *metrics.Metrics, log logging.Logger) *PaymentService {
	return &PaymentService{
		db:          db,
		repomanager: m,
		profiles:    profiles,
		baseURL:     strings.TrimRight(cfg.PublicBaseURL, "/"),
		events:      ev,
		metrics:     mt,
		log:         log.With("module", "payment_service"),
		now:         time.Now,
	}
}

func (s *PaymentService) ListPlans() []models.Plan {
	return Plans()
}

// CreateCheckout opens a pending checkout for planID and returns it with the
// URL of its hosted payment page.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID, planID string) (*models.Checkout, string, error) {
	plan, ok := FindPlan(planID)
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown plan %q", common.ErrInvalidArgument, planID)
	}

	c := &models.Checkout{
		ID:     uuid.NewString(),
		UserID: userID,
		PlanID: plan.ID,
		Status: models.CheckoutPending,
	}
	if err := s.repomanager.Checkouts(s.db).Create(ctx, c); err != nil {
		return nil, "", fmt.Errorf("error creating checkout: %w", err)
	}

	s.log.Info(ctx, "checkout created", "checkout_id", c.ID, "user_id", userID, "plan", plan.ID)
	return c, s.CheckoutURL(c.ID), nil
}

func (s *PaymentService) CheckoutURL(id string) string {
	return s.baseURL + "/checkout/" + id
}

func (s *PaymentService) GetCheckout(ctx context.Context, id string) (*models.Checkout, error) {
	return s.repomanager.Checkouts(s.db).Get(ctx, id)
}

// FulfilCheckout completes checkout id: it grants the plan credits through the
// idempotent delta path and, for subscription plans, renews the subscription.
// Fulfilling an already completed checkout is a no-op that reports false.
func (s *PaymentService) FulfilCheckout(ctx context.Context, id string) (bool, error) {
	checkout, err := s.GetCheckout(ctx, id)
	if err != nil {
		return false, err
	}
	plan, ok := FindPlan(checkout.PlanID)
	if !ok {
		return false, fmt.Errorf("%w: unknown plan %q", common.ErrInvalidArgument, checkout.PlanID)
	}

	type outcome struct {
		completed bool
		delta     *models.CreditDelta
	}

	res, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (outcome, error) {
		completed, err := s.repomanager.Checkouts(tx).Complete(ctx, id)
		if err != nil || !completed {
			return outcome{}, err
		}

		d, _, err := s.profiles.applyDeltaTx(ctx, tx, checkout.UserID, "checkout:"+id, plan.Credits, "purchase:"+plan.ID)
		if err != nil {
			return outcome{}, err
		}

		if plan.Mode == models.PlanModeSubscription {
			start := s.now().UTC()
			sub := &models.Subscription{
				UserID:             checkout.UserID,
				PlanID:             plan.ID,
				Status:             models.SubscriptionActive,
				CurrentPeriodStart: start,
				CurrentPeriodEnd:   start.AddDate(0, 1, 0),
			}
			if err := s.repomanager.Subscriptions(tx).Upsert(ctx, sub); err != nil {
				return outcome{}, err
			}
		}
		return outcome{completed: true, delta: d}, nil
	})
	if err != nil {
		return false, fmt.Errorf("error fulfilling checkout %s: %w", id, err)
	}
	if !res.completed {
		s.log.Info(ctx, "checkout already fulfilled", "checkout_id", id)
		return false, nil
	}

	s.metrics.CheckoutsFulfilled.WithLabelValues(plan.ID).Inc()
	s.profiles.afterDelta(ctx, res.delta)
	if err := s.events.Publish(ctx, events.CheckoutCompleted, events.CheckoutCompletedEvent{
		CheckoutID: id,
		UserID:     checkout.UserID,
		PlanID:     plan.ID,
		Credits:    plan.Credits,
		OccurredAt: s.now().UTC(),
	}); err != nil {
		s.log.Warn(ctx, "failed to publish event", "event", events.CheckoutCompleted, "error", err)
	}
	return true, nil
}

// GetSubscription returns the subscription of userID, or nil when there is none.
func (s *PaymentService) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.repomanager.Subscriptions(s.db).GetByUser(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return sub, err
}

// CancelSubscription stops renewal at the end of the current period.
func (s *PaymentService) CancelSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.repomanager.Subscriptions(s.db).SetCancelAtPeriodEnd(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "subscription canceled at period end", "user_id", userID, "plan", sub.PlanID)
	return sub, nil
}
