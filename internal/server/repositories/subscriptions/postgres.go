package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/dbx"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id,
		    status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		    updated_at = now()
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, s.UserID, s.PlanID, s.Status,
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end
		FROM subscriptions
		WHERE user_id = $1
	`
	return scanSubscription(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) SetCancelAtPeriodEnd(ctx context.Context, userID string, cancel bool) (*models.Subscription, error) {
	query := `
		UPDATE subscriptions
		SET cancel_at_period_end = $2, updated_at = now()
		WHERE user_id = $1
		RETURNING id, user_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end
	`
	return scanSubscription(r.db.QueryRowContext(ctx, query, userID, cancel))
}

func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
