package checkouts

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Checkout) error {
	query := `
		INSERT INTO checkouts (id, user_id, plan_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.UserID, c.PlanID, string(c.Status)).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Checkout, error) {
	query := `
		SELECT id, user_id, plan_id, status, created_at, completed_at
		FROM checkouts
		WHERE id = $1
	`
	c := &models.Checkout{}
	var status string
	var completed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.UserID, &c.PlanID, &status, &c.CreatedAt, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Status = models.CheckoutStatus(status)
	if completed.Valid {
		c.CompletedAt = &completed.Time
	}
	return c, nil
}

func (r *PostgresRepository) Complete(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE checkouts
		SET status = 'completed', completed_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
