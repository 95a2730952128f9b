package credits

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

func (r *PostgresRepository) Find(ctx context.Context, userID, deltaID string) (*models.CreditDelta, error) {
	query := `
		SELECT id, user_id, amount, reason, credits, version, created_at
		FROM credit_deltas
		WHERE user_id = $1 AND id = $2
	`
	d := &models.CreditDelta{}
	err := r.db.QueryRowContext(ctx, query, userID, deltaID).
		Scan(&d.ID, &d.UserID, &d.Amount, &d.Reason, &d.Credits, &d.Version, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, d *models.CreditDelta) error {
	query := `
		INSERT INTO credit_deltas (id, user_id, amount, reason, credits, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.UserID, d.Amount, d.Reason, d.Credits, d.Version).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.CreditDelta, error) {
	query := `
		SELECT id, user_id, amount, reason, credits, version, created_at
		FROM credit_deltas
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.CreditDelta
	for rows.Next() {
		d := &models.CreditDelta{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.Reason, &d.Credits, &d.Version, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
