package profiles

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

func (r *PostgresRepository) Create(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, full_name)
		VALUES ($1, $2)
		RETURNING credits, trial_used, version, updated_at
	`
	p := &models.Profile{UserID: userID, FullName: fullName}
	if err := r.db.QueryRowContext(ctx, query, userID, fullName).Scan(&p.Credits, &p.TrialUsed, &p.Version, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT p.user_id, u.email, p.full_name, p.credits, p.trial_used, p.version, p.updated_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT p.user_id, u.email, p.full_name, p.credits, p.trial_used, p.version, p.updated_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		FOR UPDATE OF p
	`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) AddCredits(ctx context.Context, userID string, amount int64) (int64, int64, error) {
	query := `
		UPDATE profiles
		SET credits = credits + $2, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND credits + $2 >= 0
		RETURNING credits, version
	`
	var credits, version int64
	err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&credits, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, r.missOr(ctx, userID, common.ErrInsufficientCredits)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return credits, version, nil
}

func (r *PostgresRepository) MarkTrialUsed(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE profiles
		SET trial_used = TRUE, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND NOT trial_used
		RETURNING version
	`
	var version int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, r.missOr(ctx, userID, common.ErrTrialUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}

func (r *PostgresRepository) UpdateFullName(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $2, version = version + 1, updated_at = now()
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, fullName)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, common.ErrorNotFound
	}
	return r.Get(ctx, userID)
}

// missOr tells a missing profile apart from a guarded update that matched no
// row. It returns common.ErrorNotFound or guardErr.
func (r *PostgresRepository) missOr(ctx context.Context, userID string, guardErr error) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE user_id = $1`, userID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	default:
		return guardErr
	}
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(&p.UserID, &p.Email, &p.FullName, &p.Credits, &p.TrialUsed, &p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}
