package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/photorestore/internal/dbx"
	"github.com/dmitrijs2005/photorestore/internal/server/migrations"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/checkouts"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/credits"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/subscriptions"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and runs the
// embedded schema migrations.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Credits(db dbx.DBTX) credits.Repository {
	return credits.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Checkouts(db dbx.DBTX) checkouts.Repository {
	return checkouts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Subscriptions(db dbx.DBTX) subscriptions.Repository {
	return subscriptions.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations with the pgx dialect.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
