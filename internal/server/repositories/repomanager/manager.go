// Package repomanager vends repository implementations bound to a DBTX, so
// services can run the same repositories on *sql.DB or inside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/photorestore/internal/dbx"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/checkouts"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/credits"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/subscriptions"
	"github.com/dmitrijs2005/photorestore/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Credits(db dbx.DBTX) credits.Repository
	Checkouts(db dbx.DBTX) checkouts.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
}
