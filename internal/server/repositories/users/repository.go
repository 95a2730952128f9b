// Package users declares the server-side repository contract for
// authentication records.
package users

import (
	"context"

	"github.com/dmitrijs2005/photorestore/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID. A taken email yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
