// Package users implements the credential store: one row per user with the
// password hash and the hash of the single active refresh token.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the persistence contract of the auth workflow.
type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. An existing email
	// yields common.ErrDuplicateEmail and leaves the store unchanged.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByEmail and FindByID return common.ErrorNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// SetRefreshTokenHash overwrites the stored hash; nil clears it.
	// Updating an unknown id is not an error.
	SetRefreshTokenHash(ctx context.Context, id int64, hash *string) error
}
