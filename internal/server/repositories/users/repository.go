package users

import (
	"context"

	"github.com/dmitrijs2005/gophlink/internal/server/models"
)

// Repository is the credential store.
type Repository interface {
	// Create inserts user and fills in its ID. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByEmail returns common.ErrorNotFound when no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
