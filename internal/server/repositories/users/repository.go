// Package users declares the server-side repository contract for user
// accounts and its SQL implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, email, name, picture string) error
	// AcceptTerms sets the terms flag once; it reports false when the flag
	// was already set or the user does not exist.
	AcceptTerms(ctx context.Context, id string, at time.Time) (bool, error)
}
