// Package favorites persists the recipes a user chose to keep.
package favorites

import (
	"context"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

type Repository interface {
	// Create stores fav and fills in its ID. A second copy of the same
	// content for the same user yields common.ErrorAlreadyExists.
	Create(ctx context.Context, fav *models.Favorite) (*models.Favorite, error)
	ExistsByContent(ctx context.Context, userID, contentHash string) (bool, error)
	// ListByUser returns the user's favorites, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Favorite, error)
	// Delete removes the favorite only if userID owns it.
	Delete(ctx context.Context, userID string, id int64) (bool, error)
}
