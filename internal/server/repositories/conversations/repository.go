// Package conversations stores the per-user, append-only conversation
// history that is replayed to the completion provider on every request.
package conversations

import (
	"context"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, userID string, role models.Role, content string) (*models.Turn, error)
	// ReadAll returns every turn of the user, oldest first.
	ReadAll(ctx context.Context, userID string) ([]models.Turn, error)
	// ClearExceptSystem deletes all non-system turns and returns how many
	// were removed.
	ClearExceptSystem(ctx context.Context, userID string) (int64, error)
}
