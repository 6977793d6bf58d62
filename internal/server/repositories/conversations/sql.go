package conversations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Append(ctx context.Context, userID string, role models.Role, content string) (*models.Turn, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}

	turn := &models.Turn{
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	query :=
		`INSERT INTO conversation_history (user_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, userID, string(role), content, turn.CreatedAt).Scan(&turn.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return turn, nil
}

func (r *SQLRepository) ReadAll(ctx context.Context, userID string) ([]models.Turn, error) {
	query :=
		`SELECT id, user_id, role, content, created_at FROM conversation_history
		 WHERE user_id = $1
		 ORDER BY id ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	turns := make([]models.Turn, 0)
	for rows.Next() {
		var t models.Turn
		var role string
		if err := rows.Scan(&t.ID, &t.UserID, &role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		t.Role = models.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return turns, nil
}

func (r *SQLRepository) ClearExceptSystem(ctx context.Context, userID string) (int64, error) {
	query :=
		`DELETE FROM conversation_history
		 WHERE user_id = $1 AND role <> $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, string(models.RoleSystem))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
