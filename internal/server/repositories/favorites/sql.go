package favorites

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

func (r *SQLRepository) Create(ctx context.Context, fav *models.Favorite) (*models.Favorite, error) {
	if fav.DateAdded.IsZero() {
		fav.DateAdded = time.Now().UTC()
	}

	query :=
		`INSERT INTO favorite_recipes (user_id, title, content, content_hash, date_added, starred)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		fav.UserID, fav.Title, fav.Content, fav.ContentHash, fav.DateAdded, fav.Starred).Scan(&fav.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return fav, nil
}

func (r *SQLRepository) ExistsByContent(ctx context.Context, userID, contentHash string) (bool, error) {
	query :=
		`SELECT COUNT(1) FROM favorite_recipes
		 WHERE user_id = $1 AND content_hash = $2
		 `

	var n int64
	if err := r.db.QueryRowContext(ctx, query, userID, contentHash).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]models.Favorite, error) {
	query :=
		`SELECT id, user_id, title, content, content_hash, date_added, starred FROM favorite_recipes
		 WHERE user_id = $1
		 ORDER BY date_added DESC, id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	favs := make([]models.Favorite, 0)
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.Title, &f.Content, &f.ContentHash, &f.DateAdded, &f.Starred); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return favs, nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	query :=
		`DELETE FROM favorite_recipes
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
