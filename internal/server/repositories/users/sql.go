package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/google/uuid"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

const userColumns = `id, google_id, email, name, picture, password_hash,
		 terms_accepted, terms_accepted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var acceptedAt sql.NullTime
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Picture, &u.PasswordHash,
		&u.TermsAccepted, &acceptedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		u.TermsAcceptedAt = &t
	}
	return u, nil
}

// Create inserts user, filling in ID and timestamps when they are zero.
// A duplicate external id or email yields common.ErrorAlreadyExists.
func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.ExternalID, user.Email, user.Name, user.Picture, user.PasswordHash,
		user.TermsAccepted, user.TermsAcceptedAt, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE google_id = $1
		 `
	return r.getOne(ctx, query, externalID)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// UpdateProfile overwrites the provider-sourced profile fields.
func (r *SQLRepository) UpdateProfile(ctx context.Context, id, email, name, picture string) error {
	query :=
		`UPDATE users SET email = $1, name = $2, picture = $3, updated_at = $4
		 WHERE id = $5
		 `

	res, err := r.db.ExecContext(ctx, query, email, name, picture, time.Now().UTC(), id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) AcceptTerms(ctx context.Context, id string, at time.Time) (bool, error) {
	query :=
		`UPDATE users SET terms_accepted = $1, terms_accepted_at = $2, updated_at = $3
		 WHERE id = $4 AND terms_accepted = $5
		 `

	res, err := r.db.ExecContext(ctx, query, true, at, at, id, false)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
