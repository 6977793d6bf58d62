package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db), mock, db
}

var columns = []string{"id", "google_id", "email", "name", "picture", "password_hash",
	"terms_accepted", "terms_accepted_at", "created_at", "updated_at"}

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*google_id,.*updated_at\)\s*VALUES\s*\(\$1,.*\$10\)\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs(sqlmock.AnyArg(), "g-1", "a@example.com", "Alice", "", "hash",
			false, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ExternalID: "g-1", Email: "a@example.com", Name: "Alice", PasswordHash: "hash"}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{ExternalID: "g-1"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ExternalID: "g-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByExternalID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*google_id,.*FROM\s+users\s+WHERE\s+google_id\s*=\s*\$1\s*$`

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	accepted := created.Add(time.Hour)
	rows := sqlmock.NewRows(columns).
		AddRow("u-1", "g-1", "a@example.com", "Alice", "pic", "hash", true, accepted, created, accepted)
	mock.ExpectQuery(q).WithArgs("g-1").WillReturnRows(rows)

	got, err := repo.GetByExternalID(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "g-1", got.ExternalID)
	assert.True(t, got.TermsAccepted)
	require.NotNil(t, got.TermsAcceptedAt)
	assert.True(t, got.TermsAcceptedAt.Equal(accepted))
}

func TestGetByID_NullAcceptedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	now := time.Now().UTC()
	rows := sqlmock.NewRows(columns).
		AddRow("u-1", "g-1", "a@example.com", "Alice", "", "hash", false, nil, now, now)
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, got.TermsAccepted)
	assert.Nil(t, got.TermsAcceptedAt)
}

func TestGetByExternalID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByExternalID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users`).
		WithArgs("u-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+email\s*=\s*\$1,\s*name\s*=\s*\$2,\s*picture\s*=\s*\$3,\s*updated_at\s*=\s*\$4\s+WHERE\s+id\s*=\s*\$5\s*$`

	t.Run("updated", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).
			WithArgs("b@example.com", "Bob", "pic", sqlmock.AnyArg(), "u-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateProfile(context.Background(), "u-1", "b@example.com", "Bob", "pic"))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateProfile(context.Background(), "u-x", "b@example.com", "Bob", "pic")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestAcceptTerms(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+terms_accepted\s*=\s*\$1,.*WHERE\s+id\s*=\s*\$4\s+AND\s+terms_accepted\s*=\s*\$5\s*$`
	at := time.Now().UTC()

	t.Run("changed", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).
			WithArgs(true, at, at, "u-1", false).
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.AcceptTerms(context.Background(), "u-1", at)
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("already accepted", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := repo.AcceptTerms(context.Background(), "u-1", at)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnError(errors.New("db err"))

		_, err := repo.AcceptTerms(context.Background(), "u-1", at)
		require.Error(t, err)
	})
}
