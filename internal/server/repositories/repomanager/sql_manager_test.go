package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewSQLRepositoryManager_ImplementsInterface(t *testing.T) {
	var m RepositoryManager = NewSQLRepositoryManager(dbx.DialectSQLite)
	assert.NotNil(t, m)
}

func TestFactories_ReturnRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	for _, d := range []dbx.Dialect{dbx.DialectSQLite, dbx.DialectPostgres} {
		m := NewSQLRepositoryManager(d)
		assert.Equal(t, d, m.Dialect())

		var _ users.Repository = m.Users(db)
		var _ refreshtokens.Repository = m.RefreshTokens(db)
		var _ conversations.Repository = m.Conversations(db)
		var _ favorites.Repository = m.Favorites(db)
	}
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	for _, d := range []dbx.Dialect{dbx.DialectSQLite, dbx.DialectPostgres} {
		var gotDir string
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			gotDir = dir
			return nil
		}

		require.NoError(t, NewSQLRepositoryManager(d).RunMigrations(context.Background(), db))
		assert.Equal(t, string(d), gotDir)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err := NewSQLRepositoryManager(dbx.DialectSQLite).RunMigrations(context.Background(), db)
	require.EqualError(t, err, "boom")
}

func TestOpenAndMigrate_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "rb.db") + "?_pragma=foreign_keys(1)"

	db, d, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, dbx.DialectSQLite, d)

	m := NewSQLRepositoryManager(d)
	require.NoError(t, m.RunMigrations(ctx, db))
	// idempotent
	require.NoError(t, m.RunMigrations(ctx, db))

	for _, table := range []string{"users", "favorite_recipes", "conversation_history", "refresh_tokens"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpen_SQLiteEnablesForeignKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for name, dsn := range map[string]string{
		"plain path":    filepath.Join(dir, "plain.db"),
		"file uri":      "file:" + filepath.Join(dir, "uri.db"),
		"other pragmas": "file:" + filepath.Join(dir, "wal.db") + "?_pragma=journal_mode(WAL)",
	} {
		t.Run(name, func(t *testing.T) {
			db, _, err := Open(ctx, dsn)
			require.NoError(t, err)
			defer db.Close()

			var on int
			require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on))
			assert.Equal(t, 1, on)
		})
	}
}
