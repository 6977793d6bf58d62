// Package repomanager provides a RepositoryManager for the supported SQL
// dialects, wiring together repository constructors, connection setup and
// database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/server/migrations"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends repositories whose queries are rebound for
// its dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// NewSQLRepositoryManager constructs a RepositoryManager for dialect d.
func NewSQLRepositoryManager(d dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

func (m *SQLRepositoryManager) Conversations(db dbx.DBTX) conversations.Repository {
	return conversations.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

func (m *SQLRepositoryManager) Favorites(db dbx.DBTX) favorites.Repository {
	return favorites.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, string(m.dialect)); err != nil {
		return err
	}
	return nil
}

// Open connects to dsn with the driver its dialect requires and verifies
// the connection. SQLite connections always enforce foreign keys.
func Open(ctx context.Context, dsn string) (*sql.DB, dbx.Dialect, error) {
	d := dbx.DialectFromDSN(dsn)
	if d == dbx.DialectSQLite {
		dsn = dbx.WithSQLiteForeignKeys(dsn)
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, d, fmt.Errorf("db open error: %w", err)
	}

	if d == dbx.DialectSQLite {
		// SQLite allows a single writer; one connection also keeps
		// in-memory databases alive across calls.
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, d, fmt.Errorf("db ping error: %w", err)
	}

	return db, d, nil
}
