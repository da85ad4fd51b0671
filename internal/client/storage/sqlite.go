package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/ace/internal/client/migrations"
	"github.com/dmitrijs2005/ace/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// busy_timeout lets concurrent client processes wait for each other's write
// transactions instead of failing with SQLITE_BUSY.
const dsnPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the storage file at path and applies
// migrations.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", path, dsnPragmas))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}
	return db, nil
}
