package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophlink/internal/dbx"
	"github.com/dmitrijs2005/gophlink/internal/server/migrations"
	"github.com/dmitrijs2005/gophlink/internal/server/repositories/users"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends repositories over the embedded pure-Go SQLite driver.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runGoose(ctx, db, migrations.SQLite, "sqlite3", "sqlite")
}
