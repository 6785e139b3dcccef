package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophlink/internal/dbx"
	"github.com/dmitrijs2005/gophlink/internal/server/migrations"
	"github.com/dmitrijs2005/gophlink/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RunMigrations applies the embedded postgres migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runGoose(ctx, db, migrations.Postgres, "pgx", "postgres")
}
