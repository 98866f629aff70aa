package persistence

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestMigrationFiles_SortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "002_b.sql", "SELECT 2")
	writeMigration(t, dir, "001_a.sql", "SELECT 1")
	writeMigration(t, dir, "README.md", "notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_a.sql", "CREATE TABLE a (id INT)")
	writeMigration(t, dir, "002_b.sql", "CREATE TABLE b (id INT)")

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lookup := regexp.QuoteMeta("SELECT name FROM schema_migrations WHERE name=$1")
	record := regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES ($1)")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(lookup).WithArgs("001_a.sql").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("001_a.sql"))
	mock.ExpectQuery(lookup).WithArgs("002_b.sql").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(record).WithArgs("002_b.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, RunMigrations(context.Background(), mock, dir, zap.NewNop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_MissingDir(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = RunMigrations(context.Background(), mock, filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	assert.Error(t, err)
}
