package sqlstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simaogato/billsplit-backend/internal/adapter/repository/contracttest"
)

// newSQLiteRepos migrates a fresh database file per test
func newSQLiteRepos(t *testing.T) (contracttest.Repos, contracttest.CleanupFunc) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billsplit.db")

	require.NoError(t, RunMigrations(DialectSQLite, path))
	db, err := Open(DialectSQLite, path)
	require.NoError(t, err)

	s := NewStore(db)
	return contracttest.Repos{Users: s.Users(), Groups: s.Groups(), Expenses: s.Expenses()}, func() {
		_ = s.Close()
	}
}

// newPostgresRepos runs against BILLSPLIT_TEST_POSTGRES_DSN and skips when it is unset
func newPostgresRepos(t *testing.T) (contracttest.Repos, contracttest.CleanupFunc) {
	t.Helper()
	dsn := os.Getenv("BILLSPLIT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BILLSPLIT_TEST_POSTGRES_DSN not set")
	}

	require.NoError(t, RunMigrations(DialectPostgres, dsn))
	db, err := Open(DialectPostgres, dsn)
	require.NoError(t, err)

	s := NewStore(db)
	return contracttest.Repos{Users: s.Users(), Groups: s.Groups(), Expenses: s.Expenses()}, func() {
		_, _ = db.Exec(`TRUNCATE expense_participants, expenses, group_members, expense_groups, users`)
		_ = s.Close()
	}
}

func TestContract_SQLite(t *testing.T) {
	t.Run("users", func(t *testing.T) { contracttest.RunUserRepo(t, newSQLiteRepos) })
	t.Run("groups", func(t *testing.T) { contracttest.RunGroupRepo(t, newSQLiteRepos) })
	t.Run("expenses", func(t *testing.T) { contracttest.RunExpenseRepo(t, newSQLiteRepos) })
}

func TestContract_Postgres(t *testing.T) {
	t.Run("users", func(t *testing.T) { contracttest.RunUserRepo(t, newPostgresRepos) })
	t.Run("groups", func(t *testing.T) { contracttest.RunGroupRepo(t, newPostgresRepos) })
	t.Run("expenses", func(t *testing.T) { contracttest.RunExpenseRepo(t, newPostgresRepos) })
}
