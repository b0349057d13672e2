// Package dbtest opens throwaway migrated SQLite stores for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/db"
)

func New(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gatekeeper.db")
	database, err := db.Init("sqlite", path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)

	err = db.RunMigrations(database.DB, "sqlite")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}
