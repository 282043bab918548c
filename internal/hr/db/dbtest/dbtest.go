// Package dbtest opens throwaway SQLite-backed repositories for tests.
package dbtest

import (
	"testing"

	"github.com/gartstein/hr/internal/hr/db"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated repository over a private in-memory database.
func New(t testing.TB) *db.Repository {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err, "failed to open test database")

	// every pooled connection would see its own empty :memory: database
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo, err := db.New(gdb)
	require.NoError(t, err, "failed to migrate test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}
