package testsupport

import (
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/database"
)

// NewSQLiteDB returns an isolated in-memory database with all migrations applied.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// Logger returns a logger that discards output.
func Logger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
