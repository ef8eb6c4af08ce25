package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func TestRunIsIdempotent(t *testing.T) {
	sqlDb, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer sqlDb.Close()

	manager := NewMigrationManager(sqlDb, DialectSQLite).WithLogger(zap.NewNop().Sugar())
	require.NoError(t, manager.Run())
	require.NoError(t, manager.Run())

	version, err := manager.GetCurrentVersion()
	require.NoError(t, err)
	require.Equal(t, len(GetMigrations()), version)

	_, err = sqlDb.Exec("INSERT INTO engine_state (document_id, state_key, value) VALUES (?, ?, ?)", "doc", "pending", "{}")
	require.NoError(t, err)
}
