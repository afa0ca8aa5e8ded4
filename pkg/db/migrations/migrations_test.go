package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllMigrationsApplyAndRollBack(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	runner := db.NewMigrationRunner(sqlDB)
	require.NoError(t, runner.Run(ctx, All()))

	var count int
	require.NoError(t, sqlDB.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='skill_invocations'`))
	assert.Equal(t, 1, count)

	pending, err := runner.Pending(ctx, All())
	require.NoError(t, err)
	assert.Empty(t, pending)

	for range All() {
		require.NoError(t, runner.Rollback(ctx, All()))
	}

	require.NoError(t, sqlDB.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='skill_invocations'`))
	assert.Equal(t, 0, count)
}
