package server

import (
	"testing"

	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSqliteDb(t *testing.T) {
	db := models.InitializeTestDb(t)
	models.CreateTestUser(t, db, "hulk@avengers.com")

	snapshot, err := snapshotSqliteDb(db, t.TempDir())
	require.NoError(t, err)

	copied, err := models.Open(models.SQLITE_DRIVER, "file:"+snapshot)
	require.NoError(t, err)
	defer models.Close(copied)

	var users int64
	require.NoError(t, copied.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestNewSqliteBackupDisabled(t *testing.T) {
	backup, err := newSqliteBackup(shared.GoogleConfig{}, t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, backup)
}
