package server

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Daskott/guardian/server/gstorage"
	"github.com/Daskott/guardian/server/models"
	"github.com/Daskott/guardian/shared"
	"github.com/Daskott/guardian/utils"
	"gorm.io/gorm"
)

const BACKUP_TIMEOUT = 5 * time.Minute

// sqliteBackup keeps the local sqlite file in sync with a copy in Google
// Cloud Storage.
type sqliteBackup struct {
	storage *gstorage.GStorage
	bucket  string
	object  string
	dbFile  string
	db      *gorm.DB
}

// newSqliteBackup returns nil when backups are disabled.
func newSqliteBackup(config shared.GoogleConfig, configDir string) (*sqliteBackup, error) {
	if !config.Storage.EnableSqliteBackupAndSync {
		return nil, nil
	}

	dbFile, err := models.DbFilePath(configDir)
	if err != nil {
		return nil, err
	}

	storage, err := gstorage.NewGStorage(context.Background(), config.ApplicationCredentials)
	if err != nil {
		return nil, err
	}

	return &sqliteBackup{
		storage: storage,
		bucket:  config.Storage.Bucket,
		object:  path.Join(config.Storage.Prefix, models.DB_NAME),
		dbFile:  dbFile,
	}, nil
}

// restore pulls the last backup when there is no local database yet.
func (backup *sqliteBackup) restore() {
	if utils.FileExist(backup.dbFile) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), BACKUP_TIMEOUT)
	defer cancel()

	err := backup.storage.DownloadFile(ctx, backup.bucket, backup.object, backup.dbFile)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Infof("No sqlite backup found at %v/%v, starting with an empty database", backup.bucket, backup.object)
		return
	}
	if err != nil {
		logg.Errorf("Unable to restore sqlite backup: %v", err)
	}
}

// run uploads a consistent snapshot of the live database.
func (backup *sqliteBackup) run() {
	if backup.db == nil {
		return
	}

	snapshot, err := snapshotSqliteDb(backup.db, filepath.Dir(backup.dbFile))
	if err != nil {
		logg.Errorf("Unable to snapshot sqlite db: %v", err)
		return
	}
	defer os.Remove(snapshot)

	ctx, cancel := context.WithTimeout(context.Background(), BACKUP_TIMEOUT)
	defer cancel()

	if err = backup.storage.UploadFile(ctx, backup.bucket, backup.object, snapshot); err != nil {
		logg.Errorf("Unable to upload sqlite backup: %v", err)
	}
}

// snapshotSqliteDb writes a copy of db into dir and returns its path.
func snapshotSqliteDb(db *gorm.DB, dir string) (string, error) {
	snapshot := filepath.Join(dir, "snapshot-"+models.DB_NAME)
	if err := os.Remove(snapshot); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := db.Exec("VACUUM INTO ?", snapshot).Error; err != nil {
		return "", err
	}

	return snapshot, nil
}
