package server

import (
	"fmt"

	"github.com/suraksha-app/suraksha/server/gstorage"
	"github.com/suraksha-app/suraksha/server/work"
)

var dbFilePath string

// backupSqliteDb uploads the current db file to the configured bucket.
func backupSqliteDb(map[string]interface{}) error {
	gStorage, err := gstorage.NewGStorage(config.Google.ApplicationCredentials)
	if err != nil {
		return fmt.Errorf("backupSqliteDb: %v", err)
	}

	objectName := gstorage.ObjectName(config.Google.Storage.Prefix, DB_FILE_NAME)
	err = gStorage.UploadFile(config.Google.Storage.Bucket, objectName, dbFilePath)
	if err != nil {
		return fmt.Errorf("backupSqliteDb: %v", err)
	}

	logg.Infof("db backup uploaded to %v", objectName)
	return nil
}

// sosFollowUp retries delivery for an alert whose initial dispatch failed.
func sosFollowUp(args map[string]interface{}) error {
	alertID, _ := args["alert_id"].(string)
	if alertID == "" {
		return fmt.Errorf("sosFollowUp: alert_id is required")
	}

	return dispatcher.Resend(alertID)
}

func registerJobHandlers(wpa *work.WorkerPoolAdapter, dbPath string) {
	dbFilePath = dbPath

	wpa.Register("backupSqliteDb", backupSqliteDb)
	wpa.Register("sosFollowUp", sosFollowUp)
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) {
	if !backupEnabled() {
		return
	}

	wpa.PeriodicallyPerform(config.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    "backupSqliteDb",
		Handler: "backupSqliteDb",
		Unique:  true,
		Args:    map[string]interface{}{},
	})
}
