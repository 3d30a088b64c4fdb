package models

import (
	"errors"
	"fmt"

	sqlite "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/suraksha-app/suraksha/server/logger"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var (
	db   *gorm.DB
	logg = logger.NewLogger()
)

// Initialize opens(or creates) the encrypted sqlite database at dbPath
// & migrates the schema.
func Initialize(dbPath, passPhrase string) error {
	dsn := fmt.Sprintf("%v?_pragma_key=%v&_pragma_cipher_page_size=4096", dbPath, passPhrase)
	return initialize(dsn)
}

// InitializeTestDb points the package at a throwaway in-memory database.
// Each call starts from a clean schema.
func InitializeTestDb() {
	err := initialize("file::memory:?cache=shared")
	if err != nil {
		logg.Panic(err)
	}

	// Clear out data from previous tests, migrations are additive
	db.Exec("DELETE FROM contacts")
	db.Exec("DELETE FROM alerts")
	db.Exec("DELETE FROM jobs")
	db.Exec("DELETE FROM users")
}

func initialize(dsn string) error {
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("unable to open database: %v", err)
	}

	db = conn
	return autoMigrate()
}

func autoMigrate() error {
	err := db.AutoMigrate(&JobStatus{}, &Job{}, &User{}, &Contact{}, &Alert{})
	if err != nil {
		return err
	}

	// Seed job statuses on first boot
	if err := db.First(&JobStatus{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&[]JobStatus{
			{Name: ENQUEUED_JOB},
			{Name: IN_PROGRESS_JOB},
			{Name: SUCCESSFUL_JOB},
			{Name: DEAD_JOB},
		}).Error
	}

	return nil
}
