package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"monad-feedback-system/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Payment{},
		&models.Admin{},
		&models.Form{},
		&models.FormQuestion{},
		&models.FormResponse{},
		&models.Feedback{},
	); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	return db
}
