package db

import (
	"fmt"

	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Task{},
		&models.TaskAssociation{},
		&models.TaskVerificationScore{},
		&models.TaskCheckList{},
		&models.TaskAttachment{},
		&models.TaskActivity{},
		&models.RecurringTaskDate{},
		&models.BackgroundJob{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
