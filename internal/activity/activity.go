// Package activity records the append-only audit trail for tasks.
package activity

import (
	"log"
	"time"

	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// Record appends an activity entry for a task. Best-effort: failures are
// logged, never returned, so audit writes cannot roll back core operations.
func Record(db *gorm.DB, taskID, key, description, previous, present, actor string) {
	entry := models.TaskActivity{
		TaskID:        taskID,
		Key:           key,
		Description:   description,
		PreviousValue: previous,
		PresentValue:  present,
		CreatedBy:     actor,
		CreatedAt:     time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("activity: record %s on task %s: %v", key, taskID, err)
	}
}
