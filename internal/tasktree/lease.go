package tasktree

import (
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// DefaultLeaseTTL bounds how long a structural operation may hold a task
// before other writers treat the lease as expired.
const DefaultLeaseTTL = 5 * time.Minute

// AcquireLease takes the structural lease on a task via a conditional update.
// It succeeds only when the lease is free or expired, so a crashed holder
// blocks the task for at most ttl.
func AcquireLease(db *gorm.DB, taskID, owner string, ttl time.Duration) error {
	if owner == "" {
		return faults.Validation("owner", "is required")
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}

	now := time.Now()
	expires := now.Add(ttl)
	result := db.Model(&models.Task{}).
		Where("id = ? AND (lease_owner = '' OR lease_expires_at IS NULL OR lease_expires_at < ?)", taskID, now).
		Updates(map[string]interface{}{
			"lease_owner":      owner,
			"lease_expires_at": expires,
		})
	if result.Error != nil {
		return fmt.Errorf("tasktree: acquire lease on %s: %w", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err == nil && count == 0 {
			return fmt.Errorf("tasktree: not found: %s", taskID)
		}
		return faults.Conflict(fmt.Sprintf("task %s is busy", taskID))
	}
	return nil
}

// ReleaseLease clears the lease if owner still holds it. Releasing a lease
// another owner has since taken over is a no-op.
func ReleaseLease(db *gorm.DB, taskID, owner string) error {
	result := db.Model(&models.Task{}).
		Where("id = ? AND lease_owner = ?", taskID, owner).
		Updates(map[string]interface{}{
			"lease_owner":      "",
			"lease_expires_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("tasktree: release lease on %s: %w", taskID, result.Error)
	}
	return nil
}
