package recurrence

import (
	"fmt"
	"log"
	"time"

	"github.com/openhrms/taskcycle/internal/activity"
	"github.com/openhrms/taskcycle/internal/directory"
	"github.com/openhrms/taskcycle/internal/models"
	"github.com/openhrms/taskcycle/internal/tasktree"
	"gorm.io/gorm"
)

// DefaultAbandonAfter is how long a queue row may stay skipped for lack of
// an eligible assignee before it is abandoned.
const DefaultAbandonAfter = 7 * 24 * time.Hour

// Deps bundles the collaborators of the materialization job.
type Deps struct {
	Directory    directory.Directory
	AbandonAfter time.Duration
}

// Result summarizes one materialization run.
type Result struct {
	Created   int
	Skipped   int
	Abandoned int
	Failed    int
}

// RunDueRecurrences materializes every due, unmaterialized queue row as of
// today. It is idempotent: rows with created_task set are filtered out, so
// re-running the same day is a no-op. Each occurrence is cloned in its own
// transaction; a failure for one never blocks the others.
func RunDueRecurrences(db *gorm.DB, deps Deps, today time.Time) (Result, error) {
	var res Result
	day := truncateToDay(today)

	var due []models.RecurringTaskDate
	err := db.Where("created_task_id IS NULL AND abandoned = ? AND recurring_at <= ?", false, day).
		Order("recurring_at ASC, id ASC").Find(&due).Error
	if err != nil {
		return res, fmt.Errorf("recurrence: load due rows: %w", err)
	}

	abandonAfter := deps.AbandonAfter
	if abandonAfter <= 0 {
		abandonAfter = DefaultAbandonAfter
	}

	now := time.Now()
	for _, row := range due {
		created, err := materializeOne(db, deps, row, now)
		if err != nil {
			res.Failed++
			log.Printf("recurrence: materialize row %d (template %s): %v", row.ID, row.TemplateID, err)
			db.Model(&models.RecurringTaskDate{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
				"last_tried": now,
				"remarks":    err.Error(),
			})
			continue
		}
		if created {
			res.Created++
			continue
		}

		// No eligible assignee today. The row stays a candidate until it has
		// been due for longer than the abandon window.
		updates := map[string]interface{}{
			"last_tried": now,
			"remarks":    "no eligible responsible person",
		}
		if day.Sub(row.RecurringAt) > abandonAfter {
			updates["abandoned"] = true
			res.Abandoned++
		} else {
			res.Skipped++
		}
		db.Model(&models.RecurringTaskDate{}).Where("id = ?", row.ID).Updates(updates)
	}

	return res, nil
}

// materializeOne deep-clones the template for one due date. Returns false
// with nil error when the template has no eligible responsible person.
func materializeOne(db *gorm.DB, deps Deps, row models.RecurringTaskDate, now time.Time) (bool, error) {
	var template models.Task
	err := db.Preload("Associations").Preload("CheckLists").Preload("Attachments").
		Where("id = ?", row.TemplateID).First(&template).Error
	if err != nil {
		return false, fmt.Errorf("load template: %w", err)
	}

	if !hasEligibleResponsible(deps.Directory, template.Associations) {
		return false, nil
	}

	id, err := tasktree.GenerateID()
	if err != nil {
		return false, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		occurrence := models.Task{
			ID:          id,
			Title:       template.Title,
			Description: template.Description,
			Status:      models.StatusPending,
			Priority:    template.Priority,
			CreatedBy:   template.CreatedBy,
			StartsAt:    now,
			// Preserve the template's relative duration, not its absolute dates.
			Deadline: now.Add(template.Deadline.Sub(template.StartsAt)),
			Approved: false,
		}
		if err := tx.Create(&occurrence).Error; err != nil {
			return fmt.Errorf("create occurrence: %w", err)
		}

		for _, a := range template.Associations {
			if deps.Directory != nil && !deps.Directory.HasActiveAssignment(a.UserID) {
				continue
			}
			clone := models.TaskAssociation{
				TaskID:      id,
				UserID:      a.UserID,
				Role:        a.Role,
				CoreTasks:   a.CoreTasks,
				CycleStatus: models.CycleApprovalPending,
			}
			if err := tx.Create(&clone).Error; err != nil {
				return fmt.Errorf("clone association for %s: %w", a.UserID, err)
			}
		}

		for _, cl := range template.CheckLists {
			clone := models.TaskCheckList{
				TaskID: id,
				Title:  cl.Title,
				Order:  cl.Order,
			}
			if err := tx.Create(&clone).Error; err != nil {
				return fmt.Errorf("clone checklist %q: %w", cl.Title, err)
			}
		}

		for _, at := range template.Attachments {
			clone := models.TaskAttachment{
				TaskID:   id,
				FileName: at.FileName,
				Caption:  at.Caption,
			}
			if err := tx.Create(&clone).Error; err != nil {
				return fmt.Errorf("clone attachment %q: %w", at.FileName, err)
			}
		}

		result := tx.Model(&models.RecurringTaskDate{}).
			Where("id = ? AND created_task_id IS NULL", row.ID).
			Updates(map[string]interface{}{
				"created_task_id": id,
				"last_tried":      now,
				"remarks":         "",
			})
		if result.Error != nil {
			return fmt.Errorf("mark queue row: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Another run got here first; roll the clone back.
			return fmt.Errorf("queue row %d already materialized", row.ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	activity.Record(db, row.TemplateID, "recurrence",
		fmt.Sprintf("Materialized occurrence %s for %s", id, dateKey(row.RecurringAt)),
		"", id, "")
	return true, nil
}

func hasEligibleResponsible(dir directory.Directory, assocs []models.TaskAssociation) bool {
	for _, a := range assocs {
		if a.Role != models.RoleResponsible {
			continue
		}
		if dir == nil || dir.HasActiveAssignment(a.UserID) {
			return true
		}
	}
	return false
}
