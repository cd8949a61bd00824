package tasktree

import (
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/activity"
	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// Disassociate severs a task from its parent tree. It runs on the background
// worker under the task's lease: while the lease is held every other mutating
// operation on the task rejects with a busy conflict.
//
// Associations that were propagated down from a now-severed ancestor
// (read_only) are removed from the detached subtree, except responsible
// associations, which become directly owned (read_only cleared) — a
// directly-carried responsibility survives the structural change.
func Disassociate(db *gorm.DB, taskID, owner string, ttl time.Duration) error {
	task, err := Get(db, taskID)
	if err != nil {
		return err
	}
	if task.ParentID == nil {
		return nil // already a root
	}

	if err := AcquireLease(db, taskID, owner, ttl); err != nil {
		return err
	}
	defer ReleaseLease(db, taskID, owner)

	ancestorUsers, err := ancestorAssociatedUsers(db, *task.ParentID)
	if err != nil {
		return err
	}

	subtree := []string{taskID}
	desc, err := Descendants(db, taskID)
	if err != nil {
		return err
	}
	subtree = append(subtree, desc...)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).
			Update("parent_id", nil).Error; err != nil {
			return fmt.Errorf("tasktree: detach %s: %w", taskID, err)
		}

		if len(ancestorUsers) == 0 {
			return nil
		}

		if err := tx.Where(
			"task_id IN ? AND user_id IN ? AND read_only = ? AND role != ?",
			subtree, ancestorUsers, true, models.RoleResponsible,
		).Delete(&models.TaskAssociation{}).Error; err != nil {
			return fmt.Errorf("tasktree: prune inherited associations: %w", err)
		}

		if err := tx.Model(&models.TaskAssociation{}).Where(
			"task_id IN ? AND user_id IN ? AND read_only = ? AND role = ?",
			subtree, ancestorUsers, true, models.RoleResponsible,
		).Update("read_only", false).Error; err != nil {
			return fmt.Errorf("tasktree: adopt responsible associations: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	activity.Record(db, taskID, "disassociate",
		fmt.Sprintf("Detached from parent %s", *task.ParentID), *task.ParentID, "", owner)
	return nil
}

// ancestorAssociatedUsers collects the user IDs holding any association on
// the parent chain starting at startID, walking upward with a visited set.
func ancestorAssociatedUsers(db *gorm.DB, startID string) ([]string, error) {
	visited := make(map[string]bool)
	var chain []string

	current := startID
	for current != "" && !visited[current] {
		visited[current] = true
		chain = append(chain, current)

		var task models.Task
		if err := db.Select("id, parent_id").Where("id = ?", current).First(&task).Error; err != nil {
			break
		}
		if task.ParentID == nil {
			break
		}
		current = *task.ParentID
	}

	if len(chain) == 0 {
		return nil, nil
	}

	var users []string
	if err := db.Model(&models.TaskAssociation{}).
		Distinct("user_id").Where("task_id IN ?", chain).
		Pluck("user_id", &users).Error; err != nil {
		return nil, fmt.Errorf("tasktree: ancestor users: %w", err)
	}
	return users, nil
}
