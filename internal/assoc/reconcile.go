// Package assoc reconciles who is responsible for or observing a task,
// propagating observer visibility down the task tree.
package assoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/activity"
	"github.com/openhrms/taskcycle/internal/directory"
	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/models"
	"github.com/openhrms/taskcycle/internal/notify"
	"github.com/openhrms/taskcycle/internal/tasktree"
	"gorm.io/gorm"
)

// Assignment is one desired association in a reconcile call.
type Assignment struct {
	UserID    string
	CoreTasks []string // required non-empty for responsible assignments
}

// Deps bundles the external collaborators the reconciler consumes.
type Deps struct {
	Directory directory.Directory
	Notifier  notify.Sink
}

// SetResponsible reconciles the responsible persons of a task against the
// desired set. Removed users holding an inherited (read-only) association are
// demoted to observer instead of deleted; newly added users gain a read-only
// observer association on every descendant task that lacks one.
func SetResponsible(db *gorm.DB, deps Deps, taskID string, desired []Assignment) error {
	return reconcile(db, deps, taskID, models.RoleResponsible, desired)
}

// SetObservers reconciles the observers of a task against the desired set.
func SetObservers(db *gorm.DB, deps Deps, taskID string, desired []Assignment) error {
	return reconcile(db, deps, taskID, models.RoleObserver, desired)
}

// pendingEvent is a notification deferred until the reconcile transaction
// commits.
type pendingEvent struct {
	userID string
	text   string
}

func reconcile(db *gorm.DB, deps Deps, taskID, role string, desired []Assignment) error {
	task, err := tasktree.Get(db, taskID)
	if err != nil {
		return err
	}
	if err := requireUnleased(task); err != nil {
		return err
	}
	if err := validateDesired(deps, task, role, desired); err != nil {
		return err
	}

	present := make(map[string]Assignment, len(desired))
	for _, a := range desired {
		present[a.UserID] = a
	}

	var events []pendingEvent
	err = db.Transaction(func(tx *gorm.DB) error {
		var current []models.TaskAssociation
		if err := tx.Where("task_id = ? AND role = ?", taskID, role).Find(&current).Error; err != nil {
			return fmt.Errorf("assoc: load current: %w", err)
		}

		for _, existing := range current {
			if _, keep := present[existing.UserID]; keep {
				continue
			}
			ev, err := remove(tx, task, existing, role)
			if err != nil {
				return err
			}
			if ev != nil {
				events = append(events, *ev)
			}
		}

		descendants, err := tasktree.Descendants(tx, taskID)
		if err != nil {
			return err
		}

		for _, a := range desired {
			ev, err := upsert(tx, task, role, a, descendants)
			if err != nil {
				return err
			}
			if ev != nil {
				events = append(events, *ev)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Templates never notify; their associations only matter at
	// materialization time.
	if deps.Notifier != nil && !task.IsRecurring() {
		link := fmt.Sprintf("/user/task/my/%s/detail", taskID)
		for _, ev := range events {
			deps.Notifier.Notify(notify.Event{
				Recipients: []string{ev.userID},
				Text:       ev.text,
				DeepLink:   link,
				Actor:      task.CreatedBy,
			})
		}
	}
	return nil
}

// remove handles one association dropped from the desired set. An inherited
// association cannot be fully severed at the descendant level, so it is
// demoted in place; a direct association is deleted along with the user's
// propagated associations below, sparing directly-assigned responsibilities.
func remove(tx *gorm.DB, task *models.Task, existing models.TaskAssociation, role string) (*pendingEvent, error) {
	if existing.ReadOnly {
		if role == models.RoleResponsible {
			if err := tx.Model(&models.TaskAssociation{}).Where("id = ?", existing.ID).
				Update("role", models.RoleObserver).Error; err != nil {
				return nil, fmt.Errorf("assoc: demote %s: %w", existing.UserID, err)
			}
			activity.Record(tx, task.ID, "association",
				fmt.Sprintf("Demoted %s from responsible person to observer", existing.UserID),
				models.RoleResponsible, models.RoleObserver, task.CreatedBy)
		}
		// An inherited observer stays; only its ancestor can remove it.
		return nil, nil
	}

	if err := tx.Delete(&models.TaskAssociation{}, existing.ID).Error; err != nil {
		return nil, fmt.Errorf("assoc: delete %s: %w", existing.UserID, err)
	}

	descendants, err := tasktree.Descendants(tx, task.ID)
	if err != nil {
		return nil, err
	}
	if len(descendants) > 0 {
		// A directly-assigned lower-level responsibility survives removal at
		// the ancestor.
		if err := tx.Where("task_id IN ? AND user_id = ? AND role != ?",
			descendants, existing.UserID, models.RoleResponsible).
			Delete(&models.TaskAssociation{}).Error; err != nil {
			return nil, fmt.Errorf("assoc: delete descendants of %s: %w", existing.UserID, err)
		}
	}

	activity.Record(tx, task.ID, "association",
		fmt.Sprintf("Removed %s from %s", existing.UserID, roleLabel(role)),
		existing.UserID, "", task.CreatedBy)

	return &pendingEvent{
		userID: existing.UserID,
		text:   fmt.Sprintf("You have been removed from task %q", task.Title),
	}, nil
}

// upsert applies one desired association. Only a newly created association
// propagates read-only observer visibility to the descendants.
func upsert(tx *gorm.DB, task *models.Task, role string, a Assignment, descendants []string) (*pendingEvent, error) {
	coreTasks, err := encodeCoreTasks(a.CoreTasks)
	if err != nil {
		return nil, err
	}

	var existing models.TaskAssociation
	err = tx.Where("task_id = ? AND user_id = ?", task.ID, a.UserID).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{"role": role}
		if role == models.RoleResponsible {
			updates["core_tasks"] = coreTasks
		}
		if err := tx.Model(&models.TaskAssociation{}).Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("assoc: update %s: %w", a.UserID, err)
		}
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assoc: lookup %s: %w", a.UserID, err)
	}

	created := models.TaskAssociation{
		TaskID:      task.ID,
		UserID:      a.UserID,
		Role:        role,
		CycleStatus: models.CycleApprovalPending,
	}
	if role == models.RoleResponsible {
		created.CoreTasks = coreTasks
	}
	if err := tx.Create(&created).Error; err != nil {
		return nil, fmt.Errorf("assoc: create %s: %w", a.UserID, err)
	}

	for _, descID := range descendants {
		var count int64
		if err := tx.Model(&models.TaskAssociation{}).
			Where("task_id = ? AND user_id = ?", descID, a.UserID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("assoc: check descendant %s: %w", descID, err)
		}
		if count > 0 {
			continue
		}
		propagated := models.TaskAssociation{
			TaskID:      descID,
			UserID:      a.UserID,
			Role:        models.RoleObserver,
			ReadOnly:    true,
			CycleStatus: models.CycleApprovalPending,
		}
		if err := tx.Create(&propagated).Error; err != nil {
			return nil, fmt.Errorf("assoc: propagate to %s: %w", descID, err)
		}
	}

	activity.Record(tx, task.ID, "association",
		fmt.Sprintf("Added %s as %s", a.UserID, roleLabel(role)),
		"", a.UserID, task.CreatedBy)

	text := fmt.Sprintf("Task %q has been assigned to you", task.Title)
	if role == models.RoleObserver {
		text = fmt.Sprintf("You have been added as observer to task %q", task.Title)
	}
	return &pendingEvent{userID: a.UserID, text: text}, nil
}

func validateDesired(deps Deps, task *models.Task, role string, desired []Assignment) error {
	seen := make(map[string]bool, len(desired))
	for _, a := range desired {
		if a.UserID == "" {
			return faults.Validation("user", "is required")
		}
		if seen[a.UserID] {
			return faults.Validation("user", fmt.Sprintf("duplicate user %s in request", a.UserID))
		}
		seen[a.UserID] = true

		if role != models.RoleResponsible {
			continue
		}
		if a.UserID == task.CreatedBy {
			return faults.Validation("user", "task creator cannot be a responsible person of their own task")
		}
		if len(a.CoreTasks) == 0 {
			return faults.Validation("core_tasks", fmt.Sprintf("required for responsible person %s", a.UserID))
		}
		if deps.Directory != nil {
			allowed := make(map[string]bool)
			for _, ct := range deps.Directory.CoreTasks(a.UserID) {
				allowed[ct] = true
			}
			for _, ct := range a.CoreTasks {
				if !allowed[ct] {
					return faults.Validation("core_tasks",
						fmt.Sprintf("core task %s does not belong to %s's active work experience", ct, a.UserID))
				}
			}
		}
	}
	return nil
}

func requireUnleased(task *models.Task) error {
	if task.LeaseOwner != "" && task.LeaseExpiresAt != nil {
		if task.LeaseExpiresAt.After(time.Now()) {
			return faults.Conflict(fmt.Sprintf("task %s is busy (held by %s)", task.ID, task.LeaseOwner))
		}
	}
	return nil
}

func encodeCoreTasks(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("assoc: encode core tasks: %w", err)
	}
	return string(data), nil
}

func roleLabel(role string) string {
	if role == models.RoleResponsible {
		return "responsible person"
	}
	return "observer"
}
