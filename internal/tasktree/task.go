// Package tasktree provides task lifecycle operations and tree traversal.
package tasktree

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	Title             string
	Description       string
	Priority          string // minor, major, critical
	ParentID          string
	CreatedBy         string
	StartsAt          time.Time
	Deadline          time.Time
	RecurringRule     string // non-empty makes the task a recurring template
	RecurringFirstRun time.Time
}

// ListFilters holds optional filters for listing tasks. Templates are
// excluded from results unless IncludeTemplates is set.
type ListFilters struct {
	Status           string
	Priority         string
	ParentID         string
	CreatedBy        string
	UserID           string // any association
	IncludeTemplates bool
}

// ValidTransitions maps each task status to its valid next statuses.
var ValidTransitions = map[string][]string{
	models.StatusPending:    {models.StatusInProgress, models.StatusClosed, models.StatusOnHold},
	models.StatusInProgress: {models.StatusCompleted, models.StatusClosed, models.StatusOnHold},
	models.StatusCompleted:  {models.StatusClosed, models.StatusInProgress},
	models.StatusOnHold:     {models.StatusPending, models.StatusInProgress, models.StatusClosed},
	models.StatusClosed:     {},
}

// GenerateID creates a unique task ID in task-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tasktree: generate ID: %w", err)
	}
	return "task-" + hex.EncodeToString(b)[:5], nil
}

// Create creates a new task with an auto-generated ID.
func Create(db *gorm.DB, opts CreateOpts) (*models.Task, error) {
	if opts.Title == "" {
		return nil, faults.Validation("title", "is required")
	}
	if opts.Deadline.IsZero() {
		return nil, faults.Validation("deadline", "is required")
	}

	if opts.ParentID != "" {
		var parent models.Task
		if err := db.Where("id = ?", opts.ParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, faults.Validation("parent", fmt.Sprintf("not found: %s", opts.ParentID))
			}
			return nil, fmt.Errorf("tasktree: check parent %s: %w", opts.ParentID, err)
		}
		if parent.IsRecurring() {
			return nil, faults.Validation("parent", "cannot create sub-task for a recurring template")
		}
	}

	if opts.Priority == "" {
		opts.Priority = models.PriorityMinor
	}
	if opts.StartsAt.IsZero() {
		opts.StartsAt = time.Now()
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		ID:          id,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      models.StatusPending,
		Priority:    opts.Priority,
		CreatedBy:   opts.CreatedBy,
		StartsAt:    opts.StartsAt,
		Deadline:    opts.Deadline,
	}
	if opts.ParentID != "" {
		task.ParentID = &opts.ParentID
	}
	if opts.RecurringRule != "" {
		rule := opts.RecurringRule
		firstRun := opts.RecurringFirstRun
		if firstRun.IsZero() {
			return nil, faults.Validation("recurring_first_run", "is required with a recurring rule")
		}
		task.RecurringRule = &rule
		task.RecurringFirstRun = &firstRun
	}

	if err := db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("tasktree: create: %w", err)
	}

	return &task, nil
}

// Get retrieves a task by ID, preloading its associations.
func Get(db *gorm.DB, id string) (*models.Task, error) {
	var task models.Task
	if err := db.Preload("Associations").Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tasktree: not found: %s", id)
		}
		return nil, fmt.Errorf("tasktree: get %s: %w", id, err)
	}
	return &task, nil
}

// List returns tasks matching the given filters, ordered by deadline.
func List(db *gorm.DB, filters ListFilters) ([]models.Task, error) {
	q := db.Model(&models.Task{})

	if !filters.IncludeTemplates {
		q = q.Where("recurring_rule IS NULL")
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}
	if filters.ParentID != "" {
		q = q.Where("parent_id = ?", filters.ParentID)
	}
	if filters.CreatedBy != "" {
		q = q.Where("created_by = ?", filters.CreatedBy)
	}
	if filters.UserID != "" {
		q = q.Where("id IN (?)", db.Model(&models.TaskAssociation{}).
			Select("task_id").Where("user_id = ?", filters.UserID))
	}

	var tasks []models.Task
	if err := q.Order("deadline ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("tasktree: list: %w", err)
	}
	return tasks, nil
}

// UpdateStatus transitions a task to a new status. The first transition into
// in_progress stamps Start; the transition into completed stamps Finish.
func UpdateStatus(db *gorm.DB, id, newStatus string) error {
	task, err := Get(db, id)
	if err != nil {
		return err
	}
	if err := requireUnleased(task); err != nil {
		return err
	}

	if !isValidTransition(task.Status, newStatus) {
		valid := ValidTransitions[task.Status]
		return faults.Validation("status",
			fmt.Sprintf("invalid transition from %q to %q; valid: %v", task.Status, newStatus, valid))
	}

	now := time.Now()
	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.StatusInProgress && task.Start == nil {
		updates["start"] = now
	}
	if newStatus == models.StatusCompleted {
		updates["finish"] = now
	}

	if err := db.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("tasktree: update %s: %w", id, err)
	}
	return nil
}

// isValidTransition checks whether a status transition is allowed.
func isValidTransition(from, to string) bool {
	valid, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == to {
			return true
		}
	}
	return false
}

// requireUnleased rejects mutation while a structural operation holds the
// task's lease.
func requireUnleased(task *models.Task) error {
	if task.LeaseOwner != "" && task.LeaseExpiresAt != nil && task.LeaseExpiresAt.After(time.Now()) {
		return faults.Conflict(fmt.Sprintf("task %s is busy (held by %s)", task.ID, task.LeaseOwner))
	}
	return nil
}

// generateUniqueID generates an ID and retries once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for i := 0; i < 2; i++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("tasktree: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("tasktree: failed to generate unique ID after retries")
}
