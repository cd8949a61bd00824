package models

import "time"

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusClosed     = "closed"
	StatusOnHold     = "on_hold"
)

// Task priorities.
const (
	PriorityMinor    = "minor"
	PriorityMajor    = "major"
	PriorityCritical = "critical"
)

// Task is the core work item. A task with RecurringRule set is a template:
// it is never worked on directly, only materialized into occurrences by the
// recurrence scheduler.
type Task struct {
	ID          string  `gorm:"primaryKey;size:32"`
	Title       string  `gorm:"not null"`
	Description string  `gorm:"type:text"`
	Status      string  `gorm:"size:16;default:pending;index"`
	Priority    string  `gorm:"size:9;default:minor"`
	ParentID    *string `gorm:"size:32;index"`
	CreatedBy   string  `gorm:"size:64;index"`

	StartsAt time.Time
	Deadline time.Time
	// Start and Finish record the first transition into in_progress and the
	// transition into completed respectively.
	Start  *time.Time
	Finish *time.Time

	Approved   bool `gorm:"default:false"`
	ApprovedAt *time.Time

	// Non-nil only on a template task. An instantiated occurrence always has
	// RecurringRule = nil.
	RecurringRule     *string `gorm:"type:text"`
	RecurringFirstRun *time.Time

	// Cooperative structural lock, held as a short-lived lease so a crashed
	// worker cannot freeze the task forever.
	LeaseOwner     string `gorm:"size:64"`
	LeaseExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Parent       *Task             `gorm:"foreignKey:ParentID"`
	Children     []Task            `gorm:"foreignKey:ParentID"`
	Associations []TaskAssociation `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CheckLists   []TaskCheckList   `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Attachments  []TaskAttachment  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// IsRecurring reports whether the task is a recurring template.
func (t *Task) IsRecurring() bool {
	return t.RecurringRule != nil && *t.RecurringRule != ""
}

// IsDelayed reports whether the task finished (or is running) past its deadline.
func (t *Task) IsDelayed(now time.Time) bool {
	if t.Finish != nil {
		return t.Finish.After(t.Deadline)
	}
	return now.After(t.Deadline)
}

// TaskCheckList is a single checklist item on a task.
type TaskCheckList struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	TaskID      string `gorm:"size:32;index;not null"`
	Title       string `gorm:"size:100;not null"`
	CompletedBy string `gorm:"size:64"`
	CompletedOn *time.Time
	Order       int `gorm:"column:item_order"`
	CreatedAt   time.Time
}

// TaskAttachment records attachment metadata. The bytes live in external
// storage outside this subsystem.
type TaskAttachment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TaskID    string `gorm:"size:32;index;not null"`
	FileName  string `gorm:"size:255;not null"`
	Caption   string `gorm:"size:200"`
	CreatedAt time.Time
}

// TaskActivity is an append-only audit entry for a task.
type TaskActivity struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	TaskID        string `gorm:"size:32;index;not null"`
	Key           string `gorm:"size:50"`
	Description   string `gorm:"type:text"`
	PreviousValue string `gorm:"type:text"`
	PresentValue  string `gorm:"type:text"`
	CreatedBy     string `gorm:"size:64"`
	CreatedAt     time.Time
}
