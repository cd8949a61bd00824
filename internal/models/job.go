package models

import "time"

// Background job kinds.
const (
	JobDisassociate   = "disassociate"
	JobRunRecurrences = "run_recurrences"
)

// Background job statuses.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// BackgroundJob is one unit of asynchronous work handed from the request
// path to the worker daemon. Payload carries the task ID for task-scoped
// jobs.
type BackgroundJob struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Kind      string `gorm:"size:32;index;not null"`
	Payload   string `gorm:"size:255"`
	Status    string `gorm:"size:16;default:queued;index"`
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
