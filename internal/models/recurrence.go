package models

import "time"

// RecurringTaskDate is one entry in a template's materialization queue.
// CreatedTaskID is set exactly once, on the day the scheduler materializes
// the occurrence for that date; rows with CreatedTaskID set are never touched
// again. Abandoned marks rows the scheduler gave up on because the template
// had no eligible assignee for too long.
type RecurringTaskDate struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	TemplateID    string    `gorm:"size:32;index;not null"`
	RecurringAt   time.Time `gorm:"index;not null"`
	CreatedTaskID *string   `gorm:"size:32;uniqueIndex"`
	Remarks       string    `gorm:"type:text"`
	LastTried     *time.Time
	Abandoned     bool `gorm:"default:false"`
	CreatedAt     time.Time

	Template    Task  `gorm:"foreignKey:TemplateID"`
	CreatedTask *Task `gorm:"foreignKey:CreatedTaskID"`
}
