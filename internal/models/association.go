package models

import "time"

// Association roles.
const (
	RoleResponsible = "responsible"
	RoleObserver    = "observer"
)

// Verification cycle statuses for an association.
const (
	CycleApprovalPending    = "approval_pending"
	CycleScoreNotProvided   = "score_not_provided"
	CycleAcknowledgePending = "acknowledge_pending"
	CycleAcknowledged       = "acknowledged"
	CycleNotAcknowledged    = "not_acknowledged"
	CycleForwardedToHR      = "forwarded_to_hr"
	CycleApprovedByHR       = "approved_by_hr"
)

// TaskAssociation links a user to a task as responsible person or observer.
// ReadOnly marks associations propagated down from an ancestor task; those
// cannot be unilaterally removed at the descendant level, only demoted from
// responsible to observer.
type TaskAssociation struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	TaskID string `gorm:"size:32;uniqueIndex:idx_task_user;not null"`
	UserID string `gorm:"size:64;uniqueIndex:idx_task_user;not null"`
	Role   string `gorm:"size:18;not null"`

	ReadOnly    bool   `gorm:"default:false"`
	CycleStatus string `gorm:"size:32;default:approval_pending;index"`

	// JSON-encoded list of core-task IDs backing a responsible assignment.
	CoreTasks string `gorm:"type:json"`

	Efficiency             *float64
	EfficiencyFromPriority *float64
	EfficiencyFromTimely   *float64
	EfficiencyFromScore    *float64

	CreatedAt time.Time
	UpdatedAt time.Time

	Task   Task                    `gorm:"foreignKey:TaskID"`
	Scores []TaskVerificationScore `gorm:"foreignKey:AssociationID;constraint:OnDelete:CASCADE"`
}

// TaskVerificationScore is one round of the scoring/acknowledgment cycle.
// The count of rows per association is the round number. Ack is tri-state:
// nil while the responsible person's response is pending, true on accept,
// false on decline (AckRemarks required).
type TaskVerificationScore struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	AssociationID uint   `gorm:"index;not null"`
	Score         int    `gorm:"not null"`
	Remarks       string `gorm:"type:text"`
	Ack           *bool
	AckRemarks    string `gorm:"type:text"`
	AckAt         *time.Time
	CreatedBy     string `gorm:"size:64"`
	CreatedAt     time.Time
}
