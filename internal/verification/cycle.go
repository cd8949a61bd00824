// Package verification runs the bounded scoring/acknowledgment cycle between
// a task creator and each responsible person, escalating to HR when the round
// limit is exhausted without acceptance.
package verification

import (
	"errors"
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/activity"
	"github.com/openhrms/taskcycle/internal/efficiency"
	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/models"
	"github.com/openhrms/taskcycle/internal/notify"
	"gorm.io/gorm"
)

// DefaultMaxScoringCycles bounds the rounds per association before HR
// escalation.
const DefaultMaxScoringCycles = 2

// Deps bundles the collaborators and tuning of the cycle engine.
type Deps struct {
	Notifier         notify.Sink
	HRRecipients     func() []string
	MaxScoringCycles int
}

func (d Deps) maxCycles() int {
	if d.MaxScoringCycles > 0 {
		return d.MaxScoringCycles
	}
	return DefaultMaxScoringCycles
}

// RecordScore records a new verification round from the task creator against
// one responsible person. The insert, the sibling score_not_provided marking,
// and the cycle-status derivation happen in a single transaction.
func RecordScore(db *gorm.DB, deps Deps, taskID, userID string, score int, remarks, actor string) error {
	task, assoc, err := loadTarget(db, taskID, userID)
	if err != nil {
		return err
	}
	if err := requireUnleased(task); err != nil {
		return err
	}
	if task.Status != models.StatusCompleted {
		return faults.Conflict(fmt.Sprintf("task %s has not been completed yet", taskID))
	}
	if actor != task.CreatedBy {
		return faults.Validation("actor", "only the task creator may record a score")
	}
	if err := validateScore(score, remarks); err != nil {
		return err
	}

	var accepted, pending, total int64
	if err := countRounds(db, assoc.ID, &accepted, &pending, &total); err != nil {
		return err
	}
	if accepted > 0 {
		return faults.Validation("score", "previous score has already been acknowledged")
	}
	if pending > 0 {
		return faults.Validation("score", "previous score has not been acknowledged")
	}
	if int(total) >= deps.maxCycles() {
		return faults.Validation("score", "maximum scoring cycle limit reached")
	}

	forwarded := false
	err = db.Transaction(func(tx *gorm.DB) error {
		round := models.TaskVerificationScore{
			AssociationID: assoc.ID,
			Score:         score,
			Remarks:       remarks,
			CreatedBy:     actor,
		}
		if err := tx.Create(&round).Error; err != nil {
			return fmt.Errorf("verification: record score: %w", err)
		}

		fwd, err := applyTransition(tx, deps, task, assoc)
		if err != nil {
			return err
		}
		forwarded = fwd
		return nil
	})
	if err != nil {
		return err
	}

	activity.Record(db, taskID, "verification",
		fmt.Sprintf("Scored %s with %d", userID, score), "", fmt.Sprintf("%d", score), actor)
	notifyScore(deps, task, userID, forwarded)
	return nil
}

// RecordHRScore records an HR-initiated round beyond the normal limit. It is
// allowed only while the association is forwarded to HR; the round carries a
// pre-accepted acknowledgment, which lands the association in the terminal
// approved_by_hr state.
func RecordHRScore(db *gorm.DB, deps Deps, taskID, userID string, score int, remarks, actor string) error {
	task, assoc, err := loadTarget(db, taskID, userID)
	if err != nil {
		return err
	}
	if err := requireUnleased(task); err != nil {
		return err
	}
	if assoc.CycleStatus != models.CycleForwardedToHR {
		return faults.Conflict(fmt.Sprintf("association for %s is not forwarded to HR", userID))
	}
	if err := validateScore(score, remarks); err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		accepted := true
		round := models.TaskVerificationScore{
			AssociationID: assoc.ID,
			Score:         score,
			Remarks:       remarks,
			Ack:           &accepted,
			AckAt:         &now,
			CreatedBy:     actor,
		}
		if err := tx.Create(&round).Error; err != nil {
			return fmt.Errorf("verification: record HR score: %w", err)
		}

		if _, err := applyTransition(tx, deps, task, assoc); err != nil {
			return err
		}
		if _, err := efficiency.Recalculate(tx, assoc.ID, task, score); err != nil {
			return err
		}
		return approveTask(tx, task)
	})
	if err != nil {
		return err
	}

	activity.Record(db, taskID, "verification",
		fmt.Sprintf("HR scored %s with %d", userID, score), "", fmt.Sprintf("%d", score), actor)
	if deps.Notifier != nil {
		deps.Notifier.Notify(notify.Event{
			Recipients: []string{task.CreatedBy, userID},
			Text:       fmt.Sprintf("Task %q has been approved by HR", task.Title),
			DeepLink:   approvalsLink(),
			Actor:      actor,
		})
	}
	return nil
}

// Acknowledge records the responsible person's response to the pending round.
// Declining requires remarks and opens the door to another round up to the
// limit; accepting finalizes the round, recomputes efficiency, and approves
// the task if it was not approved yet.
func Acknowledge(db *gorm.DB, deps Deps, taskID, userID string, accept bool, remarks string) error {
	task, assoc, err := loadTarget(db, taskID, userID)
	if err != nil {
		return err
	}
	if err := requireUnleased(task); err != nil {
		return err
	}
	if !accept && remarks == "" {
		return faults.Validation("ack_remarks", "required when declining a score")
	}

	var round models.TaskVerificationScore
	err = db.Where("association_id = ? AND ack IS NULL", assoc.ID).First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return faults.Validation("ack", "no pending acknowledgement")
		}
		return fmt.Errorf("verification: load pending round: %w", err)
	}

	forwarded := false
	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.TaskVerificationScore{}).Where("id = ?", round.ID).
			Updates(map[string]interface{}{
				"ack":         accept,
				"ack_remarks": remarks,
				"ack_at":      now,
			}).Error; err != nil {
			return fmt.Errorf("verification: acknowledge round %d: %w", round.ID, err)
		}

		fwd, err := applyTransition(tx, deps, task, assoc)
		if err != nil {
			return err
		}
		forwarded = fwd

		if accept {
			if _, err := efficiency.Recalculate(tx, assoc.ID, task, round.Score); err != nil {
				return err
			}
			return approveTask(tx, task)
		}
		return nil
	})
	if err != nil {
		return err
	}

	verb := "declined"
	if accept {
		verb = "acknowledged"
	}
	activity.Record(db, taskID, "verification",
		fmt.Sprintf("%s %s the provided score", userID, verb), "", verb, userID)
	if deps.Notifier != nil {
		deps.Notifier.Notify(notify.Event{
			Recipients: []string{task.CreatedBy},
			Text:       fmt.Sprintf("Provided score for task %q has been %s", task.Title, verb),
			DeepLink:   approvalsLink(),
			Actor:      userID,
		})
		if forwarded {
			notifyForwarded(deps, task, userID)
		}
	}
	return nil
}

// applyTransition marks still-initial sibling responsible associations as
// score_not_provided and derives the association's own cycle status from its
// rounds. Runs inside the caller's transaction. Returns whether the
// association was forwarded to HR by this transition.
func applyTransition(tx *gorm.DB, deps Deps, task *models.Task, assoc *models.TaskAssociation) (bool, error) {
	settled := []string{
		models.CycleAcknowledgePending,
		models.CycleForwardedToHR,
		models.CycleApprovedByHR,
		models.CycleAcknowledged,
		models.CycleNotAcknowledged,
	}
	if err := tx.Model(&models.TaskAssociation{}).
		Where("task_id = ? AND id != ? AND role = ? AND cycle_status NOT IN ?",
			task.ID, assoc.ID, models.RoleResponsible, settled).
		Update("cycle_status", models.CycleScoreNotProvided).Error; err != nil {
		return false, fmt.Errorf("verification: mark siblings: %w", err)
	}

	var accepted, pending, total int64
	if err := countRounds(tx, assoc.ID, &accepted, &pending, &total); err != nil {
		return false, err
	}

	max := deps.maxCycles()
	var status string
	switch {
	case pending > 0:
		status = models.CycleAcknowledgePending
	case accepted > 0 && int(total) <= max:
		status = models.CycleAcknowledged
	case int(total) == max:
		status = models.CycleForwardedToHR
	case int(total) > max:
		status = models.CycleApprovedByHR
	default:
		status = models.CycleNotAcknowledged
	}

	if err := tx.Model(&models.TaskAssociation{}).Where("id = ?", assoc.ID).
		Update("cycle_status", status).Error; err != nil {
		return false, fmt.Errorf("verification: set cycle status: %w", err)
	}
	assoc.CycleStatus = status
	return status == models.CycleForwardedToHR, nil
}

// approveTask finalizes a task on its first accepted round.
func approveTask(tx *gorm.DB, task *models.Task) error {
	if task.Approved {
		return nil
	}
	now := time.Now()
	if err := tx.Model(&models.Task{}).Where("id = ? AND approved = ?", task.ID, false).
		Updates(map[string]interface{}{"approved": true, "approved_at": now}).Error; err != nil {
		return fmt.Errorf("verification: approve task %s: %w", task.ID, err)
	}
	task.Approved = true
	task.ApprovedAt = &now
	return nil
}

// GetEfficiency returns the stored efficiency breakdown for an association.
func GetEfficiency(db *gorm.DB, taskID, userID string) (efficiency.Breakdown, error) {
	_, assoc, err := loadTarget(db, taskID, userID)
	if err != nil {
		return efficiency.Breakdown{}, err
	}
	var b efficiency.Breakdown
	if assoc.Efficiency != nil {
		b.Overall = *assoc.Efficiency
	}
	if assoc.EfficiencyFromPriority != nil {
		b.FromPriority = *assoc.EfficiencyFromPriority
	}
	if assoc.EfficiencyFromTimely != nil {
		b.FromTimeliness = *assoc.EfficiencyFromTimely
	}
	if assoc.EfficiencyFromScore != nil {
		b.FromScore = *assoc.EfficiencyFromScore
	}
	return b, nil
}

func loadTarget(db *gorm.DB, taskID, userID string) (*models.Task, *models.TaskAssociation, error) {
	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("verification: task not found: %s", taskID)
		}
		return nil, nil, fmt.Errorf("verification: get task %s: %w", taskID, err)
	}

	var assoc models.TaskAssociation
	err := db.Where("task_id = ? AND user_id = ? AND role = ?",
		taskID, userID, models.RoleResponsible).First(&assoc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, faults.Validation("user",
				fmt.Sprintf("%s is not a responsible person of task %s", userID, taskID))
		}
		return nil, nil, fmt.Errorf("verification: get association: %w", err)
	}
	return &task, &assoc, nil
}

func countRounds(db *gorm.DB, assocID uint, accepted, pending, total *int64) error {
	if err := db.Model(&models.TaskVerificationScore{}).
		Where("association_id = ? AND ack = ?", assocID, true).Count(accepted).Error; err != nil {
		return fmt.Errorf("verification: count accepted rounds: %w", err)
	}
	if err := db.Model(&models.TaskVerificationScore{}).
		Where("association_id = ? AND ack IS NULL", assocID).Count(pending).Error; err != nil {
		return fmt.Errorf("verification: count pending rounds: %w", err)
	}
	if err := db.Model(&models.TaskVerificationScore{}).
		Where("association_id = ?", assocID).Count(total).Error; err != nil {
		return fmt.Errorf("verification: count rounds: %w", err)
	}
	return nil
}

func validateScore(score int, remarks string) error {
	if score < 1 || score > 10 {
		return faults.Validation("score", "must be between 1 and 10")
	}
	if remarks == "" {
		return faults.Validation("remarks", "is required")
	}
	return nil
}

func requireUnleased(task *models.Task) error {
	if task.LeaseOwner != "" && task.LeaseExpiresAt != nil && task.LeaseExpiresAt.After(time.Now()) {
		return faults.Conflict(fmt.Sprintf("task %s is busy (held by %s)", task.ID, task.LeaseOwner))
	}
	return nil
}

// notifyScore delivers the per-user score notification and, when the round
// limit was exhausted, the organization-wide HR escalation.
func notifyScore(deps Deps, task *models.Task, userID string, forwarded bool) {
	if deps.Notifier == nil {
		return
	}
	deps.Notifier.Notify(notify.Event{
		Recipients: []string{userID},
		Text:       fmt.Sprintf("Score has been provided by %s for task %q", task.CreatedBy, task.Title),
		DeepLink:   approvalsLink(),
		Actor:      task.CreatedBy,
	})
	if forwarded {
		notifyForwarded(deps, task, userID)
	}
}

// notifyForwarded fires the organization-wide escalation to task-approval
// permission holders.
func notifyForwarded(deps Deps, task *models.Task, userID string) {
	if deps.Notifier == nil {
		return
	}
	var recipients []string
	if deps.HRRecipients != nil {
		recipients = deps.HRRecipients()
	}
	deps.Notifier.NotifyOrganization(notify.Event{
		Recipients: recipients,
		Text: fmt.Sprintf("Task %q assigned by %s to %s has been forwarded to HR",
			task.Title, task.CreatedBy, userID),
		DeepLink: approvalsLink(),
		Actor:    task.CreatedBy,
	})
}

func approvalsLink() string {
	return "/user/task/approvals"
}
