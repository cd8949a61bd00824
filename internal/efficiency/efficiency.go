// Package efficiency derives the 0-100 composite efficiency metric from task
// priority, timeliness, and the latest accepted verification score.
package efficiency

import (
	"fmt"
	"math"
	"time"

	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// Component weights.
const (
	priorityWeight   = 0.10
	timelinessWeight = 0.30
	scoreWeight      = 0.60
)

// Breakdown is the composite efficiency and its weighted components.
type Breakdown struct {
	Overall        float64
	FromPriority   float64
	FromTimeliness float64
	FromScore      float64
}

// Compute derives the efficiency breakdown. finish may be nil for a task
// that never completed; score is the latest accepted verification score, or
// 0 when none exists. It is a pure function: identical inputs yield an
// identical breakdown.
func Compute(priority string, finish *time.Time, deadline time.Time, score int) Breakdown {
	priorityScore := priorityPoints(priority)
	timelinessScore := timelinessPoints(finish, deadline)

	scoreComponent := 0.0
	if score > 0 {
		scoreComponent = float64(score) * 10
	}

	b := Breakdown{
		FromPriority:   round2(priorityWeight * priorityScore),
		FromTimeliness: round2(timelinessWeight * timelinessScore),
		FromScore:      round2(scoreWeight * scoreComponent),
	}
	b.Overall = round2(priorityWeight*priorityScore + timelinessWeight*timelinessScore + scoreWeight*scoreComponent)
	return b
}

// Recalculate recomputes and persists the efficiency columns for an
// association from the task's timing and the given accepted score. It always
// recomputes from scratch: a later round's score supersedes the earlier one.
func Recalculate(db *gorm.DB, assocID uint, task *models.Task, score int) (Breakdown, error) {
	b := Compute(task.Priority, task.Finish, task.Deadline, score)
	err := db.Model(&models.TaskAssociation{}).Where("id = ?", assocID).Updates(map[string]interface{}{
		"efficiency":               b.Overall,
		"efficiency_from_priority": b.FromPriority,
		"efficiency_from_timely":   b.FromTimeliness,
		"efficiency_from_score":    b.FromScore,
	}).Error
	if err != nil {
		return Breakdown{}, fmt.Errorf("efficiency: persist for association %d: %w", assocID, err)
	}
	return b, nil
}

// priorityPoints maps priority to its raw score.
func priorityPoints(priority string) float64 {
	switch priority {
	case models.PriorityCritical:
		return 60
	case models.PriorityMajor:
		return 30
	default:
		return 10
	}
}

// timelinessPoints starts at 100 and deducts 10 per whole day of delay,
// capped at 100. Undelayed tasks keep 100.
func timelinessPoints(finish *time.Time, deadline time.Time) float64 {
	if finish == nil || !finish.After(deadline) {
		return 100
	}
	delayDays := math.Floor(finish.Sub(deadline).Hours() / 24)
	if delayDays < 1 {
		return 100
	}
	deduction := delayDays * 10
	if deduction > 100 {
		deduction = 100
	}
	return 100 - deduction
}

// round2 rounds half away from zero to 2 decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
