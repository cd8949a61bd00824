// Package recurrence materializes recurring task templates: it expands a
// template's recurrence rule into a queue of dates and clones the template
// into real tasks when those dates come due.
package recurrence

import (
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/models"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

// DefaultHorizon caps queue expansion for rules with no COUNT or UNTIL bound.
const DefaultHorizon = 365 * 24 * time.Hour

// ExpandRule expands an iCal RRULE expression into concrete dates starting
// at firstRun. Unbounded rules are capped at horizon past firstRun.
func ExpandRule(rule string, firstRun time.Time, horizon time.Duration) ([]time.Time, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, faults.Validation("recurring_rule", fmt.Sprintf("invalid rule: %v", err))
	}
	opt.Dtstart = firstRun

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, faults.Validation("recurring_rule", fmt.Sprintf("invalid rule: %v", err))
	}

	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		return r.Between(firstRun, firstRun.Add(horizon), true), nil
	}
	return r.All(), nil
}

// PopulateQueue expands a template's recurrence rule and rebuilds its
// materialization queue. Rows already materialized (created_task set) are
// never touched; everything else is deleted and repopulated.
func PopulateQueue(db *gorm.DB, templateID string, horizon time.Duration) error {
	var template models.Task
	if err := db.Where("id = ?", templateID).First(&template).Error; err != nil {
		return fmt.Errorf("recurrence: template not found: %s", templateID)
	}
	if !template.IsRecurring() || template.RecurringFirstRun == nil {
		return faults.Validation("recurring_rule", fmt.Sprintf("task %s is not a recurring template", templateID))
	}

	dates, err := ExpandRule(*template.RecurringRule, *template.RecurringFirstRun, horizon)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ? AND created_task_id IS NULL", templateID).
			Delete(&models.RecurringTaskDate{}).Error; err != nil {
			return fmt.Errorf("recurrence: clear queue for %s: %w", templateID, err)
		}

		var materialized []time.Time
		if err := tx.Model(&models.RecurringTaskDate{}).
			Where("template_id = ? AND created_task_id IS NOT NULL", templateID).
			Pluck("recurring_at", &materialized).Error; err != nil {
			return fmt.Errorf("recurrence: load materialized dates for %s: %w", templateID, err)
		}
		done := make(map[string]bool, len(materialized))
		for _, d := range materialized {
			done[dateKey(d)] = true
		}

		for _, d := range dates {
			day := truncateToDay(d)
			if done[dateKey(day)] {
				continue
			}
			row := models.RecurringTaskDate{
				TemplateID:  templateID,
				RecurringAt: day,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("recurrence: queue %s for %s: %w", dateKey(day), templateID, err)
			}
		}
		return nil
	})
}

// StopRecurring drops every not-yet-materialized queue row for a template.
// Materialized occurrences are untouched.
func StopRecurring(db *gorm.DB, templateID string) error {
	result := db.Where("template_id = ? AND created_task_id IS NULL", templateID).
		Delete(&models.RecurringTaskDate{})
	if result.Error != nil {
		return fmt.Errorf("recurrence: stop %s: %w", templateID, result.Error)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
