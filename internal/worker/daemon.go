// Package worker runs the background side of the task engine: the job queue
// for structural operations and the scheduled recurrence materialization.
package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/openhrms/taskcycle/internal/config"
	"github.com/openhrms/taskcycle/internal/models"
	"github.com/openhrms/taskcycle/internal/recurrence"
	"github.com/openhrms/taskcycle/internal/tasktree"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// WorkerID is the owner name the daemon uses for task leases.
const WorkerID = "taskcycle-worker"

const defaultPollInterval = 30 * time.Second

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Deps bundles the collaborators of the worker.
type Deps struct {
	Recurrence recurrence.Deps
	LeaseTTL   time.Duration
}

// EnqueueDisassociate queues a structural disassociation job for the worker.
func EnqueueDisassociate(db *gorm.DB, taskID string) error {
	job := models.BackgroundJob{
		Kind:    models.JobDisassociate,
		Payload: taskID,
		Status:  models.JobQueued,
	}
	if err := db.Create(&job).Error; err != nil {
		return fmt.Errorf("worker: enqueue disassociate %s: %w", taskID, err)
	}
	return nil
}

// RunDaemon runs the worker loop: it drains the background job queue and
// fires the daily recurrence materialization on its cron schedule. It blocks
// until ctx is cancelled.
func RunDaemon(ctx context.Context, db *gorm.DB, cfg *config.Config, deps Deps, out io.Writer) error {
	if db == nil {
		return fmt.Errorf("worker: db is required")
	}
	if cfg == nil {
		return fmt.Errorf("worker: config is required")
	}
	if out == nil {
		out = io.Discard
	}

	pollInterval := time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	sched, err := cronParser.Parse(cfg.Recurrence.Cron)
	if err != nil {
		return fmt.Errorf("worker: parse recurrence cron %q: %w", cfg.Recurrence.Cron, err)
	}
	nextRun := sched.Next(time.Now())

	fmt.Fprintf(out, "Worker starting (poll every %s, next recurrence run %s)\n",
		pollInterval, nextRun.Format(time.RFC3339))

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "Worker stopped.\n")
			return nil
		default:
		}

		// Phase 1: drain queued jobs.
		if err := processJobs(db, deps, out); err != nil {
			log.Printf("worker: process jobs: %v", err)
		}

		// Phase 2: daily recurrence materialization.
		if now := time.Now(); !now.Before(nextRun) {
			runRecurrences(db, deps, now, out)
			nextRun = sched.Next(now)
			fmt.Fprintf(out, "Next recurrence run %s\n", nextRun.Format(time.RFC3339))
		}

		sleepWithContext(ctx, pollInterval)
	}
}

// processJobs claims and executes queued background jobs one at a time.
func processJobs(db *gorm.DB, deps Deps, out io.Writer) error {
	var jobs []models.BackgroundJob
	if err := db.Where("status = ?", models.JobQueued).
		Order("created_at ASC").Find(&jobs).Error; err != nil {
		return fmt.Errorf("load queued jobs: %w", err)
	}

	for _, job := range jobs {
		claim := db.Model(&models.BackgroundJob{}).
			Where("id = ? AND status = ?", job.ID, models.JobQueued).
			Update("status", models.JobRunning)
		if claim.Error != nil || claim.RowsAffected == 0 {
			continue
		}

		fmt.Fprintf(out, "Job %d (%s %s) running\n", job.ID, job.Kind, job.Payload)
		if err := runJob(db, deps, job); err != nil {
			log.Printf("worker: job %d (%s): %v", job.ID, job.Kind, err)
			db.Model(&models.BackgroundJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
				"status": models.JobFailed,
				"error":  err.Error(),
			})
			continue
		}
		db.Model(&models.BackgroundJob{}).Where("id = ?", job.ID).Update("status", models.JobDone)
	}
	return nil
}

func runJob(db *gorm.DB, deps Deps, job models.BackgroundJob) error {
	switch job.Kind {
	case models.JobDisassociate:
		return tasktree.Disassociate(db, job.Payload, WorkerID, deps.LeaseTTL)
	case models.JobRunRecurrences:
		_, err := recurrence.RunDueRecurrences(db, deps.Recurrence, time.Now())
		return err
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func runRecurrences(db *gorm.DB, deps Deps, now time.Time, out io.Writer) {
	res, err := recurrence.RunDueRecurrences(db, deps.Recurrence, now)
	if err != nil {
		log.Printf("worker: recurrence run: %v", err)
		return
	}
	fmt.Fprintf(out, "Recurrence run: %d created, %d skipped, %d abandoned, %d failed\n",
		res.Created, res.Skipped, res.Abandoned, res.Failed)
}

// sleepWithContext sleeps for duration d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
