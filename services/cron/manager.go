package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"gorm.io/gorm"
)

// LockJanitor drops expired idempotency holds
type LockJanitor interface {
	PurgeExpired(now time.Time) int
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron  *cron.Cron
	db    *gorm.DB
	locks LockJanitor
	log   *utils.Logger
	now   func() time.Time
}

// NewCronManager creates a new cron manager. locks may be nil.
func NewCronManager(db *gorm.DB, locks LockJanitor, log *utils.Logger) *CronManager {
	if log == nil {
		log = utils.NopLogger()
	}
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:  c,
		db:    db,
		locks: locks,
		log:   log.With("component", "cron"),
		now:   time.Now,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()
	m.log.Info("cron jobs started", "entries", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	jobs := []struct {
		spec string
		name string
		fn   func(context.Context) (string, error)
	}{
		// Every 10 minutes: drop idempotency holds left by crashed requests
		{"0 */10 * * * *", JobPurgeExpiredLocks, m.PurgeExpiredLocks},
		// Every hour: report layouts still waiting for content
		{"0 0 * * * *", JobAuditPendingContent, m.AuditPendingContent},
		// Daily at 3 AM: trim the job log
		{"0 0 3 * * *", JobCleanupJobLogs, m.CleanupOldJobLogs},
	}

	for _, job := range jobs {
		job := job
		if _, err := m.cron.AddFunc(job.spec, func() { m.RunJob(job.name, job.fn) }); err != nil {
			return err
		}
	}

	m.log.Info("all cron jobs registered", "count", len(jobs))
	return nil
}

// RunJob executes fn under a timeout and records the run in cron_job_logs
func (m *CronManager) RunJob(name string, fn func(context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	entry := m.logJobStart(name)
	message, err := fn(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, message)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Debug("starting job", "job", jobName)

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusRunning,
		StartedAt: m.now(),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn("failed to record job start", "job", jobName, "error", err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	m.log.Info("completed job", "job", entry.JobName, "message", message)
	m.finish(entry, map[string]interface{}{
		"status":  model.CronStatusCompleted,
		"message": message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.log.Error("job failed", "job", entry.JobName, "error", err)
	m.finish(entry, map[string]interface{}{
		"status":    model.CronStatusFailed,
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finish(entry *model.CronJobLog, fields map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	done := m.now()
	fields["completed_at"] = done
	fields["duration_ms"] = done.Sub(entry.StartedAt).Milliseconds()
	if err := m.db.Model(entry).Updates(fields).Error; err != nil {
		m.log.Warn("failed to record job result", "job", entry.JobName, "error", err)
	}
}
