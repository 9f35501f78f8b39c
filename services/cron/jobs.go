package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/ai-course-generator/model"
)

// Job names recorded in cron_job_logs
const (
	JobPurgeExpiredLocks   = "purge_expired_locks"
	JobAuditPendingContent = "audit_pending_content"
	JobCleanupJobLogs      = "cleanup_job_logs"
)

const (
	// pendingContentAge is how long a layout may sit without content before it is reported
	pendingContentAge = 24 * time.Hour
	// jobLogRetention is how long cron_job_logs rows are kept
	jobLogRetention = 30 * 24 * time.Hour
)

// PurgeExpiredLocks releases idempotency holds whose ttl passed
func (m *CronManager) PurgeExpiredLocks(ctx context.Context) (string, error) {
	if m.locks == nil {
		return "No lock table configured", nil
	}
	removed := m.locks.PurgeExpired(m.now())
	return fmt.Sprintf("Purged %d expired locks", removed), nil
}

// AuditPendingContent counts layouts older than a day that never got content.
// Nothing is deleted: the owner may still expand them.
func (m *CronManager) AuditPendingContent(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-pendingContentAge)

	var pending int64
	err := m.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("has_content = ? AND created_at < ?", false, cutoff).
		Count(&pending).Error
	if err != nil {
		return "", fmt.Errorf("failed to count pending courses: %w", err)
	}

	if pending > 0 {
		m.log.Warn("courses waiting for content", "count", pending, "olderThan", pendingContentAge.String())
	}
	return fmt.Sprintf("%d courses without content older than %s", pending, pendingContentAge), nil
}

// CleanupOldJobLogs deletes finished job log rows past retention
func (m *CronManager) CleanupOldJobLogs(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-jobLogRetention)

	result := m.db.WithContext(ctx).
		Where("started_at < ? AND status <> ?", cutoff, model.CronStatusRunning).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		return "", fmt.Errorf("failed to delete old job logs: %w", result.Error)
	}
	return fmt.Sprintf("Deleted %d job logs", result.RowsAffected), nil
}
