package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"onboarding-forms-api/internal/repository"
)

// NotificationCleanupJob purges read notifications older than maxAge
type NotificationCleanupJob struct {
	repo   repository.NotificationRepository
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationCleanupJob creates a job keeping read notifications for maxAgeDays days
func NewNotificationCleanupJob(repo repository.NotificationRepository, maxAgeDays int, logger *zap.Logger) *NotificationCleanupJob {
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	return &NotificationCleanupJob{
		repo:   repo,
		maxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}
}

func (j *NotificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes read notifications created before now minus maxAge. Unread ones are kept.
func (j *NotificationCleanupJob) Run(ctx context.Context) {
	cutoff := j.now().Add(-j.maxAge)
	n, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to delete old notifications", zap.Error(err))
		return
	}
	j.logger.Info("Notification cleanup completed",
		zap.Int64("deleted", n),
		zap.Time("cutoff", cutoff),
	)
}
