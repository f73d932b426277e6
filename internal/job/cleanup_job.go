package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/repository"
)

// FileDeleter removes stored objects
type FileDeleter interface {
	DeleteFile(ctx context.Context, key string) error
}

// AttachmentCleanupJob removes temporary uploads that no submission claimed before they expired
type AttachmentCleanupJob struct {
	attachmentRepo repository.AttachmentRepository
	files          FileDeleter
	logger         *zap.Logger
	now            func() time.Time
}

// NewAttachmentCleanupJob creates a new AttachmentCleanupJob
func NewAttachmentCleanupJob(
	attachmentRepo repository.AttachmentRepository,
	files FileDeleter,
	logger *zap.Logger,
) *AttachmentCleanupJob {
	return &AttachmentCleanupJob{
		attachmentRepo: attachmentRepo,
		files:          files,
		logger:         logger,
		now:            time.Now,
	}
}

// Name identifies the job in logs
func (j *AttachmentCleanupJob) Name() string { return "attachment-cleanup" }

// Run deletes the objects of expired temporary attachments, then the rows whose object is gone.
// A row whose object could not be deleted is kept for the next run.
func (j *AttachmentCleanupJob) Run(ctx context.Context) {
	expired, err := j.attachmentRepo.FindExpiredTemp(ctx, j.now())
	if err != nil {
		j.logger.Error("Failed to find expired temporary attachments", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		j.logger.Debug("No expired temporary attachments found")
		return
	}

	var deleted []uuid.UUID
	failed := 0
	for _, a := range expired {
		if a.FileKey != "" {
			if err := j.files.DeleteFile(ctx, a.FileKey); err != nil {
				j.logger.Error("Failed to delete file from storage",
					zap.String("attachment_id", a.ID.String()),
					zap.String("file_key", a.FileKey),
					zap.Error(err),
				)
				failed++
				continue
			}
		}
		deleted = append(deleted, a.ID)
	}

	if len(deleted) > 0 {
		if err := j.attachmentRepo.DeleteBatch(ctx, deleted); err != nil {
			j.logger.Error("Failed to delete attachments from database",
				zap.Int("count", len(deleted)),
				zap.Error(err),
			)
			return
		}
	}

	j.logger.Info("Attachment cleanup completed",
		zap.Int("total_expired", len(expired)),
		zap.Int("deleted", len(deleted)),
		zap.Int("failed", failed),
	)
}
