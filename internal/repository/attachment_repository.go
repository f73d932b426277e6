package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
)

// AttachmentRepository defines the interface for attachment data access
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Attachment, error)
	FindBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*domain.Attachment, error)
	FindExpiredTemp(ctx context.Context, now time.Time) ([]*domain.Attachment, error)
	Confirm(ctx context.Context, ids []uuid.UUID, submissionID uuid.UUID) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
}

type attachmentRepositoryImpl struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new instance of AttachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepositoryImpl{db: db}
}

func (r *attachmentRepositoryImpl) Create(ctx context.Context, attachment *domain.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attachmentRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Attachment, error) {
	if len(ids) == 0 {
		return []*domain.Attachment{}, nil
	}
	var items []*domain.Attachment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *attachmentRepositoryImpl) FindBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindExpiredTemp returns unclaimed uploads whose expiry is before now
func (r *attachmentRepositoryImpl) FindExpiredTemp(ctx context.Context, now time.Time) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.AttachmentStatusTemp, now).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Confirm attaches TEMP uploads to a submission; every id must still be TEMP
func (r *attachmentRepositoryImpl) Confirm(ctx context.Context, ids []uuid.UUID, submissionID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Attachment{}).
		Where("id IN ? AND status = ?", ids, domain.AttachmentStatusTemp).
		Updates(map[string]interface{}{
			"status":        domain.AttachmentStatusConfirmed,
			"submission_id": submissionID,
			"expires_at":    nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("expected to confirm %d attachment(s) but confirmed %d", len(ids), result.RowsAffected)
	}
	return nil
}

func (r *attachmentRepositoryImpl) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Attachment{}).Error
}
