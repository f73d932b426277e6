package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
)

// ErrStaleStatus is returned when a status update finds the submission no longer in the expected state
var ErrStaleStatus = errors.New("submission status changed concurrently")

// SubmissionFilter holds list criteria; nil or empty fields are ignored
type SubmissionFilter struct {
	FormID    *uuid.UUID
	CreatedBy *uuid.UUID
	Status    domain.SubmissionStatus
	Page      int
	Limit     int
}

// StatusChange describes a review decision
type StatusChange struct {
	From       domain.SubmissionStatus
	To         domain.SubmissionStatus
	ReviewedBy uuid.UUID
	Note       string
	At         time.Time
}

// SubmissionRepository defines the interface for submission data access
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error
	// CreateWithAttachments stores the submission and claims its TEMP attachments atomically
	CreateWithAttachments(ctx context.Context, submission *domain.Submission, attachmentIDs []uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]*domain.Submission, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) error
	CountByForm(ctx context.Context, formID uuid.UUID) (int64, error)
}

type submissionRepositoryImpl struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepositoryImpl{db: db}
}

func (r *submissionRepositoryImpl) Create(ctx context.Context, submission *domain.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepositoryImpl) CreateWithAttachments(ctx context.Context, submission *domain.Submission, attachmentIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		return NewAttachmentRepository(tx).Confirm(ctx, attachmentIDs, submission.ID)
	})
}

func (r *submissionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepositoryImpl) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns one page of submissions, newest first, and the total match count
func (r *submissionRepositoryImpl) List(ctx context.Context, filter SubmissionFilter) ([]*domain.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Submission{})
	if filter.FormID != nil {
		query = query.Where("form_id = ?", *filter.FormID)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	var subs []*domain.Submission
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// UpdateStatus applies change only while the row still has change.From
func (r *submissionRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ? AND status = ?", id, change.From).
		Updates(map[string]interface{}{
			"status":      change.To,
			"reviewed_by": change.ReviewedBy,
			"reviewed_at": change.At,
			"review_note": change.Note,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *submissionRepositoryImpl) CountByForm(ctx context.Context, formID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Submission{}).Where("form_id = ?", formID).Count(&n).Error
	return n, err
}
