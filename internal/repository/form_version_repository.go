package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
)

// FormVersionRepository stores immutable schema snapshots
type FormVersionRepository interface {
	Create(ctx context.Context, version *domain.FormVersion) error
	FindByFormAndVersion(ctx context.Context, formID uuid.UUID, version int) (*domain.FormVersion, error)
	ListByForm(ctx context.Context, formID uuid.UUID) ([]*domain.FormVersion, error)
}

type formVersionRepositoryImpl struct {
	db *gorm.DB
}

// NewFormVersionRepository creates a new instance of FormVersionRepository
func NewFormVersionRepository(db *gorm.DB) FormVersionRepository {
	return &formVersionRepositoryImpl{db: db}
}

func (r *formVersionRepositoryImpl) Create(ctx context.Context, version *domain.FormVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

func (r *formVersionRepositoryImpl) FindByFormAndVersion(ctx context.Context, formID uuid.UUID, version int) (*domain.FormVersion, error) {
	var v domain.FormVersion
	if err := r.db.WithContext(ctx).
		Where("form_id = ? AND version = ?", formID, version).
		First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByForm returns every snapshot of a form, newest first
func (r *formVersionRepositoryImpl) ListByForm(ctx context.Context, formID uuid.UUID) ([]*domain.FormVersion, error) {
	var versions []*domain.FormVersion
	if err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("version DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}
