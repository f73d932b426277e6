package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
)

// FormStatusFilter narrows a form listing by lifecycle
type FormStatusFilter string

const (
	FormStatusAll    FormStatusFilter = "all"
	FormStatusActive FormStatusFilter = "active"
	FormStatusDraft  FormStatusFilter = "draft"
)

// FormFilter holds list criteria; zero values mean "no constraint"
type FormFilter struct {
	Search   string
	Category domain.Category
	Status   FormStatusFilter
	Page     int
	Limit    int
}

// FormRepository defines the interface for form data access
type FormRepository interface {
	Create(ctx context.Context, form *domain.Form) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Form, error)
	List(ctx context.Context, filter FormFilter) ([]*domain.Form, int64, error)
	Update(ctx context.Context, form *domain.Form) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Transaction runs fn with repositories bound to one database transaction
	Transaction(ctx context.Context, fn func(forms FormRepository, versions FormVersionRepository) error) error
}

type formRepositoryImpl struct {
	db *gorm.DB
}

// NewFormRepository creates a new instance of FormRepository
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepositoryImpl{db: db}
}

func (r *formRepositoryImpl) Create(ctx context.Context, form *domain.Form) error {
	return r.db.WithContext(ctx).Create(form).Error
}

func (r *formRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	var form domain.Form
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// List returns one page of forms, most recently updated first, and the total match count
func (r *formRepositoryImpl) List(ctx context.Context, filter FormFilter) ([]*domain.Form, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Form{})

	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	switch filter.Status {
	case FormStatusActive:
		query = query.Where("is_active = ?", true)
	case FormStatusDraft:
		query = query.Where("is_active = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	var forms []*domain.Form
	if err := query.
		Order("updated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&forms).Error; err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

// Update saves every column of form
func (r *formRepositoryImpl) Update(ctx context.Context, form *domain.Form) error {
	return r.db.WithContext(ctx).Save(form).Error
}

// Delete soft deletes a form; its versions and submissions stay readable
func (r *formRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Form{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *formRepositoryImpl) Transaction(ctx context.Context, fn func(forms FormRepository, versions FormVersionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&formRepositoryImpl{db: tx}, &formVersionRepositoryImpl{db: tx})
	})
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// NormalizePage applies the default page size and the maximum limit
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
