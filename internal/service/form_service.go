package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/builder"
	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
)

// FormService defines the interface for form business logic
type FormService interface {
	CreateForm(ctx context.Context, actor Actor, req *dto.CreateFormRequest) (*dto.FormResponse, error)
	GetForm(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.FormResponse, error)
	ListForms(ctx context.Context, actor Actor, query *dto.ListFormsQuery) (*response.PaginatedResponse, error)
	UpdateForm(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.UpdateFormRequest) (*dto.FormResponse, error)
	DeleteForm(ctx context.Context, formID uuid.UUID) error
	ListVersions(ctx context.Context, formID uuid.UUID) ([]dto.FormVersionResponse, error)
	GetVersion(ctx context.Context, formID uuid.UUID, version int) (*dto.FormVersionResponse, error)
}

// formServiceImpl is the implementation of FormService
type formServiceImpl struct {
	formRepo    repository.FormRepository
	versionRepo repository.FormVersionRepository
	notifier    Notifier
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewFormService creates a new instance of FormService
func NewFormService(
	formRepo repository.FormRepository,
	versionRepo repository.FormVersionRepository,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) FormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &formServiceImpl{
		formRepo:    formRepo,
		versionRepo: versionRepo,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
	}
}

// CreateForm creates a form at version 1. Without a schema it starts from the default section.
func (s *formServiceImpl) CreateForm(ctx context.Context, actor Actor, req *dto.CreateFormRequest) (*dto.FormResponse, error) {
	category := req.Category
	if category == "" {
		category = domain.CategoryOther
	}
	if !category.IsValid() {
		return nil, response.NewValidationError("Invalid category", string(category))
	}

	form := builder.NewForm(strings.TrimSpace(req.Name), req.Description, category)
	if len(req.Schema) > 0 {
		if appErr := validateSchema(req.Schema); appErr != nil {
			return nil, appErr
		}
		form.Schema = req.Schema.Clone()
	}
	form.ID = uuid.New()
	form.Version = 1
	form.LatestVersion = 1
	form.IsActive = true
	if req.IsActive != nil {
		form.IsActive = *req.IsActive
	}
	form.CreatedBy = actor.UserID

	version, err := domain.NewFormVersion(form, actor.UserID)
	if err != nil {
		return nil, internalError("Failed to snapshot schema", err)
	}

	err = s.formRepo.Transaction(ctx, func(forms repository.FormRepository, versions repository.FormVersionRepository) error {
		if err := forms.Create(ctx, form); err != nil {
			return err
		}
		return versions.Create(ctx, version)
	})
	if err != nil {
		s.logger.Error("Failed to create form", zap.String("name", form.Name), zap.Error(err))
		return nil, internalError("Failed to create form", err)
	}

	s.metrics.IncrementFormCreated()
	s.metrics.IncrementFormVersion()
	s.logger.Info("Form created",
		zap.String("form_id", form.ID.String()),
		zap.Bool("active", form.IsActive),
		zap.Int("fields", form.Schema.FieldCount()))

	if form.IsActive {
		s.notifyPublished(ctx, actor, form)
	}

	resp := dto.NewFormResponse(form)
	return &resp, nil
}

// GetForm returns one form. Clients only see active forms.
func (s *formServiceImpl) GetForm(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.FormResponse, error) {
	form, err := s.formRepo.FindByID(ctx, formID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	if !actor.IsAdmin && !form.IsActive {
		return nil, response.NewNotFoundError("Form not found", "")
	}
	resp := dto.NewFormResponse(form)
	return &resp, nil
}

// ListForms pages through forms. Clients are restricted to active forms.
func (s *formServiceImpl) ListForms(ctx context.Context, actor Actor, query *dto.ListFormsQuery) (*response.PaginatedResponse, error) {
	filter := repository.FormFilter{
		Search: strings.TrimSpace(query.Search),
		Status: repository.FormStatusFilter(query.Status),
		Page:   query.Page,
		Limit:  query.Limit,
	}
	if query.Category != "" {
		c := domain.Category(query.Category)
		if !c.IsValid() {
			return nil, response.NewValidationError("Invalid category", query.Category)
		}
		filter.Category = c
	}
	if filter.Status == "" {
		filter.Status = repository.FormStatusAll
	}
	if !actor.IsAdmin {
		filter.Status = repository.FormStatusActive
	}

	forms, total, err := s.formRepo.List(ctx, filter)
	if err != nil {
		return nil, internalError("Failed to list forms", err)
	}
	return paginated(dto.NewFormResponses(forms), total, query.Page, query.Limit), nil
}

// UpdateForm applies a partial update. A schema whose content differs from the current one
// publishes a new version; activating a draft sends a FORM_PUBLISHED notification.
func (s *formServiceImpl) UpdateForm(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.UpdateFormRequest) (*dto.FormResponse, error) {
	form, err := s.formRepo.FindByID(ctx, formID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	wasActive := form.IsActive

	if req.Name != nil {
		form.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		form.Description = *req.Description
	}
	if req.Category != nil {
		if !req.Category.IsValid() {
			return nil, response.NewValidationError("Invalid category", string(*req.Category))
		}
		form.Category = *req.Category
	}
	if req.IsActive != nil {
		form.IsActive = *req.IsActive
	}

	changed := false
	if req.Schema != nil {
		if appErr := validateSchema(*req.Schema); appErr != nil {
			return nil, appErr
		}
		changed, err = schemaChanged(form.Schema, *req.Schema)
		if err != nil {
			return nil, internalError("Failed to compare schema", err)
		}
		form.Schema = req.Schema.Clone()
	}

	if err := saveForm(ctx, s.formRepo, form, changed, actor.UserID); err != nil {
		s.logger.Error("Failed to update form", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, internalError("Failed to update form", err)
	}
	if changed {
		s.metrics.IncrementFormVersion()
		s.logger.Info("Form schema versioned",
			zap.String("form_id", form.ID.String()),
			zap.Int("version", form.Version))
	}
	if form.IsActive && !wasActive {
		s.notifyPublished(ctx, actor, form)
	}

	resp := dto.NewFormResponse(form)
	return &resp, nil
}

// DeleteForm soft-deletes a form. Stored submissions and versions are kept.
func (s *formServiceImpl) DeleteForm(ctx context.Context, formID uuid.UUID) error {
	if err := s.formRepo.Delete(ctx, formID); err != nil {
		return notFoundOr(err, "Form not found", "Failed to delete form")
	}
	s.logger.Info("Form deleted", zap.String("form_id", formID.String()))
	return nil
}

// ListVersions returns every schema snapshot of a form, newest first
func (s *formServiceImpl) ListVersions(ctx context.Context, formID uuid.UUID) ([]dto.FormVersionResponse, error) {
	if _, err := s.formRepo.FindByID(ctx, formID); err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	versions, err := s.versionRepo.ListByForm(ctx, formID)
	if err != nil {
		return nil, internalError("Failed to list form versions", err)
	}

	out := make([]dto.FormVersionResponse, 0, len(versions))
	for _, v := range versions {
		resp, err := newVersionResponse(v)
		if err != nil {
			return nil, internalError("Failed to decode form version", err)
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetVersion returns one schema snapshot
func (s *formServiceImpl) GetVersion(ctx context.Context, formID uuid.UUID, version int) (*dto.FormVersionResponse, error) {
	v, err := s.versionRepo.FindByFormAndVersion(ctx, formID, version)
	if err != nil {
		return nil, notFoundOr(err, "Form version not found", "Failed to get form version")
	}
	resp, err := newVersionResponse(v)
	if err != nil {
		return nil, internalError("Failed to decode form version", err)
	}
	return &resp, nil
}

func (s *formServiceImpl) notifyPublished(ctx context.Context, actor Actor, form *domain.Form) {
	if s.notifier == nil {
		return
	}
	n := &domain.Notification{
		Type:     domain.NotificationFormPublished,
		Audience: domain.AudienceAdmins,
		ActorID:  actor.UserID,
		Title:    "Form published",
		Message:  fmt.Sprintf("%s is now available to clients", form.Name),
		Action:   "view_form",
		Priority: domain.PriorityLow,
		FormID:   uuidPtr(form.ID),
		FormName: form.Name,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Failed to send form published notification",
			zap.String("form_id", form.ID.String()), zap.Error(err))
	}
}

func newVersionResponse(v *domain.FormVersion) (dto.FormVersionResponse, error) {
	schema, err := v.DecodeSchema()
	if err != nil {
		return dto.FormVersionResponse{}, err
	}
	if schema == nil {
		schema = domain.Schema{}
	}
	return dto.FormVersionResponse{
		FormID:    v.FormID,
		Version:   v.Version,
		Schema:    schema,
		CreatedBy: v.CreatedBy,
		CreatedAt: v.CreatedAt,
	}, nil
}

// schemaChanged compares the encoded schemas
func schemaChanged(before, after domain.Schema) (bool, error) {
	a, err := json.Marshal(before)
	if err != nil {
		return false, err
	}
	b, err := json.Marshal(after)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(a, b), nil
}

// saveForm persists form. When versioned is true the version is bumped past the latest one
// and the new schema snapshot is written in the same transaction.
func saveForm(ctx context.Context, formRepo repository.FormRepository, form *domain.Form, versioned bool, actorID uuid.UUID) error {
	if !versioned {
		return formRepo.Update(ctx, form)
	}

	form.Version = form.LatestVersion + 1
	form.LatestVersion = form.Version
	version, err := domain.NewFormVersion(form, actorID)
	if err != nil {
		return err
	}
	return formRepo.Transaction(ctx, func(forms repository.FormRepository, versions repository.FormVersionRepository) error {
		if err := forms.Update(ctx, form); err != nil {
			return err
		}
		return versions.Create(ctx, version)
	})
}
