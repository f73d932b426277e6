package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/builder"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
)

// BuilderService edits a stored form's schema through builder commands
type BuilderService interface {
	ApplyCommands(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.ApplyCommandsRequest) (*dto.FormResponse, error)
	CanRemoveSection(ctx context.Context, formID uuid.UUID) (*dto.CanRemoveSectionResponse, error)
}

type builderServiceImpl struct {
	formRepo repository.FormRepository
	builder  *builder.Builder
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewBuilderService creates a new instance of BuilderService
func NewBuilderService(formRepo repository.FormRepository, b *builder.Builder, m *metrics.Metrics, logger *zap.Logger) BuilderService {
	if b == nil {
		b = builder.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &builderServiceImpl{formRepo: formRepo, builder: b, metrics: m, logger: logger}
}

// ApplyCommands runs the batch against the stored form and saves the result as a new version.
// Nothing is saved when any command fails.
func (s *builderServiceImpl) ApplyCommands(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.ApplyCommandsRequest) (*dto.FormResponse, error) {
	form, err := s.formRepo.FindByID(ctx, formID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}

	updated, err := s.builder.Apply(form, req.Commands...)
	if err != nil {
		return nil, commandError(err)
	}

	changed, err := schemaChanged(form.Schema, updated.Schema)
	if err != nil {
		return nil, internalError("Failed to compare schema", err)
	}
	if !changed {
		resp := dto.NewFormResponse(form)
		return &resp, nil
	}
	if appErr := validateSchema(updated.Schema); appErr != nil {
		return nil, appErr
	}

	if err := saveForm(ctx, s.formRepo, updated, true, actor.UserID); err != nil {
		s.logger.Error("Failed to save schema commands",
			zap.String("form_id", formID.String()),
			zap.Int("commands", len(req.Commands)),
			zap.Error(err))
		return nil, internalError("Failed to save form schema", err)
	}
	s.metrics.IncrementFormVersion()
	s.logger.Info("Schema commands applied",
		zap.String("form_id", formID.String()),
		zap.Int("commands", len(req.Commands)),
		zap.Int("version", updated.Version))

	resp := dto.NewFormResponse(updated)
	return &resp, nil
}

// CanRemoveSection reports whether the form has more than one section
func (s *builderServiceImpl) CanRemoveSection(ctx context.Context, formID uuid.UUID) (*dto.CanRemoveSectionResponse, error) {
	form, err := s.formRepo.FindByID(ctx, formID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	return &dto.CanRemoveSectionResponse{
		CanRemove:    builder.CanRemoveSection(form),
		SectionCount: len(form.Schema),
	}, nil
}

type commandIssue struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func commandError(err error) *response.AppError {
	var cmdErr *builder.CommandError
	if !errors.As(err, &cmdErr) {
		return response.NewValidationError("Invalid builder command", err.Error())
	}

	issue := []commandIssue{{Index: cmdErr.Index, Type: string(cmdErr.Type), Message: cmdErr.Err.Error()}}
	switch {
	case errors.Is(err, builder.ErrSectionNotFound):
		appErr := response.NewNotFoundError("Section not found", cmdErr.Error())
		appErr.Fields = issue
		return appErr
	case errors.Is(err, builder.ErrFieldNotFound):
		appErr := response.NewNotFoundError("Field not found", cmdErr.Error())
		appErr.Fields = issue
		return appErr
	case errors.Is(err, builder.ErrLastSection):
		return response.NewFieldValidationError("You must have at least one section", issue)
	default:
		return response.NewFieldValidationError("Invalid builder command", issue)
	}
}
