package dto

import (
	"time"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/builder"
	"onboarding-forms-api/internal/domain"
)

// CreateFormRequest represents the request to create a form
// @Description When schema is omitted the form starts with one default section.
// @Description is_active=false saves the form as a draft.
type CreateFormRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=255" example:"KYC Basic"`
	Description string          `json:"description" binding:"max=2000" example:"Identity verification for new clients"`
	Category    domain.Category `json:"category" example:"kyc"`
	IsActive    *bool           `json:"is_active,omitempty" example:"true"`
	Schema      domain.Schema   `json:"schema,omitempty"`
}

// UpdateFormRequest represents a partial form update. A changed schema publishes a new version.
type UpdateFormRequest struct {
	Name        *string          `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string          `json:"description,omitempty" binding:"omitempty,max=2000"`
	Category    *domain.Category `json:"category,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	Schema      *domain.Schema   `json:"schema,omitempty"`
}

// ListFormsQuery are the query parameters of GET /forms
type ListFormsQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Status   string `form:"status" binding:"omitempty,oneof=all active draft"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
}

// FormResponse is a form with display labels
type FormResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      domain.Category `json:"category"`
	CategoryLabel string          `json:"category_label"`
	Version       int             `json:"version"`
	LatestVersion int             `json:"latest_version"`
	IsActive      bool            `json:"is_active"`
	Schema        domain.Schema   `json:"schema"`
	SectionCount  int             `json:"section_count"`
	FieldCount    int             `json:"field_count"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewFormResponse converts a form
func NewFormResponse(f *domain.Form) FormResponse {
	schema := f.Schema
	if schema == nil {
		schema = domain.Schema{}
	}
	return FormResponse{
		ID:            f.ID,
		Name:          f.Name,
		Description:   f.Description,
		Category:      f.Category,
		CategoryLabel: f.Category.Label(),
		Version:       f.Version,
		LatestVersion: f.LatestVersion,
		IsActive:      f.IsActive,
		Schema:        schema,
		SectionCount:  len(schema),
		FieldCount:    schema.FieldCount(),
		CreatedBy:     f.CreatedBy,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// NewFormResponses converts a slice of forms
func NewFormResponses(forms []*domain.Form) []FormResponse {
	out := make([]FormResponse, 0, len(forms))
	for _, f := range forms {
		out = append(out, NewFormResponse(f))
	}
	return out
}

// FormVersionResponse is one schema snapshot
type FormVersionResponse struct {
	FormID    uuid.UUID     `json:"form_id"`
	Version   int           `json:"version"`
	Schema    domain.Schema `json:"schema"`
	CreatedBy uuid.UUID     `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
}

// ApplyCommandsRequest is a batch of builder commands applied atomically
type ApplyCommandsRequest struct {
	Commands []builder.Command `json:"commands" binding:"required,min=1,dive"`
}

// CanRemoveSectionResponse reports whether a section may be removed
type CanRemoveSectionResponse struct {
	CanRemove    bool `json:"can_remove"`
	SectionCount int  `json:"section_count"`
}

// OptionResponse is a (value, label) pair for pickers
type OptionResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldTypeOptions lists every field type with its label
func FieldTypeOptions() []OptionResponse {
	types := domain.AllFieldTypes()
	out := make([]OptionResponse, 0, len(types))
	for _, t := range types {
		out = append(out, OptionResponse{Value: string(t), Label: t.Label()})
	}
	return out
}

// CategoryOptions lists every form category with its label
func CategoryOptions() []OptionResponse {
	cats := []domain.Category{
		domain.CategoryKYC,
		domain.CategoryLoan,
		domain.CategoryInvestment,
		domain.CategoryAccount,
		domain.CategoryOther,
	}
	out := make([]OptionResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, OptionResponse{Value: string(c), Label: c.Label()})
	}
	return out
}
