package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/response"
)

// kycForm has two steps: identity (name, email) and documents (passport file, optional age)
func kycForm() *domain.Form {
	return &domain.Form{
		BaseModel:     domain.BaseModel{ID: uuid.New()},
		Name:          "KYC Basic",
		Category:      domain.CategoryKYC,
		Version:       1,
		LatestVersion: 1,
		IsActive:      true,
		Schema: domain.Schema{
			{
				ID:   "sec_identity",
				Name: "Identity",
				Fields: []domain.Field{
					{ID: "fld_name", Label: "Full Name", Type: domain.FieldTypeText, Required: true},
					{ID: "fld_email", Label: "Email", Type: domain.FieldTypeEmail, Required: true},
				},
			},
			{
				ID:   "sec_documents",
				Name: "Documents",
				Fields: []domain.Field{
					{ID: "fld_passport", Label: "Passport", Type: domain.FieldTypeFile, Required: true, Accept: ".pdf,image/*"},
					{ID: "fld_age", Label: "Age", Type: domain.FieldTypeNumber},
				},
			},
		},
	}
}

func formRepoWith(forms ...*domain.Form) *MockFormRepository {
	byID := make(map[uuid.UUID]*domain.Form, len(forms))
	for _, f := range forms {
		byID[f.ID] = f
	}
	repo := &MockFormRepository{}
	repo.FindByIDFunc = func(_ context.Context, id uuid.UUID) (*domain.Form, error) {
		f, ok := byID[id]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		return f.Clone(), nil
	}
	repo.UpdateFunc = func(_ context.Context, f *domain.Form) error {
		byID[f.ID] = f.Clone()
		return nil
	}
	return repo
}

func requireAppError(t *testing.T, err error, code string) *response.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr), "expected *response.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Error())
	return appErr
}
