// Package service holds the business logic behind the HTTP handlers.
// Every exported method returns a *response.AppError on failure.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
)

// Actor is the authenticated caller of a service method
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool

	// Name is the display name from the token; empty when the issuer sends none
	Name string
}

func (a Actor) viewer() repository.Viewer {
	return repository.Viewer{UserID: a.UserID, IsAdmin: a.IsAdmin}
}

// Notifier records and pushes an activity event. Callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// notFoundOr maps gorm.ErrRecordNotFound to NOT_FOUND and anything else to INTERNAL_ERROR
func notFoundOr(err error, notFoundMsg, internalMsg string) *response.AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFoundError(notFoundMsg, "")
	}
	return response.NewAppError(response.ErrCodeInternal, internalMsg, err.Error())
}

func internalError(msg string, err error) *response.AppError {
	return response.NewAppError(response.ErrCodeInternal, msg, err.Error())
}

func paginated(items interface{}, total int64, page, limit int) *response.PaginatedResponse {
	page, limit = repository.NormalizePage(page, limit)
	return &response.PaginatedResponse{Items: items, Total: total, Page: page, Limit: limit}
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
