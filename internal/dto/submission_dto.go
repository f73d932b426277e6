package dto

import (
	"time"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/review"
)

// CreateSubmissionRequest represents the request to store a submission directly.
// form_version defaults to the form's current version; the Idempotency-Key header
// is used when idempotency_key is empty.
type CreateSubmissionRequest struct {
	Form           uuid.UUID                `json:"form" binding:"required"`
	FormVersion    int                      `json:"form_version,omitempty" binding:"omitempty,min=1"`
	SubmissionData []domain.SubmissionValue `json:"submission_data" binding:"required"`
	IdempotencyKey string                   `json:"idempotency_key,omitempty" binding:"omitempty,max=64"`
	AttachmentIDs  []uuid.UUID              `json:"attachment_ids,omitempty"`
}

// ListSubmissionsQuery are the query parameters of GET /submissions
type ListSubmissionsQuery struct {
	Form   string `form:"form" binding:"omitempty,uuid"`
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
}

// UpdateSubmissionStatusRequest is an admin review decision
type UpdateSubmissionStatusRequest struct {
	Status domain.SubmissionStatus `json:"status" binding:"required,oneof=approved rejected"`
	Note   string                  `json:"note,omitempty" binding:"max=2000"`
}

// SubmissionResponse is a stored submission with a short preview of its first values
type SubmissionResponse struct {
	ID             uuid.UUID                `json:"id"`
	Form           uuid.UUID                `json:"form"`
	FormName       string                   `json:"form_name,omitempty"`
	FormVersion    int                      `json:"form_version"`
	SubmissionData []domain.SubmissionValue `json:"submission_data"`
	CreatedBy      uuid.UUID                `json:"created_by"`
	Status         domain.SubmissionStatus  `json:"status"`
	ReviewedBy     *uuid.UUID               `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time               `json:"reviewed_at,omitempty"`
	ReviewNote     string                   `json:"review_note,omitempty"`
	Preview        []review.Entry           `json:"preview,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// NewSubmissionResponse converts a submission; preview may be nil
func NewSubmissionResponse(s *domain.Submission, formName string, preview []review.Entry) SubmissionResponse {
	data := []domain.SubmissionValue(s.Data)
	if data == nil {
		data = []domain.SubmissionValue{}
	}
	return SubmissionResponse{
		ID:             s.ID,
		Form:           s.FormID,
		FormName:       formName,
		FormVersion:    s.FormVersion,
		SubmissionData: data,
		CreatedBy:      s.CreatedBy,
		Status:         s.Status,
		ReviewedBy:     s.ReviewedBy,
		ReviewedAt:     s.ReviewedAt,
		ReviewNote:     s.ReviewNote,
		Preview:        preview,
		CreatedAt:      s.CreatedAt,
	}
}
