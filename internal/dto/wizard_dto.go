package dto

import (
	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/wizard"
)

// SetValuesRequest sets several field values of the current session, keyed by field id
type SetValuesRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// SetFilesRequest records the files chosen for a file field.
// attachment_ids reference presigned uploads and are claimed on submit.
type SetFilesRequest struct {
	FieldID       string      `json:"field_id" binding:"required"`
	Files         []string    `json:"files"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids,omitempty"`
}

// StepResponse describes the current wizard step
type StepResponse struct {
	Index       int            `json:"index"`
	SectionID   string         `json:"section_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Fields      []domain.Field `json:"fields"`
}

// SessionResponse is the client view of a wizard session
type SessionResponse struct {
	FormID         uuid.UUID           `json:"form_id"`
	FormName       string              `json:"form_name"`
	FormVersion    int                 `json:"form_version"`
	StepCount      int                 `json:"step_count"`
	IsLastStep     bool                `json:"is_last_step"`
	Step           StepResponse        `json:"step"`
	Values         map[string]string   `json:"values"`
	Files          map[string][]string `json:"files,omitempty"`
	Errors         []wizard.FieldError `json:"errors"`
	Status         wizard.Status       `json:"status"`
	LastError      string              `json:"last_error,omitempty"`
	IdempotencyKey string              `json:"idempotency_key"`
	SubmissionID   *uuid.UUID          `json:"submission_id,omitempty"`
}

// NewSessionResponse renders a wizard
func NewSessionResponse(w *wizard.Wizard) SessionResponse {
	snap := w.Snapshot()
	form := w.Form()
	step := w.Step()

	fields := step.Fields
	if fields == nil {
		fields = []domain.Field{}
	}
	errs := w.Errors()
	if errs == nil {
		errs = []wizard.FieldError{}
	}

	return SessionResponse{
		FormID:      form.ID,
		FormName:    form.Name,
		FormVersion: form.Version,
		StepCount:   w.StepCount(),
		IsLastStep:  w.IsLastStep(),
		Step: StepResponse{
			Index:       snap.Step,
			SectionID:   step.ID,
			Name:        step.Name,
			Description: step.Description,
			Fields:      fields,
		},
		Values:         snap.Values,
		Files:          snap.Files,
		Errors:         errs,
		Status:         snap.Status,
		LastError:      snap.LastError,
		IdempotencyKey: snap.IdempotencyKey,
		SubmissionID:   snap.SubmissionID,
	}
}

// AvailableFormResponse is a startable form in the client dashboard
type AvailableFormResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      domain.Category `json:"category"`
	CategoryLabel string          `json:"category_label"`
	Version       int             `json:"version"`
	StepCount     int             `json:"step_count"`
	FieldCount    int             `json:"field_count"`
	HasDraft      bool            `json:"has_draft"`
}
