package wizard

import (
	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
)

// Snapshot is the serializable draft state of a wizard session
type Snapshot struct {
	FormID         uuid.UUID           `json:"form_id"`
	FormVersion    int                 `json:"form_version"`
	UserID         uuid.UUID           `json:"user_id"`
	Step           int                 `json:"step"`
	Values         map[string]string   `json:"values"`
	Files          map[string][]string `json:"files,omitempty"`
	Errors         map[string]string   `json:"errors,omitempty"`
	Status         Status              `json:"status"`
	LastError      string              `json:"last_error,omitempty"`
	IdempotencyKey string              `json:"idempotency_key"`
	SubmissionID   *uuid.UUID          `json:"submission_id,omitempty"`
}

// Snapshot captures the draft state
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		FormID:         w.form.ID,
		FormVersion:    w.form.Version,
		UserID:         w.userID,
		Step:           w.current,
		Values:         make(map[string]string, len(w.values)),
		Files:          make(map[string][]string, len(w.files)),
		Errors:         make(map[string]string, len(w.errs)),
		Status:         w.status,
		LastError:      w.lastErr,
		IdempotencyKey: w.idempotencyKey,
	}
	for k, v := range w.values {
		snap.Values[k] = v
	}
	for k, v := range w.files {
		snap.Files[k] = append([]string(nil), v...)
	}
	for k, v := range w.errs {
		snap.Errors[k] = v
	}
	if w.result != nil {
		id := w.result.ID
		snap.SubmissionID = &id
	}
	return snap
}

// Restore rebuilds a wizard from a snapshot against the current form.
// Values of fields that no longer exist are dropped and the step is clamped.
// An interrupted Submitting phase comes back as Failed so it can be retried with the same key.
func Restore(form *domain.Form, snap Snapshot, opts ...Option) (*Wizard, error) {
	if form == nil {
		return nil, ErrNoForm
	}
	if snap.FormID != form.ID {
		return nil, ErrFormMismatch
	}
	w, err := New(form, snap.UserID, opts...)
	if err != nil {
		return nil, err
	}
	if snap.IdempotencyKey != "" {
		w.idempotencyKey = snap.IdempotencyKey
	}

	for id, v := range snap.Values {
		if _, ok := w.form.Schema.FindField(id); ok {
			w.values[id] = v
		}
	}
	for id, names := range snap.Files {
		if _, ok := w.values[id]; ok {
			w.files[id] = append([]string(nil), names...)
		}
	}
	for id, msg := range snap.Errors {
		if _, ok := w.form.Schema.FindField(id); ok {
			w.errs[id] = msg
		}
	}

	w.current = snap.Step
	if w.current < 0 {
		w.current = 0
	}
	if w.current >= len(w.steps) {
		w.current = len(w.steps) - 1
	}

	w.lastErr = snap.LastError
	switch snap.Status {
	case StatusSubmitted:
		w.status = StatusSubmitted
		if snap.SubmissionID != nil {
			w.result = &domain.Submission{BaseModel: domain.BaseModel{ID: *snap.SubmissionID}}
		}
	case StatusSubmitting, StatusFailed:
		w.status = StatusFailed
		if w.lastErr == "" {
			w.lastErr = "previous submit attempt did not complete"
		}
	default:
		w.status = StatusEditing
	}
	return w, nil
}
