// Package wizard walks a form's sections step by step, collects values keyed by
// field id, validates each step and serializes the result into a submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
)

// Status is the lifecycle phase of a wizard
type Status string

const (
	// StatusEditing means the user is on Step(i)
	StatusEditing Status = "editing"
	// StatusSubmitting means one submit attempt is in flight
	StatusSubmitting Status = "submitting"
	// StatusSubmitted is terminal
	StatusSubmitted Status = "submitted"
	// StatusFailed means the last attempt failed; the wizard sits on the last step and accepts a retry
	StatusFailed Status = "failed"
)

var (
	ErrNoForm           = errors.New("wizard needs a form")
	ErrUnknownField     = errors.New("field is not part of this form")
	ErrNotFileField     = errors.New("field does not accept files")
	ErrNotLastStep      = errors.New("submit is only allowed on the last step")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrAlreadySubmitted = errors.New("form has already been submitted")
	ErrFormMismatch     = errors.New("snapshot belongs to a different form")
)

// FieldError is one inline validation message
type FieldError struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ValidationError blocks next/submit until the listed fields are corrected
type ValidationError struct {
	Step   int
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return fmt.Sprintf("step %d has invalid fields: %s", e.Step+1, strings.Join(msgs, "; "))
}

// Submitter persists a finished submission. It is invoked once per submit attempt.
type Submitter interface {
	Submit(ctx context.Context, sub *domain.Submission) (*domain.Submission, error)
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, sub *domain.Submission) (*domain.Submission, error)

func (f SubmitterFunc) Submit(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
	return f(ctx, sub)
}

// Wizard is the per-session state machine. It is safe for concurrent use;
// a second Submit while one is in flight fails with ErrSubmitInProgress.
type Wizard struct {
	mu sync.Mutex

	form   *domain.Form
	steps  []domain.Section
	userID uuid.UUID

	current int
	values  map[string]string
	files   map[string][]string
	errs    map[string]string

	status         Status
	lastErr        string
	idempotencyKey string
	result         *domain.Submission

	validators  map[domain.FieldType]ValidatorFunc
	onSubmitted func(*domain.Submission)
}

// Option configures a Wizard
type Option func(*Wizard)

// WithValidator overrides the shape check for one field type
func WithValidator(t domain.FieldType, fn ValidatorFunc) Option {
	return func(w *Wizard) {
		w.validators[t] = fn
	}
}

// WithIdempotencyKey sets the key sent with every submit attempt
func WithIdempotencyKey(key string) Option {
	return func(w *Wizard) {
		w.idempotencyKey = key
	}
}

// OnSubmitted registers a callback run after the store acknowledges a submission
func OnSubmitted(fn func(*domain.Submission)) Option {
	return func(w *Wizard) {
		w.onSubmitted = fn
	}
}

// New starts a wizard on the first step of form for the given user
func New(form *domain.Form, userID uuid.UUID, opts ...Option) (*Wizard, error) {
	if form == nil {
		return nil, ErrNoForm
	}
	w := &Wizard{
		form:           form.Clone(),
		userID:         userID,
		values:         make(map[string]string),
		files:          make(map[string][]string),
		errs:           make(map[string]string),
		status:         StatusEditing,
		idempotencyKey: uuid.NewString(),
		validators:     DefaultValidators(),
	}
	w.steps = stepsFor(w.form)
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// stepsFor yields one step per section, or a single empty step titled after the form
func stepsFor(form *domain.Form) []domain.Section {
	if len(form.Schema) == 0 {
		return []domain.Section{{Name: form.Name, Description: form.Description}}
	}
	return form.Schema
}

// Form returns the form the wizard walks
func (w *Wizard) Form() *domain.Form {
	return w.form
}

// UserID returns the submitting user
func (w *Wizard) UserID() uuid.UUID {
	return w.userID
}

// StepCount returns the number of steps
func (w *Wizard) StepCount() int {
	return len(w.steps)
}

// CurrentStep returns the 0-based step pointer
func (w *Wizard) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Step returns the section shown on the current step
func (w *Wizard) Step() domain.Section {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps[w.current]
}

// IsLastStep reports whether the pointer is on the final step
func (w *Wizard) IsLastStep() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current == len(w.steps)-1
}

// Status returns the lifecycle phase
func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// LastError returns the message of the last failed submit attempt
func (w *Wizard) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// IdempotencyKey returns the key attached to every submit attempt of this session
func (w *Wizard) IdempotencyKey() string {
	return w.idempotencyKey
}

// Result returns the acknowledged submission once the wizard is submitted
func (w *Wizard) Result() *domain.Submission {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Value returns the collected value of a field
func (w *Wizard) Value(fieldID string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.values[fieldID]
	return v, ok
}

// Files returns the selected file names of a file field
func (w *Wizard) Files(fieldID string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.files[fieldID]...)
}

// Errors returns the outstanding validation messages in flattened field order
func (w *Wizard) Errors() []FieldError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errorsLocked(w.form.Schema.Flatten())
}

func (w *Wizard) errorsLocked(fields []domain.Field) []FieldError {
	var out []FieldError
	for _, f := range fields {
		if msg, ok := w.errs[f.ID]; ok {
			out = append(out, FieldError{FieldID: f.ID, Label: f.Label, Message: msg})
		}
	}
	return out
}

func (w *Wizard) editableLocked() error {
	switch w.status {
	case StatusSubmitting:
		return ErrSubmitInProgress
	case StatusSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

// SetValue records a value for a field and clears that field's error
func (w *Wizard) SetValue(fieldID, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if _, ok := w.form.Schema.FindField(fieldID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, fieldID)
	}
	w.values[fieldID] = value
	delete(w.errs, fieldID)
	w.touchLocked()
	return nil
}

// SetFiles records the selected file names of a file field.
// The comma-joined names become the field's value; an empty list clears it.
func (w *Wizard) SetFiles(fieldID string, names []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	f, ok := w.form.Schema.FindField(fieldID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, fieldID)
	}
	if f.Type != domain.FieldTypeFile {
		return fmt.Errorf("%w: %s", ErrNotFileField, fieldID)
	}
	if len(names) == 0 {
		delete(w.files, fieldID)
		w.values[fieldID] = ""
	} else {
		w.files[fieldID] = append([]string(nil), names...)
		w.values[fieldID] = strings.Join(names, ", ")
	}
	delete(w.errs, fieldID)
	w.touchLocked()
	return nil
}

// touchLocked returns a failed wizard to plain editing once the user acts again
func (w *Wizard) touchLocked() {
	if w.status == StatusFailed {
		w.status = StatusEditing
	}
}

// Validate checks the current step and records any messages
func (w *Wizard) Validate() []FieldError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validateLocked()
}

func (w *Wizard) validateLocked() []FieldError {
	fields := w.steps[w.current].Fields
	for _, f := range fields {
		v, present := w.values[f.ID]
		if msg := checkField(f, v, present, w.validators); msg != "" {
			w.errs[f.ID] = msg
		}
	}
	return w.errorsLocked(fields)
}

// Next advances one step when the current step is valid. It is a no-op on the last step.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if errs := w.validateLocked(); len(errs) > 0 {
		return &ValidationError{Step: w.current, Errors: errs}
	}
	if w.current < len(w.steps)-1 {
		w.current++
	}
	w.touchLocked()
	return nil
}

// Previous moves back one step. It returns false on the first step.
func (w *Wizard) Previous() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.editableLocked() != nil || w.current == 0 {
		return false
	}
	w.current--
	w.touchLocked()
	return true
}

// Serialize emits one entry per collected value, in flattened field order
func (w *Wizard) Serialize() domain.SubmissionData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.serializeLocked()
}

func (w *Wizard) serializeLocked() domain.SubmissionData {
	data := domain.SubmissionData{}
	for i, f := range w.form.Schema.Flatten() {
		v, ok := w.values[f.ID]
		if !ok {
			continue
		}
		data = append(data, domain.SubmissionValue{Field: i + 1, FieldID: f.ID, Value: v})
	}
	return data
}

func (w *Wizard) buildLocked() *domain.Submission {
	key := w.idempotencyKey
	return &domain.Submission{
		FormID:         w.form.ID,
		FormVersion:    w.form.Version,
		Data:           w.serializeLocked(),
		CreatedBy:      w.userID,
		Status:         domain.SubmissionStatusPending,
		IdempotencyKey: &key,
	}
}

// Submit validates the last step and hands the submission to s.
// On failure the wizard stays on the last step in StatusFailed so the caller can retry.
func (w *Wizard) Submit(ctx context.Context, s Submitter) (*domain.Submission, error) {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.current != len(w.steps)-1 {
		w.mu.Unlock()
		return nil, ErrNotLastStep
	}
	if errs := w.validateLocked(); len(errs) > 0 {
		w.mu.Unlock()
		return nil, &ValidationError{Step: w.current, Errors: errs}
	}
	sub := w.buildLocked()
	w.status = StatusSubmitting
	w.mu.Unlock()

	saved, err := s.Submit(ctx, sub)

	w.mu.Lock()
	if err != nil {
		w.status = StatusFailed
		w.lastErr = err.Error()
		w.mu.Unlock()
		return nil, err
	}
	if saved == nil {
		saved = sub
	}
	w.status = StatusSubmitted
	w.lastErr = ""
	w.result = saved
	hook := w.onSubmitted
	w.mu.Unlock()

	if hook != nil {
		hook(saved)
	}
	return saved, nil
}
