package client

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"onboarding-forms-api/internal/builder"
	"onboarding-forms-api/internal/domain"
)

// FormSaver persists a form and returns the stored copy
type FormSaver interface {
	SaveForm(ctx context.Context, form *domain.Form) (*domain.Form, error)
}

// FormEditor holds one form being edited in the builder. Edits stay in memory until Save;
// a failed save leaves them in place so they can be retried.
type FormEditor struct {
	mu      sync.Mutex
	builder *builder.Builder
	saver   FormSaver
	saved   *domain.Form
	working *domain.Form
	lastErr error
}

// NewFormEditor edits form; a nil form starts a new one with the default section
func NewFormEditor(b *builder.Builder, saver FormSaver, form *domain.Form) *FormEditor {
	if b == nil {
		b = builder.New()
	}
	if form == nil {
		form = builder.NewForm("Untitled form", "", domain.CategoryOther)
	}
	return &FormEditor{
		builder: b,
		saver:   saver,
		saved:   form.Clone(),
		working: form.Clone(),
	}
}

// Form returns a copy of the working form
func (e *FormEditor) Form() *domain.Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working.Clone()
}

// Apply runs builder commands against the working form. A failing batch changes nothing.
func (e *FormEditor) Apply(cmds ...builder.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.builder.Apply(e.working, cmds...)
	if err != nil {
		return err
	}
	e.working = next
	return nil
}

// SetDetails changes the metadata of the working form
func (e *FormEditor) SetDetails(name, description string, category domain.Category, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.working.Clone()
	next.Name = name
	next.Description = description
	next.Category = category
	next.IsActive = active
	e.working = next
}

// CanRemoveSection reports whether the working form has more than one section
func (e *FormEditor) CanRemoveSection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return builder.CanRemoveSection(e.working)
}

// Dirty reports whether the working form differs from the last saved one
func (e *FormEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !sameForm(e.saved, e.working)
}

// Save stores the working form. On failure the edits are kept and the error is
// also available from LastError.
func (e *FormEditor) Save(ctx context.Context) (*domain.Form, error) {
	e.mu.Lock()
	pending := e.working.Clone()
	e.mu.Unlock()

	saved, err := e.saver.SaveForm(ctx, pending)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = err
		return nil, err
	}
	e.lastErr = nil
	e.saved = saved.Clone()
	// edits made while the save was in flight are kept on top of the stored form
	if sameForm(e.working, pending) {
		e.working = saved.Clone()
	} else if e.working.ID != saved.ID {
		e.working.ID = saved.ID
	}
	return saved.Clone(), nil
}

// Discard drops unsaved edits
func (e *FormEditor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = e.saved.Clone()
	e.lastErr = nil
}

// LastError returns the error of the most recent failed save, cleared by a successful one
func (e *FormEditor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func sameForm(a, b *domain.Form) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Description != b.Description ||
		a.Category != b.Category || a.IsActive != b.IsActive {
		return false
	}
	return schemaEqual(a.Schema, b.Schema)
}

func schemaEqual(a, b domain.Schema) bool {
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}
