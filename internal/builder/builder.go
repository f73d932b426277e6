// Package builder edits a form's schema. Every operation works on a copy and
// returns the updated form; the input form is never modified.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
)

var (
	ErrSectionNotFound  = errors.New("section not found")
	ErrFieldNotFound    = errors.New("field not found")
	ErrInvalidFieldType = errors.New("invalid field type")
	ErrLastSection      = errors.New("you must have at least one section")
)

const (
	DefaultSectionID          = "default_section"
	DefaultSectionName        = "General Information"
	DefaultSectionDescription = "Basic form fields"
)

// IDGenerator returns a new identifier with the given prefix ("section" or "field")
type IDGenerator func(prefix string) string

// RandomID is the default IDGenerator: prefix_ followed by 12 hex chars of a UUID
func RandomID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Builder applies authoring operations to forms
type Builder struct {
	newID IDGenerator
}

// Option configures a Builder
type Option func(*Builder)

// WithIDGenerator replaces the id source, mostly for deterministic tests
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Builder) {
		b.newID = g
	}
}

// New creates a Builder
func New(opts ...Option) *Builder {
	b := &Builder{newID: RandomID}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewForm returns an active version-1 form with the default section
func NewForm(name, description string, category domain.Category) *domain.Form {
	if !category.IsValid() {
		category = domain.CategoryOther
	}
	return &domain.Form{
		Name:          name,
		Description:   description,
		Category:      category,
		Version:       1,
		LatestVersion: 1,
		IsActive:      true,
		Schema: domain.Schema{{
			ID:          DefaultSectionID,
			Name:        DefaultSectionName,
			Description: DefaultSectionDescription,
			Fields:      []domain.Field{},
		}},
	}
}

// CanRemoveSection reports whether removing a section would still leave one
func CanRemoveSection(form *domain.Form) bool {
	return form != nil && len(form.Schema) > 1
}

// AddSection appends an empty section with a fresh id
func (b *Builder) AddSection(form *domain.Form) (*domain.Form, error) {
	out := form.Clone()
	out.Schema = append(out.Schema, domain.Section{
		ID:     b.newID("section"),
		Fields: []domain.Field{},
	})
	return out, nil
}

// RemoveSection deletes the section at sectionIndex.
// The minimum-section policy belongs to the caller, see CanRemoveSection.
func (b *Builder) RemoveSection(form *domain.Form, sectionIndex int) (*domain.Form, error) {
	if sectionIndex < 0 || sectionIndex >= len(form.Schema) {
		return nil, fmt.Errorf("%w: index %d", ErrSectionNotFound, sectionIndex)
	}
	out := form.Clone()
	out.Schema = append(out.Schema[:sectionIndex], out.Schema[sectionIndex+1:]...)
	return out, nil
}

// SectionUpdate holds the section attributes to change; nil means unchanged
type SectionUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateSection merges update into the section with the given id
func (b *Builder) UpdateSection(form *domain.Form, sectionID string, update SectionUpdate) (*domain.Form, error) {
	idx := form.Schema.SectionIndex(sectionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	out := form.Clone()
	sec := &out.Schema[idx]
	if update.Name != nil {
		sec.Name = *update.Name
	}
	if update.Description != nil {
		sec.Description = *update.Description
	}
	return out, nil
}

// NewField returns a field of the given type with authoring defaults
func (b *Builder) NewField(fieldType domain.FieldType) domain.Field {
	f := domain.Field{
		ID:    b.newID("field"),
		Label: fmt.Sprintf("New %s field", fieldType),
		Type:  fieldType,
	}
	if fieldType != domain.FieldTypeFile {
		p := fmt.Sprintf("Enter %s here...", fieldType)
		f.Placeholder = &p
	}
	if fieldType == domain.FieldTypeDropdown || fieldType == domain.FieldTypeRadio {
		f.Options = []domain.FieldOption{
			domain.StringOption("Option 1"),
			domain.StringOption("Option 2"),
		}
	}
	return f
}

// AddField appends a new field of fieldType to the section with the given id
func (b *Builder) AddField(form *domain.Form, sectionID string, fieldType domain.FieldType) (*domain.Form, error) {
	if !fieldType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldType, fieldType)
	}
	idx := form.Schema.SectionIndex(sectionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	out := form.Clone()
	out.Schema[idx].Fields = append(out.Schema[idx].Fields, b.NewField(fieldType))
	return out, nil
}

// FieldUpdate holds the field attributes to change; nil means unchanged.
// The field id is not updatable.
type FieldUpdate struct {
	Label       *string               `json:"label,omitempty"`
	Type        *domain.FieldType     `json:"type,omitempty"`
	Placeholder *string               `json:"placeholder,omitempty"`
	Required    *bool                 `json:"required,omitempty"`
	Options     *[]domain.FieldOption `json:"options,omitempty"`
	Accept      *string               `json:"accept,omitempty"`
	Multiple    *bool                 `json:"multiple,omitempty"`
}

// UpdateField merges update into the field with the given id, searching every section
func (b *Builder) UpdateField(form *domain.Form, fieldID string, update FieldUpdate) (*domain.Form, error) {
	if update.Type != nil && !update.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldType, *update.Type)
	}
	si, fi, ok := form.Schema.LocateField(fieldID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
	}
	out := form.Clone()
	f := &out.Schema[si].Fields[fi]
	if update.Label != nil {
		f.Label = *update.Label
	}
	if update.Type != nil {
		f.Type = *update.Type
	}
	if update.Placeholder != nil {
		p := *update.Placeholder
		f.Placeholder = &p
	}
	if update.Required != nil {
		f.Required = *update.Required
	}
	if update.Options != nil {
		f.Options = append([]domain.FieldOption(nil), (*update.Options)...)
	}
	if update.Accept != nil {
		f.Accept = *update.Accept
	}
	if update.Multiple != nil {
		f.Multiple = *update.Multiple
	}
	return out, nil
}

// RemoveField deletes the field from the given section
func (b *Builder) RemoveField(form *domain.Form, sectionID, fieldID string) (*domain.Form, error) {
	si := form.Schema.SectionIndex(sectionID)
	if si < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	fi := -1
	for i, f := range form.Schema[si].Fields {
		if f.ID == fieldID {
			fi = i
			break
		}
	}
	if fi < 0 {
		return nil, fmt.Errorf("%w: %s in section %s", ErrFieldNotFound, fieldID, sectionID)
	}
	out := form.Clone()
	fields := out.Schema[si].Fields
	out.Schema[si].Fields = append(fields[:fi], fields[fi+1:]...)
	return out, nil
}

// MoveFieldToSection detaches the field from its section and appends it to the target.
// The field keeps its attributes; its flattened index changes accordingly.
func (b *Builder) MoveFieldToSection(form *domain.Form, fieldID, targetSectionID string) (*domain.Form, error) {
	ti := form.Schema.SectionIndex(targetSectionID)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, targetSectionID)
	}
	si, fi, ok := form.Schema.LocateField(fieldID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
	}
	out := form.Clone()
	moved := out.Schema[si].Fields[fi]
	fields := out.Schema[si].Fields
	out.Schema[si].Fields = append(fields[:fi], fields[fi+1:]...)
	out.Schema[ti].Fields = append(out.Schema[ti].Fields, moved)
	return out, nil
}
