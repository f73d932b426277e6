package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Category classifies a form by onboarding purpose
type Category string

const (
	CategoryKYC        Category = "kyc"
	CategoryLoan       Category = "loan"
	CategoryInvestment Category = "investment"
	CategoryAccount    Category = "account"
	CategoryOther      Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryKYC:        "KYC (Know Your Customer)",
	CategoryLoan:       "Loan Application",
	CategoryInvestment: "Investment Declaration",
	CategoryAccount:    "Account Opening",
	CategoryOther:      "Other",
}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display name of the category
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Form is a versioned, named document wrapping one schema
type Form struct {
	BaseModel
	Name          string    `gorm:"type:varchar(255);not null;index:idx_forms_name" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Category      Category  `gorm:"type:varchar(30);not null;index:idx_forms_category" json:"category"`
	Version       int       `gorm:"not null" json:"version"`
	LatestVersion int       `gorm:"not null" json:"latest_version"`
	IsActive      bool      `gorm:"not null;index:idx_forms_is_active" json:"is_active"`
	Schema        Schema    `gorm:"type:jsonb" json:"schema"`
	CreatedBy     uuid.UUID `gorm:"type:uuid;index:idx_forms_created_by" json:"created_by"`
}

// TableName specifies the table name for Form
func (Form) TableName() string {
	return "forms"
}

// Clone returns a copy of the form whose schema shares no memory with f
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	c := *f
	c.Schema = f.Schema.Clone()
	return &c
}

// FormVersion is an immutable snapshot of a form's schema at one version.
// Submissions pin a version so later edits do not reinterpret old data.
type FormVersion struct {
	BaseModel
	FormID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_form_versions_form_version,priority:1" json:"form_id"`
	Version   int            `gorm:"not null;uniqueIndex:idx_form_versions_form_version,priority:2" json:"version"`
	Schema    datatypes.JSON `gorm:"type:jsonb" json:"schema"`
	CreatedBy uuid.UUID      `gorm:"type:uuid" json:"created_by"`
}

// TableName specifies the table name for FormVersion
func (FormVersion) TableName() string {
	return "form_versions"
}

// NewFormVersion snapshots the current schema of f
func NewFormVersion(f *Form, createdBy uuid.UUID) (*FormVersion, error) {
	raw, err := json.Marshal(f.Schema)
	if err != nil {
		return nil, err
	}
	return &FormVersion{
		FormID:    f.ID,
		Version:   f.Version,
		Schema:    datatypes.JSON(raw),
		CreatedBy: createdBy,
	}, nil
}

// DecodeSchema parses the snapshot back into a Schema
func (v *FormVersion) DecodeSchema() (Schema, error) {
	var s Schema
	if len(v.Schema) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(v.Schema, &s); err != nil {
		return nil, err
	}
	return s, nil
}
