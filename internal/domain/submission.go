package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// IsValid reports whether s is a known status
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a reviewer may move a submission from s to next.
// Only pending submissions are reviewed, and a review is final.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	return s == SubmissionStatusPending &&
		(next == SubmissionStatusApproved || next == SubmissionStatusRejected)
}

// SubmissionValue is one collected value.
// Field is the 1-based flattened index in the pinned schema version; FieldID is the stable join key.
type SubmissionValue struct {
	Field   int    `json:"field"`
	FieldID string `json:"field_id,omitempty"`
	Value   string `json:"value"`
}

// SubmissionData is the ordered value list stored in the submission_data jsonb column
type SubmissionData []SubmissionValue

// Value implements driver.Valuer
func (d SubmissionData) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *SubmissionData) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SubmissionData", value)
	}
	if len(data) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(data, d)
}

// Submission is the result of running the wizard against a form version
type Submission struct {
	BaseModel
	FormID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_submissions_form_id" json:"form"`
	FormVersion    int              `gorm:"not null" json:"form_version"`
	Data           SubmissionData   `gorm:"column:submission_data;type:jsonb" json:"submission_data"`
	CreatedBy      uuid.UUID        `gorm:"type:uuid;not null;index:idx_submissions_created_by" json:"created_by"`
	Status         SubmissionStatus `gorm:"type:varchar(20);not null;index:idx_submissions_status" json:"status"`
	IdempotencyKey *string          `gorm:"type:varchar(64);uniqueIndex:idx_submissions_idempotency_key" json:"idempotency_key,omitempty"`
	ReviewedBy     *uuid.UUID       `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time       `gorm:"type:timestamp" json:"reviewed_at,omitempty"`
	ReviewNote     string           `gorm:"type:text" json:"review_note,omitempty"`
}

// TableName specifies the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}
