package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentStatus represents the status of an attachment
type AttachmentStatus string

const (
	AttachmentStatusTemp      AttachmentStatus = "TEMP"
	AttachmentStatusConfirmed AttachmentStatus = "CONFIRMED"
)

// Attachment is an uploaded file for a file-type field.
// It stays TEMP until a submission claims it; expired TEMP rows are swept by the cleanup job.
type Attachment struct {
	BaseModel
	FormID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_attachments_form_field,priority:1" json:"form_id"`
	FieldID      string           `gorm:"type:varchar(100);not null;index:idx_attachments_form_field,priority:2" json:"field_id"`
	SubmissionID *uuid.UUID       `gorm:"type:uuid;index:idx_attachments_submission" json:"submission_id,omitempty"`
	Status       AttachmentStatus `gorm:"type:varchar(20);not null;index:idx_attachments_status" json:"status"`
	FileName     string           `gorm:"type:varchar(255);not null" json:"file_name"`
	FileKey      string           `gorm:"type:text;not null" json:"file_key"`
	FileSize     int64            `gorm:"not null" json:"file_size"`
	ContentType  string           `gorm:"type:varchar(100);not null" json:"content_type"`
	UploadedBy   uuid.UUID        `gorm:"type:uuid;not null;index:idx_attachments_uploaded_by" json:"uploaded_by"`
	ExpiresAt    *time.Time       `gorm:"type:timestamp;index:idx_attachments_expires_at" json:"expires_at,omitempty"`
}

// TableName specifies the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
