package dto

import (
	"time"

	"github.com/google/uuid"
)

// PresignedUploadRequest asks for an upload URL for one file-type field
type PresignedUploadRequest struct {
	FormID      uuid.UUID `json:"form_id" binding:"required"`
	FieldID     string    `json:"field_id" binding:"required,max=100"`
	FileName    string    `json:"file_name" binding:"required,max=255" example:"passport.pdf"`
	ContentType string    `json:"content_type" binding:"required,max=100" example:"application/pdf"`
	FileSize    int64     `json:"file_size" binding:"required,min=1" example:"204800"`
}

// PresignedUploadResponse tells the client where to PUT the file
type PresignedUploadResponse struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	UploadURL    string    `json:"upload_url"`
	FileKey      string    `json:"file_key"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AttachmentResponse is a stored upload with a short-lived download link
type AttachmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	FormID       uuid.UUID  `json:"form_id"`
	FieldID      string     `json:"field_id"`
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
	FileName     string     `json:"file_name"`
	FileSize     int64      `json:"file_size"`
	ContentType  string     `json:"content_type"`
	Status       string     `json:"status"`
	DownloadURL  string     `json:"download_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
