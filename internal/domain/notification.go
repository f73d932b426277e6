package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationType identifies the activity that produced a notification
type NotificationType string

const (
	NotificationSubmissionCreated  NotificationType = "SUBMISSION_CREATED"
	NotificationSubmissionApproved NotificationType = "SUBMISSION_APPROVED"
	NotificationSubmissionRejected NotificationType = "SUBMISSION_REJECTED"
	NotificationFormPublished      NotificationType = "FORM_PUBLISHED"
)

// NotificationAudience selects who sees a notification
type NotificationAudience string

const (
	AudienceAdmins NotificationAudience = "admins"
	AudienceUser   NotificationAudience = "user"
)

// NotificationPriority mirrors the dashboard badge levels
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is a persisted activity event pushed to connected dashboards.
// Admin-audience notifications have no recipient and share one read flag.
type Notification struct {
	BaseModel
	Type         NotificationType     `gorm:"type:varchar(50);not null;index:idx_notifications_type" json:"type"`
	Audience     NotificationAudience `gorm:"type:varchar(20);not null;index:idx_notifications_audience" json:"audience"`
	RecipientID  *uuid.UUID           `gorm:"type:uuid;index:idx_notifications_recipient" json:"recipient_id,omitempty"`
	ActorID      uuid.UUID            `gorm:"type:uuid" json:"actor_id"`
	Title        string               `gorm:"type:varchar(255);not null" json:"title"`
	Message      string               `gorm:"type:text" json:"message"`
	Action       string               `gorm:"type:varchar(100)" json:"action"`
	Priority     NotificationPriority `gorm:"type:varchar(20)" json:"priority"`
	FormID       *uuid.UUID           `gorm:"type:uuid" json:"form_id,omitempty"`
	FormName     string               `gorm:"type:varchar(255)" json:"form_name,omitempty"`
	SubmissionID *uuid.UUID           `gorm:"type:uuid" json:"submission_id,omitempty"`
	ClientName   string               `gorm:"type:varchar(255)" json:"client_name,omitempty"`
	Metadata     datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsRead       bool                 `gorm:"not null;index:idx_notifications_is_read" json:"read"`
	ReadAt       *time.Time           `gorm:"type:timestamp" json:"read_at,omitempty"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// VisibleTo reports whether the notification belongs to the given viewer
func (n *Notification) VisibleTo(userID uuid.UUID, isAdmin bool) bool {
	if n.Audience == AudienceAdmins {
		return isAdmin
	}
	return n.RecipientID != nil && *n.RecipientID == userID
}
