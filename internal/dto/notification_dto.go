package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
)

// ListNotificationsQuery are the query parameters of GET /notifications
type ListNotificationsQuery struct {
	UnreadOnly bool `form:"unread"`
	Page       int  `form:"page,default=1" binding:"min=1"`
	Limit      int  `form:"limit,default=20" binding:"min=1,max=100"`
}

// NotificationResponse is a dashboard activity item
type NotificationResponse struct {
	ID           uuid.UUID                   `json:"id"`
	Type         domain.NotificationType     `json:"type"`
	Title        string                      `json:"title"`
	Message      string                      `json:"message"`
	Action       string                      `json:"action,omitempty"`
	Priority     domain.NotificationPriority `json:"priority"`
	FormID       *uuid.UUID                  `json:"form_id,omitempty"`
	FormName     string                      `json:"form_name,omitempty"`
	SubmissionID *uuid.UUID                  `json:"submission_id,omitempty"`
	ClientName   string                      `json:"client_name,omitempty"`
	Metadata     json.RawMessage             `json:"metadata,omitempty"`
	Read         bool                        `json:"read"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// NewNotificationResponse converts a notification
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	var meta json.RawMessage
	if len(n.Metadata) > 0 {
		meta = json.RawMessage(n.Metadata)
	}
	return NotificationResponse{
		ID:           n.ID,
		Type:         n.Type,
		Title:        n.Title,
		Message:      n.Message,
		Action:       n.Action,
		Priority:     n.Priority,
		FormID:       n.FormID,
		FormName:     n.FormName,
		SubmissionID: n.SubmissionID,
		ClientName:   n.ClientName,
		Metadata:     meta,
		Read:         n.IsRead,
		CreatedAt:    n.CreatedAt,
	}
}

// UnreadCountResponse is the badge count
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse reports how many notifications changed
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
