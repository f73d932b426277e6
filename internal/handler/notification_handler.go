package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

// NotificationHandler serves the dashboard activity feed
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications godoc
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Param        unread query bool false "Only unread"
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} response.SuccessResponse{data=response.PaginatedResponse{items=[]dto.NotificationResponse}}
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var query dto.ListNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err)
		return
	}

	page, err := h.notificationService.ListNotifications(c.Request.Context(), actor, &query)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, page)
}

// GetUnreadCount godoc
// @Summary      Unread notification count
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.UnreadCountResponse}
// @Security     BearerAuth
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, count)
}

// MarkAsRead godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        notificationId path string true "Notification ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=map[string]string}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{notificationId}/read [patch]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	notificationID, ok := uuidParam(c, "notificationId", "notification")
	if !ok {
		return
	}
	if err := h.notificationService.MarkAsRead(c.Request.Context(), actor, notificationID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllAsRead godoc
// @Summary      Mark every visible notification as read
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.MarkAllReadResponse}
// @Security     BearerAuth
// @Router       /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	result, err := h.notificationService.MarkAllAsRead(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, result)
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Tags         notifications
// @Produce      json
// @Param        notificationId path string true "Notification ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=map[string]string}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{notificationId} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	notificationID, ok := uuidParam(c, "notificationId", "notification")
	if !ok {
		return
	}
	if err := h.notificationService.DeleteNotification(c.Request.Context(), actor, notificationID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, map[string]string{"message": "Notification deleted"})
}
