package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/cache"
	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/ws"
)

const (
	unreadAdminsKey  = "notifications:unread:admins"
	unreadUserKeyFmt = "notifications:unread:user:%s"
)

// NotificationService stores activity events, pushes them to dashboards and serves the feed
type NotificationService interface {
	Notifier
	ListNotifications(ctx context.Context, actor Actor, query *dto.ListNotificationsQuery) (*response.PaginatedResponse, error)
	GetUnreadCount(ctx context.Context, actor Actor) (*dto.UnreadCountResponse, error)
	MarkAsRead(ctx context.Context, actor Actor, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, actor Actor) (*dto.MarkAllReadResponse, error)
	DeleteNotification(ctx context.Context, actor Actor, notificationID uuid.UUID) error
}

type notificationServiceImpl struct {
	repo     repository.NotificationRepository
	broker   ws.Broker
	counters cache.CounterCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotificationService creates a new instance of NotificationService.
// broker and counters may be nil, which disables push and caching.
func NewNotificationService(
	repo repository.NotificationRepository,
	broker ws.Broker,
	counters cache.CounterCache,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &notificationServiceImpl{
		repo:     repo,
		broker:   broker,
		counters: counters,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

func unreadUserKey(userID uuid.UUID) string {
	return fmt.Sprintf(unreadUserKeyFmt, userID)
}

// Notify persists n, publishes it to its audience channel and invalidates the unread counter
func (s *notificationServiceImpl) Notify(ctx context.Context, n *domain.Notification) error {
	if n.Audience == domain.AudienceUser && n.RecipientID == nil {
		return response.NewValidationError("User notification needs a recipient", "")
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.String("type", string(n.Type)), zap.Error(err))
		return internalError("Failed to create notification", err)
	}

	s.metrics.IncrementNotificationSent(string(n.Type))
	s.publish(ctx, n)
	s.invalidate(ctx, n)

	s.logger.Debug("Notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("type", string(n.Type)),
		zap.String("audience", string(n.Audience)))
	return nil
}

func (s *notificationServiceImpl) publish(ctx context.Context, n *domain.Notification) {
	if s.broker == nil {
		return
	}
	data, err := json.Marshal(dto.NewNotificationResponse(n))
	if err != nil {
		s.logger.Error("Failed to marshal notification for publish", zap.Error(err))
		return
	}

	channel := ws.AdminsChannel
	if n.Audience == domain.AudienceUser {
		channel = ws.UserChannel(*n.RecipientID)
	}
	if err := s.broker.Publish(ctx, channel, data); err != nil {
		s.logger.Error("Failed to publish notification", zap.String("channel", channel), zap.Error(err))
	}
}

func (s *notificationServiceImpl) invalidate(ctx context.Context, n *domain.Notification) {
	key := unreadAdminsKey
	if n.Audience == domain.AudienceUser && n.RecipientID != nil {
		key = unreadUserKey(*n.RecipientID)
	}
	s.dropCounters(ctx, key)
}

func (s *notificationServiceImpl) dropCounters(ctx context.Context, keys ...string) {
	if s.counters == nil {
		return
	}
	if err := s.counters.Delete(ctx, keys...); err != nil {
		s.logger.Error("Failed to invalidate unread cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

// ListNotifications pages through the caller's notifications, newest first
func (s *notificationServiceImpl) ListNotifications(ctx context.Context, actor Actor, query *dto.ListNotificationsQuery) (*response.PaginatedResponse, error) {
	items, total, err := s.repo.List(ctx, actor.viewer(), repository.NotificationFilter{
		UnreadOnly: query.UnreadOnly,
		Page:       query.Page,
		Limit:      query.Limit,
	})
	if err != nil {
		return nil, internalError("Failed to list notifications", err)
	}

	out := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NewNotificationResponse(n))
	}
	return paginated(out, total, query.Page, query.Limit), nil
}

// GetUnreadCount returns the badge count. Admins see the shared admin count plus their own.
func (s *notificationServiceImpl) GetUnreadCount(ctx context.Context, actor Actor) (*dto.UnreadCountResponse, error) {
	own, err := s.cachedCount(ctx, unreadUserKey(actor.UserID), func() (int64, error) {
		return s.repo.CountUnread(ctx, repository.Viewer{UserID: actor.UserID})
	})
	if err != nil {
		return nil, internalError("Failed to count unread notifications", err)
	}
	if !actor.IsAdmin {
		return &dto.UnreadCountResponse{Count: own}, nil
	}

	shared, err := s.cachedCount(ctx, unreadAdminsKey, func() (int64, error) {
		return s.repo.CountUnreadAdmins(ctx)
	})
	if err != nil {
		return nil, internalError("Failed to count unread notifications", err)
	}
	return &dto.UnreadCountResponse{Count: own + shared}, nil
}

func (s *notificationServiceImpl) cachedCount(ctx context.Context, key string, load func() (int64, error)) (int64, error) {
	if s.counters != nil {
		v, ok, err := s.counters.Get(ctx, key)
		if err == nil && ok {
			return v, nil
		}
		if err != nil {
			s.logger.Warn("Unread cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	n, err := load()
	if err != nil {
		return 0, err
	}
	if s.counters != nil {
		if err := s.counters.Set(ctx, key, n, s.cacheTTL); err != nil {
			s.logger.Warn("Unread cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return n, nil
}

func (s *notificationServiceImpl) findVisible(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Notification not found", "Failed to get notification")
	}
	if !n.VisibleTo(actor.UserID, actor.IsAdmin) {
		return nil, response.NewNotFoundError("Notification not found", "")
	}
	return n, nil
}

// MarkAsRead marks one notification read. Admin notifications share one read flag.
func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, actor Actor, notificationID uuid.UUID) error {
	n, err := s.findVisible(ctx, actor, notificationID)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	if err := s.repo.MarkRead(ctx, notificationID, s.now().UTC()); err != nil {
		return internalError("Failed to mark notification as read", err)
	}
	s.invalidate(ctx, n)
	return nil
}

// MarkAllAsRead marks every notification visible to the caller read
func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, actor Actor) (*dto.MarkAllReadResponse, error) {
	updated, err := s.repo.MarkAllRead(ctx, actor.viewer(), s.now().UTC())
	if err != nil {
		return nil, internalError("Failed to mark notifications as read", err)
	}

	keys := []string{unreadUserKey(actor.UserID)}
	if actor.IsAdmin {
		keys = append(keys, unreadAdminsKey)
	}
	s.dropCounters(ctx, keys...)
	return &dto.MarkAllReadResponse{Updated: updated}, nil
}

// DeleteNotification soft-deletes a notification visible to the caller
func (s *notificationServiceImpl) DeleteNotification(ctx context.Context, actor Actor, notificationID uuid.UUID) error {
	n, err := s.findVisible(ctx, actor, notificationID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, notificationID); err != nil {
		return notFoundOr(err, "Notification not found", "Failed to delete notification")
	}
	if !n.IsRead {
		s.invalidate(ctx, n)
	}
	return nil
}
