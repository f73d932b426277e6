package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
)

// Viewer identifies who is reading notifications
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// NotificationFilter narrows a notification listing
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	List(ctx context.Context, viewer Viewer, filter NotificationFilter) ([]*domain.Notification, int64, error)
	CountUnread(ctx context.Context, viewer Viewer) (int64, error)
	// CountUnreadAdmins counts unread admin-audience notifications only
	CountUnreadAdmins(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, viewer Viewer, at time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepositoryImpl struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

// visible scopes a query to the rows the viewer may see
func visible(viewer Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.IsAdmin {
			return db.Where("(audience = ? OR (audience = ? AND recipient_id = ?))",
				domain.AudienceAdmins, domain.AudienceUser, viewer.UserID)
		}
		return db.Where("audience = ? AND recipient_id = ?", domain.AudienceUser, viewer.UserID)
	}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var n domain.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepositoryImpl) List(ctx context.Context, viewer Viewer, filter NotificationFilter) ([]*domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Notification{}).Scopes(visible(viewer))
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	var items []*domain.Notification
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepositoryImpl) CountUnread(ctx context.Context, viewer Viewer) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Scopes(visible(viewer)).
		Where("is_read = ?", false).
		Count(&n).Error
	return n, err
}

func (r *notificationRepositoryImpl) CountUnreadAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("audience = ? AND is_read = ?", domain.AudienceAdmins, false).
		Count(&n).Error
	return n, err
}

func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

func (r *notificationRepositoryImpl) MarkAllRead(ctx context.Context, viewer Viewer, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Scopes(visible(viewer)).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (r *notificationRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteReadBefore permanently removes read notifications created before cutoff
func (r *notificationRepositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&domain.Notification{})
	return result.RowsAffected, result.Error
}
