package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/repository"
)

// MockFormRepository is a mock implementation of FormRepository
type MockFormRepository struct {
	CreateFunc      func(ctx context.Context, form *domain.Form) error
	FindByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.Form, error)
	ListFunc        func(ctx context.Context, filter repository.FormFilter) ([]*domain.Form, int64, error)
	UpdateFunc      func(ctx context.Context, form *domain.Form) error
	DeleteFunc      func(ctx context.Context, id uuid.UUID) error
	TransactionFunc func(ctx context.Context, fn func(forms repository.FormRepository, versions repository.FormVersionRepository) error) error
	// Versions is handed to Transaction callbacks when TransactionFunc is nil
	Versions repository.FormVersionRepository
}

func (m *MockFormRepository) Create(ctx context.Context, form *domain.Form) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, form)
	}
	return nil
}

func (m *MockFormRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockFormRepository) List(ctx context.Context, filter repository.FormFilter) ([]*domain.Form, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockFormRepository) Update(ctx context.Context, form *domain.Form) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, form)
	}
	return nil
}

func (m *MockFormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockFormRepository) Transaction(ctx context.Context, fn func(forms repository.FormRepository, versions repository.FormVersionRepository) error) error {
	if m.TransactionFunc != nil {
		return m.TransactionFunc(ctx, fn)
	}
	versions := m.Versions
	if versions == nil {
		versions = &MockFormVersionRepository{}
	}
	return fn(m, versions)
}

// MockFormVersionRepository is a mock implementation of FormVersionRepository
type MockFormVersionRepository struct {
	CreateFunc               func(ctx context.Context, version *domain.FormVersion) error
	FindByFormAndVersionFunc func(ctx context.Context, formID uuid.UUID, version int) (*domain.FormVersion, error)
	ListByFormFunc           func(ctx context.Context, formID uuid.UUID) ([]*domain.FormVersion, error)
}

func (m *MockFormVersionRepository) Create(ctx context.Context, version *domain.FormVersion) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, version)
	}
	return nil
}

func (m *MockFormVersionRepository) FindByFormAndVersion(ctx context.Context, formID uuid.UUID, version int) (*domain.FormVersion, error) {
	if m.FindByFormAndVersionFunc != nil {
		return m.FindByFormAndVersionFunc(ctx, formID, version)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockFormVersionRepository) ListByForm(ctx context.Context, formID uuid.UUID) ([]*domain.FormVersion, error) {
	if m.ListByFormFunc != nil {
		return m.ListByFormFunc(ctx, formID)
	}
	return nil, nil
}

// MockSubmissionRepository is a mock implementation of SubmissionRepository
type MockSubmissionRepository struct {
	CreateFunc                func(ctx context.Context, submission *domain.Submission) error
	CreateWithAttachmentsFunc func(ctx context.Context, submission *domain.Submission, attachmentIDs []uuid.UUID) error
	FindByIDFunc              func(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	FindByIdempotencyKeyFunc  func(ctx context.Context, key string) (*domain.Submission, error)
	ListFunc                  func(ctx context.Context, filter repository.SubmissionFilter) ([]*domain.Submission, int64, error)
	UpdateStatusFunc          func(ctx context.Context, id uuid.UUID, change repository.StatusChange) error
	CountByFormFunc           func(ctx context.Context, formID uuid.UUID) (int64, error)
}

func (m *MockSubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, submission)
	}
	return nil
}

func (m *MockSubmissionRepository) CreateWithAttachments(ctx context.Context, submission *domain.Submission, attachmentIDs []uuid.UUID) error {
	if m.CreateWithAttachmentsFunc != nil {
		return m.CreateWithAttachmentsFunc(ctx, submission, attachmentIDs)
	}
	return m.Create(ctx, submission)
}

func (m *MockSubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockSubmissionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Submission, error) {
	if m.FindByIdempotencyKeyFunc != nil {
		return m.FindByIdempotencyKeyFunc(ctx, key)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockSubmissionRepository) List(ctx context.Context, filter repository.SubmissionFilter) ([]*domain.Submission, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockSubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, change repository.StatusChange) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, change)
	}
	return nil
}

func (m *MockSubmissionRepository) CountByForm(ctx context.Context, formID uuid.UUID) (int64, error) {
	if m.CountByFormFunc != nil {
		return m.CountByFormFunc(ctx, formID)
	}
	return 0, nil
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	CreateFunc            func(ctx context.Context, n *domain.Notification) error
	FindByIDFunc          func(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListFunc              func(ctx context.Context, viewer repository.Viewer, filter repository.NotificationFilter) ([]*domain.Notification, int64, error)
	CountUnreadFunc       func(ctx context.Context, viewer repository.Viewer) (int64, error)
	CountUnreadAdminsFunc func(ctx context.Context) (int64, error)
	MarkReadFunc          func(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAllReadFunc       func(ctx context.Context, viewer repository.Viewer, at time.Time) (int64, error)
	DeleteFunc            func(ctx context.Context, id uuid.UUID) error
	DeleteReadBeforeFunc  func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockNotificationRepository) List(ctx context.Context, viewer repository.Viewer, filter repository.NotificationFilter) ([]*domain.Notification, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, viewer, filter)
	}
	return nil, 0, nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, viewer repository.Viewer) (int64, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, viewer)
	}
	return 0, nil
}

func (m *MockNotificationRepository) CountUnreadAdmins(ctx context.Context) (int64, error) {
	if m.CountUnreadAdminsFunc != nil {
		return m.CountUnreadAdminsFunc(ctx)
	}
	return 0, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id, at)
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, viewer repository.Viewer, at time.Time) (int64, error) {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, viewer, at)
	}
	return 0, nil
}

func (m *MockNotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockNotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteReadBeforeFunc != nil {
		return m.DeleteReadBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockAttachmentRepository is a mock implementation of AttachmentRepository
type MockAttachmentRepository struct {
	CreateFunc           func(ctx context.Context, attachment *domain.Attachment) error
	FindByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	FindByIDsFunc        func(ctx context.Context, ids []uuid.UUID) ([]*domain.Attachment, error)
	FindBySubmissionFunc func(ctx context.Context, submissionID uuid.UUID) ([]*domain.Attachment, error)
	FindExpiredTempFunc  func(ctx context.Context, now time.Time) ([]*domain.Attachment, error)
	ConfirmFunc          func(ctx context.Context, ids []uuid.UUID, submissionID uuid.UUID) error
	DeleteBatchFunc      func(ctx context.Context, ids []uuid.UUID) error
}

func (m *MockAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, attachment)
	}
	if attachment.ID == uuid.Nil {
		attachment.ID = uuid.New()
	}
	return nil
}

func (m *MockAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockAttachmentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Attachment, error) {
	if m.FindByIDsFunc != nil {
		return m.FindByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *MockAttachmentRepository) FindBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*domain.Attachment, error) {
	if m.FindBySubmissionFunc != nil {
		return m.FindBySubmissionFunc(ctx, submissionID)
	}
	return nil, nil
}

func (m *MockAttachmentRepository) FindExpiredTemp(ctx context.Context, now time.Time) ([]*domain.Attachment, error) {
	if m.FindExpiredTempFunc != nil {
		return m.FindExpiredTempFunc(ctx, now)
	}
	return nil, nil
}

func (m *MockAttachmentRepository) Confirm(ctx context.Context, ids []uuid.UUID, submissionID uuid.UUID) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, ids, submissionID)
	}
	return nil
}

func (m *MockAttachmentRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if m.DeleteBatchFunc != nil {
		return m.DeleteBatchFunc(ctx, ids)
	}
	return nil
}

// MockNotifier records every notification it receives
type MockNotifier struct {
	mu         sync.Mutex
	NotifyFunc func(ctx context.Context, n *domain.Notification) error
	Sent       []*domain.Notification
}

func (m *MockNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, n)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

// MockBroker records published payloads by channel
type MockBroker struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, channel string, payload []byte) error
	Published   map[string][][]byte
}

func (m *MockBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	if m.Published == nil {
		m.Published = make(map[string][][]byte)
	}
	m.Published[channel] = append(m.Published[channel], payload)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, channel, payload)
	}
	return nil
}
