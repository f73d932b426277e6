package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/middleware"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/review"
	"onboarding-forms-api/internal/service"
)

// setupTestRouter returns a router that authenticates every request as userID
func setupTestRouter(userID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.ContextUserID, userID)
			c.Set(middleware.ContextRole, role)
		}
		c.Next()
	})
	return r
}

// MockFormService is a mock implementation of FormService
type MockFormService struct {
	CreateFormFunc   func(ctx context.Context, actor service.Actor, req *dto.CreateFormRequest) (*dto.FormResponse, error)
	GetFormFunc      func(ctx context.Context, actor service.Actor, formID uuid.UUID) (*dto.FormResponse, error)
	ListFormsFunc    func(ctx context.Context, actor service.Actor, query *dto.ListFormsQuery) (*response.PaginatedResponse, error)
	UpdateFormFunc   func(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.UpdateFormRequest) (*dto.FormResponse, error)
	DeleteFormFunc   func(ctx context.Context, formID uuid.UUID) error
	ListVersionsFunc func(ctx context.Context, formID uuid.UUID) ([]dto.FormVersionResponse, error)
	GetVersionFunc   func(ctx context.Context, formID uuid.UUID, version int) (*dto.FormVersionResponse, error)
}

func (m *MockFormService) CreateForm(ctx context.Context, actor service.Actor, req *dto.CreateFormRequest) (*dto.FormResponse, error) {
	if m.CreateFormFunc != nil {
		return m.CreateFormFunc(ctx, actor, req)
	}
	return nil, nil
}

func (m *MockFormService) GetForm(ctx context.Context, actor service.Actor, formID uuid.UUID) (*dto.FormResponse, error) {
	if m.GetFormFunc != nil {
		return m.GetFormFunc(ctx, actor, formID)
	}
	return nil, nil
}

func (m *MockFormService) ListForms(ctx context.Context, actor service.Actor, query *dto.ListFormsQuery) (*response.PaginatedResponse, error) {
	if m.ListFormsFunc != nil {
		return m.ListFormsFunc(ctx, actor, query)
	}
	return &response.PaginatedResponse{}, nil
}

func (m *MockFormService) UpdateForm(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.UpdateFormRequest) (*dto.FormResponse, error) {
	if m.UpdateFormFunc != nil {
		return m.UpdateFormFunc(ctx, actor, formID, req)
	}
	return nil, nil
}

func (m *MockFormService) DeleteForm(ctx context.Context, formID uuid.UUID) error {
	if m.DeleteFormFunc != nil {
		return m.DeleteFormFunc(ctx, formID)
	}
	return nil
}

func (m *MockFormService) ListVersions(ctx context.Context, formID uuid.UUID) ([]dto.FormVersionResponse, error) {
	if m.ListVersionsFunc != nil {
		return m.ListVersionsFunc(ctx, formID)
	}
	return nil, nil
}

func (m *MockFormService) GetVersion(ctx context.Context, formID uuid.UUID, version int) (*dto.FormVersionResponse, error) {
	if m.GetVersionFunc != nil {
		return m.GetVersionFunc(ctx, formID, version)
	}
	return nil, nil
}

// MockBuilderService is a mock implementation of BuilderService
type MockBuilderService struct {
	ApplyCommandsFunc    func(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.ApplyCommandsRequest) (*dto.FormResponse, error)
	CanRemoveSectionFunc func(ctx context.Context, formID uuid.UUID) (*dto.CanRemoveSectionResponse, error)
}

func (m *MockBuilderService) ApplyCommands(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.ApplyCommandsRequest) (*dto.FormResponse, error) {
	if m.ApplyCommandsFunc != nil {
		return m.ApplyCommandsFunc(ctx, actor, formID, req)
	}
	return nil, nil
}

func (m *MockBuilderService) CanRemoveSection(ctx context.Context, formID uuid.UUID) (*dto.CanRemoveSectionResponse, error) {
	if m.CanRemoveSectionFunc != nil {
		return m.CanRemoveSectionFunc(ctx, formID)
	}
	return nil, nil
}

// MockWizardService is a mock implementation of WizardService.
// Session calls without a func return an empty session for the form.
type MockWizardService struct {
	AvailableFormsFunc func(ctx context.Context, actor service.Actor) ([]dto.AvailableFormResponse, error)
	SessionFunc        func(op string, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error)
	SetValuesFunc      func(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.SetValuesRequest) (*dto.SessionResponse, error)
	SetFilesFunc       func(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.SetFilesRequest) (*dto.SessionResponse, error)
	DiscardFunc        func(ctx context.Context, actor service.Actor, formID uuid.UUID) error
}

func (m *MockWizardService) session(op string, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc(op, actor, formID)
	}
	return &dto.SessionResponse{FormID: formID}, nil
}

func (m *MockWizardService) AvailableForms(ctx context.Context, actor service.Actor) ([]dto.AvailableFormResponse, error) {
	if m.AvailableFormsFunc != nil {
		return m.AvailableFormsFunc(ctx, actor)
	}
	return nil, nil
}

func (m *MockWizardService) StartSession(_ context.Context, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return m.session("start", actor, formID)
}

func (m *MockWizardService) GetSession(_ context.Context, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return m.session("get", actor, formID)
}

func (m *MockWizardService) SetValues(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.SetValuesRequest) (*dto.SessionResponse, error) {
	if m.SetValuesFunc != nil {
		return m.SetValuesFunc(ctx, actor, formID, req)
	}
	return m.session("values", actor, formID)
}

func (m *MockWizardService) SetFiles(ctx context.Context, actor service.Actor, formID uuid.UUID, req *dto.SetFilesRequest) (*dto.SessionResponse, error) {
	if m.SetFilesFunc != nil {
		return m.SetFilesFunc(ctx, actor, formID, req)
	}
	return m.session("files", actor, formID)
}

func (m *MockWizardService) Next(_ context.Context, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return m.session("next", actor, formID)
}

func (m *MockWizardService) Previous(_ context.Context, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return m.session("previous", actor, formID)
}

func (m *MockWizardService) Submit(_ context.Context, actor service.Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return m.session("submit", actor, formID)
}

func (m *MockWizardService) Discard(ctx context.Context, actor service.Actor, formID uuid.UUID) error {
	if m.DiscardFunc != nil {
		return m.DiscardFunc(ctx, actor, formID)
	}
	return nil
}

// MockSubmissionService is a mock implementation of SubmissionService
type MockSubmissionService struct {
	CreateSubmissionFunc func(ctx context.Context, actor service.Actor, req *dto.CreateSubmissionRequest, key string) (*dto.SubmissionResponse, bool, error)
	GetSubmissionFunc    func(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*dto.SubmissionResponse, error)
	ListSubmissionsFunc  func(ctx context.Context, actor service.Actor, query *dto.ListSubmissionsQuery) (*response.PaginatedResponse, error)
	GetReviewFunc        func(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*review.Projection, error)
	UpdateStatusFunc     func(ctx context.Context, actor service.Actor, submissionID uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionResponse, error)
}

func (m *MockSubmissionService) CreateSubmission(ctx context.Context, actor service.Actor, req *dto.CreateSubmissionRequest, key string) (*dto.SubmissionResponse, bool, error) {
	if m.CreateSubmissionFunc != nil {
		return m.CreateSubmissionFunc(ctx, actor, req, key)
	}
	return nil, false, nil
}

func (m *MockSubmissionService) Store(ctx context.Context, actor service.Actor, sub *domain.Submission, attachmentIDs []uuid.UUID) (*domain.Submission, error) {
	return sub, nil
}

func (m *MockSubmissionService) GetSubmission(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*dto.SubmissionResponse, error) {
	if m.GetSubmissionFunc != nil {
		return m.GetSubmissionFunc(ctx, actor, submissionID)
	}
	return nil, nil
}

func (m *MockSubmissionService) ListSubmissions(ctx context.Context, actor service.Actor, query *dto.ListSubmissionsQuery) (*response.PaginatedResponse, error) {
	if m.ListSubmissionsFunc != nil {
		return m.ListSubmissionsFunc(ctx, actor, query)
	}
	return &response.PaginatedResponse{}, nil
}

func (m *MockSubmissionService) GetReview(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*review.Projection, error) {
	if m.GetReviewFunc != nil {
		return m.GetReviewFunc(ctx, actor, submissionID)
	}
	return nil, nil
}

func (m *MockSubmissionService) UpdateStatus(ctx context.Context, actor service.Actor, submissionID uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionResponse, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, actor, submissionID, req)
	}
	return nil, nil
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	ListNotificationsFunc  func(ctx context.Context, actor service.Actor, query *dto.ListNotificationsQuery) (*response.PaginatedResponse, error)
	GetUnreadCountFunc     func(ctx context.Context, actor service.Actor) (*dto.UnreadCountResponse, error)
	MarkAsReadFunc         func(ctx context.Context, actor service.Actor, notificationID uuid.UUID) error
	MarkAllAsReadFunc      func(ctx context.Context, actor service.Actor) (*dto.MarkAllReadResponse, error)
	DeleteNotificationFunc func(ctx context.Context, actor service.Actor, notificationID uuid.UUID) error
}

func (m *MockNotificationService) Notify(ctx context.Context, n *domain.Notification) error {
	return nil
}

func (m *MockNotificationService) ListNotifications(ctx context.Context, actor service.Actor, query *dto.ListNotificationsQuery) (*response.PaginatedResponse, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, actor, query)
	}
	return &response.PaginatedResponse{}, nil
}

func (m *MockNotificationService) GetUnreadCount(ctx context.Context, actor service.Actor) (*dto.UnreadCountResponse, error) {
	if m.GetUnreadCountFunc != nil {
		return m.GetUnreadCountFunc(ctx, actor)
	}
	return &dto.UnreadCountResponse{}, nil
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, actor service.Actor, notificationID uuid.UUID) error {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, actor, notificationID)
	}
	return nil
}

func (m *MockNotificationService) MarkAllAsRead(ctx context.Context, actor service.Actor) (*dto.MarkAllReadResponse, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, actor)
	}
	return &dto.MarkAllReadResponse{}, nil
}

func (m *MockNotificationService) DeleteNotification(ctx context.Context, actor service.Actor, notificationID uuid.UUID) error {
	if m.DeleteNotificationFunc != nil {
		return m.DeleteNotificationFunc(ctx, actor, notificationID)
	}
	return nil
}

// MockAttachmentService is a mock implementation of AttachmentService
type MockAttachmentService struct {
	CreatePresignedUploadFunc func(ctx context.Context, actor service.Actor, req *dto.PresignedUploadRequest) (*dto.PresignedUploadResponse, error)
	GetAttachmentFunc         func(ctx context.Context, actor service.Actor, attachmentID uuid.UUID) (*dto.AttachmentResponse, error)
	ListBySubmissionFunc      func(ctx context.Context, actor service.Actor, submissionID uuid.UUID) ([]dto.AttachmentResponse, error)
}

func (m *MockAttachmentService) CreatePresignedUpload(ctx context.Context, actor service.Actor, req *dto.PresignedUploadRequest) (*dto.PresignedUploadResponse, error) {
	if m.CreatePresignedUploadFunc != nil {
		return m.CreatePresignedUploadFunc(ctx, actor, req)
	}
	return nil, nil
}

func (m *MockAttachmentService) GetAttachment(ctx context.Context, actor service.Actor, attachmentID uuid.UUID) (*dto.AttachmentResponse, error) {
	if m.GetAttachmentFunc != nil {
		return m.GetAttachmentFunc(ctx, actor, attachmentID)
	}
	return nil, nil
}

func (m *MockAttachmentService) ListBySubmission(ctx context.Context, actor service.Actor, submissionID uuid.UUID) ([]dto.AttachmentResponse, error) {
	if m.ListBySubmissionFunc != nil {
		return m.ListBySubmissionFunc(ctx, actor, submissionID)
	}
	return nil, nil
}
